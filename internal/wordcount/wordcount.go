package wordcount

import (
	"html"
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy

	wordRe = regexp.MustCompile(`\w+`)
)

func stripPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
		// "<p>a</p><p>b</p>" is two words, not one.
		policy.AddSpaceWhenStrippingTag(true)
	})
	return policy
}

// PlainText strips all markup from an HTML fragment and unescapes entities.
func PlainText(src string) string {
	if src == "" {
		return ""
	}
	return html.UnescapeString(stripPolicy().Sanitize(src))
}

// Count returns the number of words in an HTML fragment, using the same rule
// as the server (runs of word characters after tags are removed). The server's
// count stays authoritative; this one is for immediate feedback while typing.
func Count(src string) int {
	text := PlainText(src)
	if text == "" {
		return 0
	}
	return len(wordRe.FindAllStringIndex(text, -1))
}

// Delta estimates the change in words between two versions of a buffer.
func Delta(previous, current string) int {
	return Count(current) - Count(previous)
}
