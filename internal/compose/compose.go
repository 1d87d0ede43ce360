// Package compose joins a chapter's scenes into one editable HTML buffer and
// splits an edited buffer back into per-scene segments.
package compose

import (
	"sort"
	"strings"

	"lyra-cli/internal/model"

	"golang.org/x/net/html"
)

// Separator is inserted between scenes when a chapter is composed.
const Separator = `<p style="text-align:center;">***</p>`

const separatorText = "***"

// Ordered returns a copy of scenes sorted by Order ascending.
// Equal orders keep their array position.
func Ordered(scenes []model.Scene) []model.Scene {
	out := append([]model.Scene(nil), scenes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Compose orders scenes and joins their contents with Separator.
// A scene without loaded content contributes "".
func Compose(scenes []model.Scene) string {
	ordered := Ordered(scenes)
	parts := make([]string, 0, len(ordered))
	for _, s := range ordered {
		parts = append(parts, s.ContentOrEmpty())
	}
	return ComposeContents(parts)
}

// ComposeContents joins already-ordered contents with Separator.
func ComposeContents(contents []string) string {
	return strings.Join(contents, Separator)
}

// Split cuts html at every paragraph whose inner text, ignoring surrounding
// whitespace, is exactly "***". The tag name is matched case-insensitively and
// its attributes are ignored. Everything outside separators is returned
// byte-for-byte.
//
// A scene whose own content holds a "***"-only paragraph is over-segmented;
// the split does not try to tell such a paragraph from a real separator.
// Separators are found by tokenizing, so a "<p>***</p>" inside a raw-text
// element (script, style, textarea, title) is text and never splits, while a
// closing tag with trailing space such as "</p >" still does.
func Split(src string) []string {
	z := html.NewTokenizer(strings.NewReader(src))

	var (
		segments []string
		cur      strings.Builder
		// Candidate paragraph: raw bytes seen since its <p> and its raw text.
		inPara   bool
		paraRaw  strings.Builder
		paraText strings.Builder
	)

	abandon := func() {
		cur.WriteString(paraRaw.String())
		paraRaw.Reset()
		paraText.Reset()
		inPara = false
	}

	for {
		tt := z.Next()
		// Copy before TagName: it lowercases the tokenizer buffer in place.
		raw := string(z.Raw())
		if tt == html.ErrorToken {
			if inPara {
				abandon()
			}
			// String input only ends with io.EOF; anything left is kept verbatim.
			cur.WriteString(raw)
			break
		}

		isPara := false
		if tt == html.StartTagToken || tt == html.EndTagToken {
			name, _ := z.TagName()
			isPara = string(name) == "p"
		}

		if !inPara {
			if tt == html.StartTagToken && isPara {
				inPara = true
				paraRaw.WriteString(raw)
				continue
			}
			cur.WriteString(raw)
			continue
		}

		switch {
		case tt == html.TextToken:
			paraRaw.WriteString(raw)
			paraText.WriteString(raw)
		case tt == html.EndTagToken && isPara:
			if strings.TrimSpace(paraText.String()) == separatorText {
				segments = append(segments, cur.String())
				cur.Reset()
				paraRaw.Reset()
				paraText.Reset()
				inPara = false
				continue
			}
			paraRaw.WriteString(raw)
			abandon()
		case tt == html.StartTagToken && isPara:
			abandon()
			inPara = true
			paraRaw.WriteString(raw)
		default:
			paraRaw.WriteString(raw)
			abandon()
		}
	}

	return append(segments, cur.String())
}

// Assignment is the content a chapter-mode save writes to one scene.
type Assignment struct {
	SceneID string
	Content string
}

// Assign maps segments onto the chapter's scenes by position, using the same
// ordering Compose uses. Scenes without a segment get "". Segments beyond the
// last scene are returned as dropped.
func Assign(scenes []model.Scene, segments []string) ([]Assignment, []string) {
	ordered := Ordered(scenes)
	out := make([]Assignment, 0, len(ordered))
	for i, s := range ordered {
		content := ""
		if i < len(segments) {
			content = segments[i]
		}
		out = append(out, Assignment{SceneID: s.ID, Content: content})
	}
	var dropped []string
	if len(segments) > len(ordered) {
		dropped = append(dropped, segments[len(ordered):]...)
	}
	return out, dropped
}
