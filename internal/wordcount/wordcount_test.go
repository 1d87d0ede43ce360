package wordcount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t", 0},
		{"tags only", "<p></p><br/>", 0},
		{"plain", "one two  three", 3},
		{"paragraphs do not glue words", "<p>Hello</p><p>World</p>", 2},
		{"inline markup", "<p>It <em>was</em> a <strong>dark</strong> night</p>", 5},
		{"separator is not a word", `<p>a</p><p style="text-align:center;">***</p><p>b</p>`, 2},
		{"entities", "<p>fish &amp; chips</p>", 2},
		{"punctuation splits", "don't stop-now", 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Count(tc.in))
		})
	}
}

func TestDelta(t *testing.T) {
	assert.Equal(t, 2, Delta("<p>one</p>", "<p>one two three</p>"))
	assert.Equal(t, -1, Delta("<p>one two</p>", "<p>one</p>"))
	assert.Equal(t, 0, Delta("", ""))
}

func TestPlainText(t *testing.T) {
	assert.Contains(t, PlainText("<p>fish &amp; chips</p>"), "fish & chips")
	assert.Equal(t, "", PlainText(""))
}
