package tracker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/uatops/uat-router/internal/domain"
)

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

	// Order matters: "&amp;lt;" must decode to "&lt;", not "<".
	htmlEntities = []struct{ from, to string }{
		{"&nbsp;", " "},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&amp;", "&"},
		{"&quot;", `"`},
	}
)

// CleanHTML reduces rich-text markup to a single line of plain text. Empty input and the
// FieldNotFound sentinel are returned unchanged.
func CleanHTML(html string) string {
	if html == "" || html == domain.FieldNotFound {
		return html
	}
	text := htmlTagPattern.ReplaceAllString(html, "")
	for _, e := range htmlEntities {
		text = strings.ReplaceAll(text, e.from, e.to)
	}
	text = strings.Map(func(r rune) rune {
		if (r >= 0x25A0 && r <= 0x25FF) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.FieldsFunc(text, isSpace), " ")
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
