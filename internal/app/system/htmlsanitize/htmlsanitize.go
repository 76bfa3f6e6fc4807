// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag from s and trims it. Notes, rejection
// reasons and notification messages are stored as plain text, so the
// entities the policy escapes are decoded again.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// PlainTextMax is PlainText truncated to at most max runes.
func PlainTextMax(s string, max int) string {
	s = PlainText(s)
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
