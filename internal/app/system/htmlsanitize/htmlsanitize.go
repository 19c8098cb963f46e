// Package htmlsanitize strips markup from user-supplied text fields.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()

	angle = strings.NewReplacer("<", "&lt;", ">", "&gt;")
)

// PlainText removes all HTML elements from s and trims it.
//
// Entities produced by the sanitizer are decoded so ordinary punctuation
// (quotes, ampersands) round-trips, but angle brackets stay escaped so the
// result can never reintroduce markup.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	return strings.TrimSpace(angle.Replace(out))
}

// PlainTexts applies PlainText to each element, dropping ones that become empty.
func PlainTexts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = PlainText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
