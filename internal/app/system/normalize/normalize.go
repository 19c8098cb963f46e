// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Username trims a username. Case is preserved for display.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// UsernameKey returns the folded form used for uniqueness checks.
func UsernameKey(s string) string {
	return text.Fold(Username(s))
}

// Category lowercases and trims a category tag.
func Category(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tags trims, lowercases, strips leading '#', and de-duplicates tags,
// keeping first-seen order. Empty tags are dropped. Never returns nil.
func Tags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#")))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// QueryParam trims a query-string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
