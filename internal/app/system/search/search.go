// internal/app/system/search/search.go
package search

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/query"
)

// MaxQueryLen caps the search string in characters.
const MaxQueryLen = 100

// Modes accepted by the "mode" query parameter.
const (
	ModeRegex = "regex"
	ModeText  = "text"
)

// Params is a parsed pin search request.
//
// Regex mode (the default) is a case-insensitive substring match over title
// and description. Text mode uses the text index across title, description
// and tags and ranks by relevance.
type Params struct {
	Query string
	Text  bool
}

// Active reports whether there is anything to search for.
func (p Params) Active() bool { return p.Query != "" }

// FromRequest reads "q" and "mode" from the query string.
//
//	GET /api/pins/search?q=sunset            regex
//	GET /api/pins/search?q=sunset&mode=text  text index
func FromRequest(r *http.Request) (Params, error) {
	q := strings.Join(strings.Fields(query.Get(r, "q")), " ")
	if utf8.RuneCountInString(q) > MaxQueryLen {
		return Params{}, apperr.Validation("Search query is too long.")
	}

	switch mode := strings.ToLower(strings.TrimSpace(query.Get(r, "mode"))); mode {
	case "", ModeRegex:
		return Params{Query: q}, nil
	case ModeText:
		return Params{Query: q, Text: q != ""}, nil
	default:
		return Params{}, apperr.Validation(`Search mode must be "regex" or "text".`)
	}
}

// Required is FromRequest for endpoints where q must be present.
func Required(r *http.Request) (Params, error) {
	p, err := FromRequest(r)
	if err != nil {
		return Params{}, err
	}
	if !p.Active() {
		return Params{}, apperr.Validation("Search query is required.")
	}
	return p, nil
}
