// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of items in a paged list.
const PageSize = 20

// MaxPageSize caps the client-supplied limit.
const MaxPageSize = 100

// TrendingSize is the fixed length of the trending feed.
const TrendingSize = 50

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Parse reads "page" and "limit" from the query string.
// Missing or invalid values fall back to page 1 and PageSize;
// limit is capped at MaxPageSize.
func Parse(r *http.Request) Params {
	return Params{
		Page:  atoiMin(query.Get(r, "page"), 1, 1),
		Limit: clamp(atoiMin(query.Get(r, "limit"), PageSize, 1), MaxPageSize),
	}
}

// Skip is the number of documents before this page.
func (p Params) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

// ApplyToFind sets skip and limit on a Find.
func (p Params) ApplyToFind(find *options.FindOptions) *options.FindOptions {
	return find.SetSkip(p.Skip()).SetLimit(int64(p.Limit))
}

// Page is the JSON envelope for paged lists.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// NewPage builds the envelope. A nil items slice is returned as an empty array.
func NewPage[T any](items []T, total int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: PageCount(total, p.Limit),
	}
}

// PageCount returns ceil(total/limit), or 0 when limit is not positive.
func PageCount(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func atoiMin(s string, def, min int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min {
		return def
	}
	return n
}

func clamp(n, max int) int {
	if n > max {
		return max
	}
	return n
}
