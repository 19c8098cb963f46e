// internal/app/features/feed/feed.go
package feed

import (
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/store/queries/feedqueries"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/normalize"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

var errNoCategory = apperr.Validation("Category is required.")

// ServeHome handles GET /api/feed: the caller's own pins plus public pins
// from everyone they follow, newest first.
func (h *Handler) ServeHome(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "home feed")
	defer cancel()

	uid := authz.UserID(r)
	u, err := userstore.New(h.DB).GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	res, err := feedqueries.Home(ctx, h.DB, uid, u.Following.Slice(), pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, paging.NewPage(res.Items, res.Total, pg))
}

// ServeTrending handles GET /api/feed/trending. The list is a single page
// capped at paging.TrendingSize; a smaller limit may be requested.
func (h *Handler) ServeTrending(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)
	limit := paging.TrendingSize
	if r.URL.Query().Has("limit") && pg.Limit < limit {
		limit = pg.Limit
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "trending feed")
	defer cancel()

	items, err := feedqueries.Trending(ctx, h.DB, limit)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, paging.NewPage(items, int64(len(items)), paging.Params{Page: 1, Limit: limit}))
}

// ServeCategory handles GET /api/feed/category/{category}.
func (h *Handler) ServeCategory(w http.ResponseWriter, r *http.Request) {
	category := normalize.Category(chi.URLParam(r, "category"))
	if category == "" {
		h.ErrLog.Write(w, r, errNoCategory)
		return
	}
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "category feed")
	defer cancel()

	res, err := feedqueries.Category(ctx, h.DB, category, pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, paging.NewPage(res.Items, res.Total, pg))
}
