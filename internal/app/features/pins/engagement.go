// internal/app/features/pins/engagement.go
package pins

import (
	"net/http"

	pinstore "github.com/dalemusser/pinhub/internal/app/store/pins"
	"github.com/dalemusser/pinhub/internal/app/system/formutil"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/domain/models"
)

// HandleClick handles POST /api/pins/{id}/click, counting an outbound link click.
func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "pin click")
	defer cancel()

	if _, err := h.loadViewable(ctx, r, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := pinstore.New(h.DB).RecordClick(ctx, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.Message(w, "Click recorded.")
}

type statsResponse struct {
	PinID        string            `json:"pin_id"`
	SaveCount    int               `json:"save_count"`
	CommentCount int               `json:"comment_count"`
	Engagement   models.Engagement `json:"engagement"`
}

// ServeStats handles GET /api/pins/{id}/stats. Owner only.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "pin stats")
	defer cancel()

	p, err := h.loadOwned(ctx, r, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	eng := p.Engagement
	if eng.ByDevice == nil {
		eng.ByDevice = map[string]int{}
	}
	if eng.ByLocation == nil {
		eng.ByLocation = map[string]int{}
	}
	respond.OK(w, statsResponse{
		PinID:        p.ID.Hex(),
		SaveCount:    p.SaveCount,
		CommentCount: p.CommentCount,
		Engagement:   eng,
	})
}
