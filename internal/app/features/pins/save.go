// internal/app/features/pins/save.go
package pins

import (
	"net/http"

	pinstore "github.com/dalemusser/pinhub/internal/app/store/pins"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/formutil"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type saveResponse struct {
	Saved     bool `json:"saved"`
	SaveCount int  `json:"save_count"`
}

// HandleSave handles POST /api/pins/{id}/save. Saving a pin the caller has
// already saved is a 409.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uid := authz.UserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "save pin")
	defer cancel()

	if _, err := h.loadViewable(ctx, r, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	n, err := pinstore.New(h.DB).Save(ctx, id, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Metrics.PinSaved()
	h.Log.Debug("pin saved", zap.String("pin_id", id.Hex()), zap.String("user_id", uid.Hex()))
	respond.OK(w, saveResponse{Saved: true, SaveCount: n})
}

// HandleUnsave handles DELETE /api/pins/{id}/save. Unsaving a pin that was
// not saved succeeds without change.
func (h *Handler) HandleUnsave(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uid := authz.UserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "unsave pin")
	defer cancel()

	n, err := pinstore.New(h.DB).Unsave(ctx, id, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Metrics.PinUnsaved()
	respond.OK(w, saveResponse{Saved: false, SaveCount: n})
}
