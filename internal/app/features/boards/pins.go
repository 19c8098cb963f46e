// internal/app/features/boards/pins.go
package boards

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/pinhub/internal/app/policy/boardpolicy"
	boardstore "github.com/dalemusser/pinhub/internal/app/store/boards"
	pinstore "github.com/dalemusser/pinhub/internal/app/store/pins"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/formutil"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/app/system/txn"
	"go.uber.org/zap"
)

var (
	errNotPinOwner = apperr.AccessDenied("Only the pin owner can move it.")
	errRemovePin   = apperr.Validation("A pin always belongs to one board. Move it to another board or delete it instead.")
)

type addPinInput struct {
	Pin string `json:"pin"`
}

type movedResponse struct {
	Message string `json:"message"`
	PinID   string `json:"pin_id"`
	BoardID string `json:"board_id"`
}

// HandleAddPin handles POST /api/boards/{id}/pins. The pin leaves its
// current board and takes on this board's visibility.
func (h *Handler) HandleAddPin(w http.ResponseWriter, r *http.Request) {
	var in addPinInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	pinID, err := formutil.ParseID(strings.TrimSpace(in.Pin), "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "move pin")
	defer cancel()

	b, err := h.loadBoard(ctx, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := boardpolicy.AddPin(r, b); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	p, err := pinstore.New(h.DB).GetByID(ctx, pinID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if !authz.IsSelf(r, p.Owner) {
		h.ErrLog.Write(w, r, errNotPinOwner)
		return
	}

	resp := movedResponse{Message: "Pin moved.", PinID: p.ID.Hex(), BoardID: b.ID.Hex()}
	if p.Board == b.ID {
		resp.Message = "Pin is already on this board."
		respond.OK(w, resp)
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		boards := boardstore.New(h.DB)
		if err := boards.PullPin(ctx, p.ID); err != nil {
			return err
		}
		if err := boards.AddPin(ctx, b.ID, p.ID); err != nil {
			return err
		}
		return pinstore.New(h.DB).MoveToBoard(ctx, p.ID, b.ID, b.Privacy)
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("pin moved",
		zap.String("pin_id", p.ID.Hex()),
		zap.String("from_board", p.Board.Hex()),
		zap.String("to_board", b.ID.Hex()))
	respond.OK(w, resp)
}

// HandleRemovePin handles DELETE /api/boards/{id}/pins/{pinID}. Pins cannot
// be left without a board, so this only reports how to proceed.
func (h *Handler) HandleRemovePin(w http.ResponseWriter, r *http.Request) {
	if _, err := formutil.PathID(r, "id", "board"); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if _, err := formutil.PathID(r, "pinID", "pin"); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.ErrLog.Write(w, r, errRemovePin)
}
