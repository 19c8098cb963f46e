// internal/app/features/boards/collaborators.go
package boards

import (
	"net/http"
	"strings"

	"github.com/dalemusser/pinhub/internal/app/policy/boardpolicy"
	boardstore "github.com/dalemusser/pinhub/internal/app/store/boards"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/formutil"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.uber.org/zap"
)

type collaboratorInput struct {
	Username string `json:"username"`
}

type collaboratorsResponse struct {
	BoardID       string               `json:"board_id"`
	Collaborators []models.UserSummary `json:"collaborators"`
}

func (h *Handler) collaboratorsResponse(w http.ResponseWriter, r *http.Request, b *models.Board) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "collaborator summaries")
	defer cancel()

	fresh, err := boardstore.New(h.DB).GetByID(ctx, b.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	people, err := userstore.New(h.DB).Summaries(ctx, fresh.Collaborators.Slice())
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, collaboratorsResponse{BoardID: b.ID.Hex(), Collaborators: people})
}

// HandleAddCollaborator handles POST /api/boards/{id}/collaborators.
func (h *Handler) HandleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	var in collaboratorInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	name := strings.TrimSpace(in.Username)
	if name == "" {
		h.ErrLog.Write(w, r, apperr.ValidationFields("Validation failed.", map[string]string{"username": "Username is required."}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add collaborator")
	defer cancel()

	b, err := h.loadBoard(ctx, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := boardpolicy.Edit(r, b); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uid, err := userstore.New(h.DB).IDByUsername(ctx, name)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := boardstore.New(h.DB).AddCollaborator(ctx, b.ID, uid); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("collaborator added",
		zap.String("board_id", b.ID.Hex()),
		zap.String("collaborator_id", uid.Hex()))
	h.collaboratorsResponse(w, r, b)
}

// HandleRemoveCollaborator handles DELETE /api/boards/{id}/collaborators/{userID}.
func (h *Handler) HandleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	uid, err := formutil.PathID(r, "userID", "user")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove collaborator")
	defer cancel()

	b, err := h.loadBoard(ctx, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := boardpolicy.Edit(r, b); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := boardstore.New(h.DB).RemoveCollaborator(ctx, b.ID, uid); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if b.Collaborators.Contains(uid) {
		h.Log.Info("collaborator removed",
			zap.String("board_id", b.ID.Hex()),
			zap.String("collaborator_id", uid.Hex()))
	}
	h.collaboratorsResponse(w, r, b)
}
