// internal/app/features/boards/boards.go
package boards

import (
	"context"
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/policy/boardpolicy"
	boardstore "github.com/dalemusser/pinhub/internal/app/store/boards"
	"github.com/dalemusser/pinhub/internal/app/store/cascade"
	pinstore "github.com/dalemusser/pinhub/internal/app/store/pins"
	"github.com/dalemusser/pinhub/internal/app/store/queries/feedqueries"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/formutil"
	"github.com/dalemusser/pinhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/pinhub/internal/app/system/inputval"
	"github.com/dalemusser/pinhub/internal/app/system/normalize"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/app/system/txn"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errBadPrivacy = apperr.ValidationFields("Validation failed.", map[string]string{
	"privacy": "Privacy must be one of: public, private, secret.",
})

// boardInput is shared by create and update. IsPrivate is the older
// boolean form; Privacy wins when both are sent.
type boardInput struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=100" label:"Name"`
	Description *string `json:"description" validate:"omitnil,max=500" label:"Description"`
	Category    *string `json:"category" validate:"omitnil,max=50" label:"Category"`
	Privacy     *string `json:"privacy"`
	IsPrivate   *bool   `json:"is_private"`
}

func (in *boardInput) clean() {
	if in.Name != nil {
		s := normalize.Name(htmlsanitize.PlainText(*in.Name))
		in.Name = &s
	}
	if in.Description != nil {
		s := htmlsanitize.PlainText(*in.Description)
		in.Description = &s
	}
	if in.Category != nil {
		s := normalize.Category(htmlsanitize.PlainText(*in.Category))
		in.Category = &s
	}
}

// privacy resolves the requested privacy. It returns nil when the input
// names none.
func (in *boardInput) privacy() (*models.Privacy, error) {
	switch {
	case in.Privacy != nil:
		p, ok := models.ParsePrivacy(*in.Privacy)
		if !ok {
			return nil, errBadPrivacy
		}
		return &p, nil
	case in.IsPrivate != nil:
		p := models.PrivacyFromLegacy(*in.IsPrivate)
		return &p, nil
	}
	return nil, nil
}

func (h *Handler) readInput(w http.ResponseWriter, r *http.Request) (boardInput, *models.Privacy, error) {
	var in boardInput
	if err := respond.Decode(w, r, &in); err != nil {
		return in, nil, err
	}
	in.clean()
	if err := inputval.Validate(in).Err(); err != nil {
		return in, nil, err
	}
	priv, err := in.privacy()
	return in, priv, err
}

// loadBoard fetches the board named by the {id} URL parameter.
func (h *Handler) loadBoard(ctx context.Context, r *http.Request) (*models.Board, error) {
	id, err := formutil.PathID(r, "id", "board")
	if err != nil {
		return nil, err
	}
	return boardstore.New(h.DB).GetByID(ctx, id)
}

// ServeList handles GET /api/boards: boards the caller owns or collaborates on.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list boards")
	defer cancel()

	items, total, err := boardstore.New(h.DB).ListForUser(ctx, authz.UserID(r), pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, paging.NewPage(items, total, pg))
}

// HandleCreate handles POST /api/boards.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, priv, err := h.readInput(w, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if in.Name == nil || *in.Name == "" {
		h.ErrLog.Write(w, r, apperr.ValidationFields("Validation failed.", map[string]string{"name": "Name is required."}))
		return
	}
	b := models.Board{Name: *in.Name, Owner: authz.UserID(r), Privacy: models.PrivacyPublic}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Category != nil {
		b.Category = *in.Category
	}
	if priv != nil {
		b.Privacy = *priv
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create board")
	defer cancel()

	var created models.Board
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		if created, err = boardstore.New(h.DB).Create(ctx, b); err != nil {
			return err
		}
		return userstore.New(h.DB).BumpCounter(ctx, b.Owner, userstore.CounterBoards, 1)
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("board created",
		zap.String("board_id", created.ID.Hex()),
		zap.String("user_id", b.Owner.Hex()),
		zap.String("privacy", string(created.Privacy)))
	respond.Created(w, created)
}

// ServeBoard handles GET /api/boards/{id}.
func (h *Handler) ServeBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get board")
	defer cancel()

	b, err := h.loadBoard(ctx, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := boardpolicy.View(r, b); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, b)
}

// HandleUpdate handles PUT /api/boards/{id}. A privacy change is applied to
// the board's pins in the same transaction.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, priv, err := h.readInput(w, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update board")
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

	upd := boardstore.Update{Name: in.Name, Description: in.Description, Category: in.Category, Privacy: priv}
	var updated *models.Board
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		if updated, err = boardstore.New(h.DB).Update(ctx, b.ID, upd); err != nil {
			return err
		}
		if priv != nil && *priv != b.Privacy {
			return pinstore.New(h.DB).SetBoardVisibility(ctx, b.ID, *priv)
		}
		return nil
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, updated)
}

type deleteResponse struct {
	Message     string `json:"message"`
	DeletedPins int64  `json:"deleted_pins"`
}

// HandleDelete handles DELETE /api/boards/{id}. The board's pins and their
// comments are deleted with it, and every affected user's counters are
// brought down to match.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete board")
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

	var deleted int64
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		n, err := cascade.DeleteBoards(ctx, h.DB, []primitive.ObjectID{b.ID})
		deleted = n
		if err != nil {
			return err
		}
		return userstore.New(h.DB).DecrementCounters(ctx, userstore.CounterBoards, map[primitive.ObjectID]int{b.Owner: 1})
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("board deleted",
		zap.String("board_id", b.ID.Hex()),
		zap.String("user_id", b.Owner.Hex()),
		zap.Int64("pins", deleted))
	respond.OK(w, deleteResponse{Message: "Board deleted.", DeletedPins: deleted})
}

// ServePins handles GET /api/boards/{id}/pins.
func (h *Handler) ServePins(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "board pins")
	defer cancel()

	b, err := h.loadBoard(ctx, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := boardpolicy.View(r, b); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	res, err := feedqueries.ByBoard(ctx, h.DB, b.ID, pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, paging.NewPage(res.Items, res.Total, pg))
}
