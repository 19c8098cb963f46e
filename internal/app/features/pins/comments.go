// internal/app/features/pins/comments.go
package pins

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/policy/boardpolicy"
	commentstore "github.com/dalemusser/pinhub/internal/app/store/comments"
	pinstore "github.com/dalemusser/pinhub/internal/app/store/pins"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/formutil"
	"github.com/dalemusser/pinhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/pinhub/internal/app/system/inputval"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/app/system/txn"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrCommentsOff      = apperr.AccessDenied("The owner of this pin has turned off comments.")
	ErrCannotDelComment = apperr.AccessDenied("Only the comment's author or the pin owner can delete it.")
)

type commentInput struct {
	Text string `json:"text" validate:"required,max=500" label:"Comment"`
}

// ServeComments handles GET /api/pins/{id}/comments, newest first.
func (h *Handler) ServeComments(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list comments")
	defer cancel()

	if _, err := h.loadViewable(ctx, r, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	items, total, err := commentstore.New(h.DB).ListByPin(ctx, id, pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, paging.NewPage(items, total, pg))
}

// HandleCreateComment handles POST /api/pins/{id}/comments.
func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in commentInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Text = htmlsanitize.PlainText(in.Text)
	if err := inputval.Validate(in).Err(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uid := authz.UserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create comment")
	defer cancel()

	p, err := h.loadViewable(ctx, r, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	users := userstore.New(h.DB)
	if p.Owner != uid {
		owner, err := users.GetByID(ctx, p.Owner)
		if err != nil && !errors.Is(err, userstore.ErrNotFound) {
			h.ErrLog.Write(w, r, err)
			return
		}
		if owner != nil && !owner.EffectiveSettings().Privacy.AllowComments {
			h.ErrLog.Write(w, r, ErrCommentsOff)
			return
		}
	}

	var created models.Comment
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		c, err := commentstore.New(h.DB).Create(ctx, models.Comment{Text: in.Text, Author: uid, Pin: p.ID})
		if err != nil {
			return err
		}
		if err := pinstore.New(h.DB).AdjustCommentCount(ctx, p.ID, 1); err != nil {
			return err
		}
		if err := users.BumpCounter(ctx, uid, userstore.CounterComments, 1); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Metrics.CommentCreated()

	if sums, err := users.Summaries(ctx, []primitive.ObjectID{uid}); err == nil && len(sums) == 1 {
		created.AuthorInfo = &sums[0]
	}
	respond.Created(w, created)
}

// HandleDeleteComment handles DELETE /api/pins/{id}/comments/{commentID}.
// The comment's author or the pin's owner may delete it.
func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	pinID, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	commentID, err := formutil.PathID(r, "commentID", "comment")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete comment")
	defer cancel()

	p, err := pinstore.New(h.DB).GetByID(ctx, pinID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	comments := commentstore.New(h.DB)
	c, err := comments.GetByID(ctx, commentID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if c.Pin != p.ID {
		h.ErrLog.Write(w, r, commentstore.ErrNotFound)
		return
	}
	if !boardpolicy.CanDeleteComment(r, c, p) {
		h.ErrLog.Write(w, r, ErrCannotDelComment)
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := comments.Delete(ctx, c.ID); err != nil {
			return err
		}
		if err := pinstore.New(h.DB).AdjustCommentCount(ctx, p.ID, -1); err != nil {
			return err
		}
		return userstore.New(h.DB).DecrementCounters(ctx, userstore.CounterComments, map[primitive.ObjectID]int{c.Author: 1})
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("comment deleted",
		zap.String("comment_id", c.ID.Hex()),
		zap.String("pin_id", p.ID.Hex()),
		zap.String("by", authz.UserID(r).Hex()))
	respond.Message(w, "Comment deleted.")
}
