// internal/app/features/profile/follow.go
package profile

import (
	"context"
	"net/http"

	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/app/system/txn"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type followResponse struct {
	Following     bool   `json:"following"`
	Username      string `json:"username"`
	FollowerCount int    `json:"follower_count"`
}

// HandleFollow handles POST /api/profile/{username}/follow. Both sides of
// the edge are written in one transaction and the target's activity score
// is recomputed for the new follower count.
func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "follow")
	defer cancel()

	users := userstore.New(h.DB)
	target, err := users.GetByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	actor := authz.UserID(r)

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := users.AddFollowing(ctx, actor, target.ID); err != nil {
			return err
		}
		if err := users.AddFollower(ctx, target.ID, actor); err != nil {
			return err
		}
		return users.Recompute(ctx, target.ID)
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Metrics.UserFollowed()
	h.Log.Info("user followed",
		zap.String("user_id", actor.Hex()),
		zap.String("target_id", target.ID.Hex()))
	h.writeFollowState(ctx, w, r, target.ID, true)
}

// HandleUnfollow handles POST /api/profile/{username}/unfollow. Unfollowing
// someone the caller does not follow succeeds without changes.
func (h *Handler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "unfollow")
	defer cancel()

	users := userstore.New(h.DB)
	target, err := users.GetByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	actor := authz.UserID(r)
	was := target.Followers.Contains(actor)

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := users.RemoveFollowing(ctx, actor, target.ID); err != nil {
			return err
		}
		if err := users.RemoveFollower(ctx, target.ID, actor); err != nil {
			return err
		}
		return users.Recompute(ctx, target.ID)
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if was {
		h.Metrics.UserUnfollowed()
		h.Log.Info("user unfollowed",
			zap.String("user_id", actor.Hex()),
			zap.String("target_id", target.ID.Hex()))
	}
	h.writeFollowState(ctx, w, r, target.ID, false)
}

func (h *Handler) writeFollowState(ctx context.Context, w http.ResponseWriter, r *http.Request, id primitive.ObjectID, following bool) {
	target, err := userstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, followResponse{
		Following:     following,
		Username:      target.Username,
		FollowerCount: target.Followers.Len(),
	})
}
