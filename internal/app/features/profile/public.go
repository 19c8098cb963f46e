// internal/app/features/profile/public.go
package profile

import (
	"context"
	"net/http"
	"time"

	boardstore "github.com/dalemusser/pinhub/internal/app/store/boards"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrPrivateProfile is returned to callers who may not see a private profile.
var ErrPrivateProfile = apperr.AccessDenied("This profile is private.")

// publicView is another user's profile as seen by the caller. Activity
// fields are left out when the owner has turned show_activity off.
type publicView struct {
	ID             primitive.ObjectID `json:"id"`
	Username       string             `json:"username"`
	Profile        models.Profile     `json:"profile"`
	FollowerCount  int                `json:"follower_count"`
	FollowingCount int                `json:"following_count"`
	IsFollowing    bool               `json:"is_following"`
	IsSelf         bool               `json:"is_self"`

	Counters      *models.Counters `json:"counters,omitempty"`
	ActivityScore *float64         `json:"activity_score,omitempty"`
	Segment       models.Segment   `json:"segment,omitempty"`

	Boards    paging.Page[models.Board] `json:"boards"`
	CreatedAt time.Time                 `json:"created_at"`
}

// canSee applies profile_visibility: private profiles are visible to the
// owner and their followers only.
func canSee(r *http.Request, u *models.User) bool {
	viewer := authz.UserID(r)
	if !viewer.IsZero() && viewer == u.ID {
		return true
	}
	if u.EffectiveSettings().Privacy.ProfileVisibility != "private" {
		return true
	}
	return !viewer.IsZero() && u.Followers.Contains(viewer)
}

// loadVisible resolves {username} and applies canSee.
func (h *Handler) loadVisible(ctx context.Context, r *http.Request) (*models.User, error) {
	u, err := userstore.New(h.DB).GetByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		return nil, err
	}
	if !canSee(r, u) {
		return nil, ErrPrivateProfile
	}
	return u, nil
}

// ServePublic handles GET /api/profile/{username}.
func (h *Handler) ServePublic(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "public profile")
	defer cancel()

	u, err := h.loadVisible(ctx, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	viewer := authz.UserID(r)
	self := !viewer.IsZero() && viewer == u.ID

	boards, total, err := boardstore.New(h.DB).ListForProfile(ctx, u.ID, self, pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	v := publicView{
		ID:             u.ID,
		Username:       u.Username,
		Profile:        u.Profile,
		FollowerCount:  u.Followers.Len(),
		FollowingCount: u.Following.Len(),
		IsFollowing:    !viewer.IsZero() && u.Followers.Contains(viewer),
		IsSelf:         self,
		Boards:         paging.NewPage(boards, total, pg),
		CreatedAt:      u.CreatedAt,
	}
	if self || u.EffectiveSettings().Privacy.ShowActivity {
		counters, score := u.Counters, u.ActivityScore
		v.Counters = &counters
		v.ActivityScore = &score
		v.Segment = u.Segment
	}
	respond.OK(w, v)
}

// ServeFollowers handles GET /api/profile/{username}/followers.
func (h *Handler) ServeFollowers(w http.ResponseWriter, r *http.Request) {
	h.serveGraph(w, r, "followers", func(u *models.User) models.IDSet { return u.Followers })
}

// ServeFollowing handles GET /api/profile/{username}/following.
func (h *Handler) ServeFollowing(w http.ResponseWriter, r *http.Request) {
	h.serveGraph(w, r, "following", func(u *models.User) models.IDSet { return u.Following })
}

func (h *Handler) serveGraph(w http.ResponseWriter, r *http.Request, what string, list func(*models.User) models.IDSet) {
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, what)
	defer cancel()

	u, err := h.loadVisible(ctx, r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ids := list(u).Slice()
	total := int64(len(ids))

	start := pg.Skip()
	if start > total {
		start = total
	}
	end := start + int64(pg.Limit)
	if end > total {
		end = total
	}

	people, err := userstore.New(h.DB).Summaries(ctx, ids[start:end])
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, paging.NewPage(people, total, pg))
}
