// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/store/cascade"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/pinhub/internal/app/system/inputval"
	"github.com/dalemusser/pinhub/internal/app/system/normalize"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/app/system/txn"
	"go.uber.org/zap"
)

// updateInput is the PUT /api/profile body. Absent fields are left alone;
// an empty avatar_url or website clears it.
type updateInput struct {
	Username  *string `json:"username" validate:"omitnil,username" label:"Username"`
	Bio       *string `json:"bio" validate:"omitnil,max=500" label:"Bio"`
	AvatarURL *string `json:"avatar_url" validate:"omitnil,max=2048" label:"Avatar URL"`
	Location  *string `json:"location" validate:"omitnil,max=100" label:"Location"`
	Website   *string `json:"website" validate:"omitnil,max=2048" label:"Website"`
}

func (in *updateInput) clean() {
	plain := func(p **string) {
		if *p != nil {
			s := htmlsanitize.PlainText(**p)
			*p = &s
		}
	}
	trim := func(p **string) {
		if *p != nil {
			s := normalize.QueryParam(**p)
			*p = &s
		}
	}
	if in.Username != nil {
		s := normalize.Username(*in.Username)
		in.Username = &s
	}
	plain(&in.Bio)
	plain(&in.Location)
	trim(&in.AvatarURL)
	trim(&in.Website)
}

func (in updateInput) validate() error {
	if err := inputval.Validate(in).Err(); err != nil {
		return err
	}
	if in.AvatarURL != nil && *in.AvatarURL != "" && !inputval.IsValidImageRef(*in.AvatarURL) {
		msg := "Avatar URL must be an http(s) URL or an uploaded image path."
		return apperr.ValidationFields(msg, map[string]string{"avatar_url": msg})
	}
	if in.Website != nil && *in.Website != "" && !inputval.IsValidHTTPURL(*in.Website) {
		msg := "Website must be a valid http(s) URL."
		return apperr.ValidationFields(msg, map[string]string{"website": msg})
	}
	return nil
}

// ServeProfile handles GET /api/profile: the caller's full account with
// effective settings.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get profile")
	defer cancel()

	u, err := userstore.New(h.DB).GetByID(ctx, authz.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, u.Self())
}

// HandleUpdate handles PUT /api/profile.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.clean()
	if err := in.validate(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	uid := authz.UserID(r)
	u, err := userstore.New(h.DB).UpdateProfile(ctx, uid, userstore.ProfileUpdate{
		Username:  in.Username,
		Bio:       in.Bio,
		AvatarURL: in.AvatarURL,
		Location:  in.Location,
		Website:   in.Website,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if in.Username != nil {
		h.Log.Info("username changed", zap.String("user_id", uid.Hex()), zap.String("username", u.Username))
	}
	respond.OK(w, u.Self())
}

type deleteResponse struct {
	Message string `json:"message"`
	cascade.UserResult
}

// HandleDelete handles DELETE /api/profile. The account goes together with
// its boards, pins, and comments; other users' references to it are pulled.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete account")
	defer cancel()

	uid := authz.UserID(r)
	var res cascade.UserResult
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		res, err = cascade.DeleteUser(ctx, h.DB, uid)
		return err
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("account deleted",
		zap.String("user_id", uid.Hex()),
		zap.Int("boards", res.Boards),
		zap.Int64("pins", res.Pins),
		zap.Int("comments", res.Comments))
	respond.OK(w, deleteResponse{Message: "Account deleted.", UserResult: res})
}
