// internal/app/features/account/account.go
package account

import (
	"errors"
	"net/http"
	"time"

	loginstore "github.com/dalemusser/pinhub/internal/app/store/logins"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/dalemusser/pinhub/internal/app/system/authutil"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/inputval"
	"github.com/dalemusser/pinhub/internal/app/system/normalize"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/app/system/ratelimit"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is deliberately the same for unknown email and bad password.
var ErrInvalidCredentials = apperr.Auth("Invalid credentials.")

type registerInput struct {
	Username string `json:"username" validate:"required,username" label:"Username"`
	Email    string `json:"email" validate:"required,email,max=254" label:"Email"`
	Password string `json:"password" validate:"required,min=6,max=72" label:"Password"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// authResponse is the body of a successful register or login.
type authResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      models.SelfView `json:"user"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Username = normalize.Username(in.Username)
	in.Email = normalize.Email(in.Email)

	if err := inputval.Validate(in).Err(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "register")
	defer cancel()

	u, err := userstore.New(h.DB).Create(ctx, models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Metrics.UserRegistered()
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("username", u.Username))

	h.writeToken(w, r, http.StatusCreated, u)
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Email = normalize.Email(in.Email)
	if err := inputval.Validate(in).Err(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	if h.LoginLimiter != nil {
		if ok, reason, retry := h.LoginLimiter.Check(r, in.Email); !ok {
			h.Log.Warn("login rate limited",
				zap.String("ip", ratelimit.ClientIP(r)),
				zap.String("email", in.Email))
			ratelimit.WriteTooMany(w, reason, retry)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	users := userstore.New(h.DB)
	u, err := users.GetByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, err)
		return
	}
	var hash string
	if u != nil {
		hash = u.PasswordHash
	}
	if !authutil.CheckUserPassword(in.Password, hash, u != nil) {
		h.Metrics.LoginFailed()
		h.ErrLog.Write(w, r, ErrInvalidCredentials)
		return
	}

	if h.LoginLimiter != nil {
		h.LoginLimiter.ResetEmail(in.Email)
	}
	if err := users.RecordLogin(ctx, u.ID); err != nil {
		// the login itself succeeded; counters are best effort
		h.Log.Warn("record login failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	} else if fresh, err := users.GetByID(ctx, u.ID); err == nil {
		u = fresh
	}
	if err := loginstore.New(h.DB).CreateFrom(ctx, r, u.ID); err != nil {
		h.Log.Warn("login history write failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}

	h.writeToken(w, r, http.StatusOK, *u)
}

// ServeLogins handles GET /api/auth/logins: the caller's recent sign-ins.
func (h *Handler) ServeLogins(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login history")
	defer cancel()

	recs, total, err := loginstore.New(h.DB).ListByUser(ctx, authz.UserID(r), pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, paging.NewPage(recs, total, pg))
}

// ServeMe handles GET /api/auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apperr.Auth(auth.ErrMissingToken.Error()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "auth me")
	defer cancel()

	u, err := userstore.New(h.DB).GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, u.Self())
}

func (h *Handler) writeToken(w http.ResponseWriter, r *http.Request, status int, u models.User) {
	tok, exp, err := h.Tokens.Issue(auth.SessionUser{
		ID:       u.ID.Hex(),
		Username: u.Username,
		Email:    u.Email,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "issue token failed", err)
		return
	}
	respond.JSON(w, status, authResponse{Token: tok, ExpiresAt: exp, User: u.Self()})
}
