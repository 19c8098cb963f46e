package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the authenticated identity injected into r.Context().
type SessionUser struct {
	ID       string
	Username string
	Email    string
}

// UserFetcher loads fresh user data for an authenticated request.
// It returns nil when the user no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	authErrKey     ctxKey = "authErr"
)

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u directly, bypassing token verification.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// TokenFromRequest reads the bearer token from "Authorization: Bearer <t>"
// or, for older clients, the "x-auth-token" header.
func TokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return strings.TrimSpace(r.Header.Get("x-auth-token"))
}

// LoadUser injects the user into context when the request carries a valid token.
// Requests without a token, or with a bad one, continue anonymously; the
// verification error is remembered so RequireSignedIn can report it.
func (tm *TokenManager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := TokenFromRequest(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := tm.Verify(raw)
		if err != nil {
			next.ServeHTTP(w, withAuthErr(r, err))
			return
		}

		u := &SessionUser{ID: claims.UserID, Username: claims.Username, Email: claims.Email}
		if tm.fetcher != nil {
			fresh := tm.fetcher.FetchUser(r.Context(), claims.UserID)
			if fresh == nil {
				tm.log.Debug("token for missing user", zap.String("user_id", claims.UserID))
				next.ServeHTTP(w, withAuthErr(r, ErrInvalidToken))
				return
			}
			u = fresh
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadUser).
// Otherwise it responds 401 with a JSON error body.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		err, _ := r.Context().Value(authErrKey).(error)
		if err == nil {
			err = ErrMissingToken
		}
		writeUnauthorized(w, err.Error())
	})
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func withAuthErr(r *http.Request, err error) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authErrKey, err))
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    apperr.KindAuth.Code(),
			"message": msg,
		},
	})
}
