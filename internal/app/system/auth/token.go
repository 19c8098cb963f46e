// internal/app/system/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken = errors.New("token is not valid")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingToken = errors.New("no token, authorization denied")
)

// Claims is the signed payload of a bearer token.
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time

	fetcher UserFetcher
	log     *zap.Logger
}

// NewTokenManager validates the secret and returns a manager.
// Tokens expire ttl after issue.
func NewTokenManager(secret, issuer string, ttl time.Duration, logger *zap.Logger) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("token secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
		log:    logger,
	}, nil
}

// SetUserFetcher makes LoadUser re-read the user on every request so deleted
// accounts and username changes take effect immediately.
func (tm *TokenManager) SetUserFetcher(f UserFetcher) {
	tm.fetcher = f
}

// TTL returns the token lifetime.
func (tm *TokenManager) TTL() time.Duration { return tm.ttl }

// Issue signs a token for u. It returns the token and its expiry.
func (tm *TokenManager) Issue(u SessionUser) (string, time.Time, error) {
	now := tm.now()
	exp := now.Add(tm.ttl)
	claims := Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a token. It returns ErrExpiredToken for
// expired tokens and ErrInvalidToken for anything else that fails.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
