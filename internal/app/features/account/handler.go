// internal/app/features/account/handler.go
package account

import (
	uierrors "github.com/dalemusser/pinhub/internal/app/features/errors"
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/dalemusser/pinhub/internal/app/system/metrics"
	"github.com/dalemusser/pinhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns registration, login, and the current-user endpoint.
type Handler struct {
	DB           *mongo.Database
	Log          *zap.Logger
	ErrLog       *uierrors.ErrorLogger
	Tokens       *auth.TokenManager
	LoginLimiter *ratelimit.LoginLimiter // optional; nil disables login throttling
	Metrics      metrics.Recorder
}

// NewHandler constructs a Handler. Metrics defaults to a no-op recorder.
func NewHandler(db *mongo.Database, tokens *auth.TokenManager, limiter *ratelimit.LoginLimiter, rec metrics.Recorder, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Handler{
		DB:           db,
		Log:          logger,
		ErrLog:       errLog,
		Tokens:       tokens,
		LoginLimiter: limiter,
		Metrics:      rec,
	}
}
