// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/dalemusser/pinhub/internal/app/features/errors"
	"github.com/dalemusser/pinhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the caller's own profile, public profiles, and the follow graph.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	Metrics metrics.Recorder
}

// NewHandler constructs a Handler bound to the given Mongo database and logger.
// A nil rec records nothing.
func NewHandler(db *mongo.Database, rec metrics.Recorder, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Handler{
		DB:      db,
		Log:     logger,
		ErrLog:  errLog,
		Metrics: rec,
	}
}
