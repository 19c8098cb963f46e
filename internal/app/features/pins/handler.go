// internal/app/features/pins/handler.go
package pins

import (
	uierrors "github.com/dalemusser/pinhub/internal/app/features/errors"
	"github.com/dalemusser/pinhub/internal/app/system/metrics"
	"github.com/dalemusser/pinhub/internal/app/system/uploads"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves pins, saves, engagement counters, and comments.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Uploader *uploads.Uploader // nil disables multipart image upload on create
	Metrics  metrics.Recorder
}

func NewHandler(db *mongo.Database, up *uploads.Uploader, rec metrics.Recorder, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		Uploader: up,
		Metrics:  rec,
	}
}
