// internal/app/features/uploads/handler.go
package uploads

import (
	uierrors "github.com/dalemusser/pinhub/internal/app/features/errors"
	"github.com/dalemusser/pinhub/internal/app/system/uploads"
	"go.uber.org/zap"
)

// Handler accepts image uploads for use as pin images and avatars.
type Handler struct {
	Uploader *uploads.Uploader
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

func NewHandler(up *uploads.Uploader, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Uploader: up,
		Log:      logger,
		ErrLog:   errLog,
	}
}
