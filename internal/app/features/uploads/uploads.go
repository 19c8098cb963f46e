// internal/app/features/uploads/uploads.go
package uploads

import (
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"go.uber.org/zap"
)

// ImageField is the multipart part that carries the file.
const ImageField = "image"

type uploadResponse struct {
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// HandleUpload handles POST /api/uploads. The stored image's relative URL
// can be used as a pin image_url or a profile avatar_url.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	res, err := h.Uploader.FromRequest(w, r, ImageField)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("image uploaded",
		zap.String("user_id", authz.UserID(r).Hex()),
		zap.String("path", res.Path),
		zap.Int64("size", res.Size),
		zap.String("content_type", res.ContentType))
	respond.Created(w, uploadResponse{URL: res.URL, Size: res.Size, ContentType: res.ContentType})
}
