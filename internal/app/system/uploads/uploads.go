// Package uploads stores user-supplied images and returns their public URL.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes is the upload cap when none is configured (10 MiB).
const DefaultMaxBytes int64 = 10 << 20

var (
	ErrNoFile      = apperr.Validation("No image was uploaded.")
	ErrNotAnImage  = apperr.Validation("Only image files can be uploaded.")
	ErrEmptyUpload = apperr.Validation("The uploaded file is empty.")
)

// Store is the waffle storage backend uploads are written to. Production
// uses storage.Local under the configured upload directory.
type Store = storage.Store

// Result describes a stored upload.
type Result struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	FileName    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Uploader validates and stores images.
type Uploader struct {
	store    Store
	maxBytes int64
	now      func() time.Time
}

// New creates an Uploader. maxBytes <= 0 uses DefaultMaxBytes.
func New(store Store, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{store: store, maxBytes: maxBytes, now: time.Now}
}

// MaxBytes returns the per-file limit.
func (u *Uploader) MaxBytes() int64 { return u.maxBytes }

func (u *Uploader) tooLarge() error {
	return apperr.Validation(fmt.Sprintf("Image must be at most %d MB.", u.maxBytes>>20))
}

// SaveImage reads r, checks that the content is an image within the size
// limit, and stores it as pins/YYYY/MM/<uuid8>-<name>.
func (u *Uploader) SaveImage(ctx context.Context, filename string, r io.Reader) (Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Result{}, ErrEmptyUpload
	}
	if int64(len(data)) > u.maxBytes {
		return Result{}, u.tooLarge()
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Result{}, ErrNotAnImage
	}

	name := sanitizeFilename(filename)
	if ext := mt.Extension(); ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ext
	}
	now := u.now().UTC()
	p := fmt.Sprintf("pins/%04d/%02d/%s-%s", now.Year(), now.Month(), uuid.New().String()[:8], name)

	if err := u.store.Put(ctx, p, bytes.NewReader(data), &storage.PutOptions{ContentType: mt.String()}); err != nil {
		return Result{}, fmt.Errorf("store upload: %w", err)
	}
	return Result{
		URL:         u.store.URL(p),
		Path:        p,
		FileName:    filename,
		Size:        int64(len(data)),
		ContentType: mt.String(),
	}, nil
}

// Discard removes a stored upload, used when the write that referenced it
// fails. An upload that is already gone is not an error.
func (u *Uploader) Discard(ctx context.Context, res Result) error {
	if res.Path == "" {
		return nil
	}
	if err := u.store.Delete(ctx, res.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// NewLocal opens the on-disk store rooted at dir and served under urlPrefix.
func NewLocal(dir, urlPrefix string) (*storage.Local, error) {
	return storage.NewLocal(storage.LocalConfig{
		BasePath: dir,
		BaseURL:  "/" + strings.Trim(urlPrefix, "/"),
	})
}

// FromRequest stores the multipart file in field. It returns ErrNoFile when
// the request carries no such part.
func (u *Uploader) FromRequest(w http.ResponseWriter, r *http.Request, field string) (Result, error) {
	if err := u.ParseForm(w, r); err != nil {
		return Result{}, err
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return Result{}, ErrNoFile
		}
		return Result{}, apperr.Validation("Upload could not be read.")
	}
	defer f.Close()
	return u.SaveImage(r.Context(), hdr.Filename, f)
}

// ParseForm parses a multipart body, bounded by the file limit plus room
// for the other form fields.
func (u *Uploader) ParseForm(w http.ResponseWriter, r *http.Request) error {
	if r.MultipartForm != nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes+(1<<20))
	if err := r.ParseMultipartForm(u.maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return u.tooLarge()
		}
		return apperr.Validation("Request must be multipart/form-data.")
	}
	return nil
}

// IsMultipart reports whether r carries a multipart/form-data body.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with '_', capping the length at 100 while keeping the extension.
func sanitizeFilename(filename string) string {
	filename = path.Base(filepath.ToSlash(filename))
	if filename == "." || filename == "/" {
		filename = ""
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	if len(strings.Trim(string(result), "._")) == 0 {
		return "image"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}
