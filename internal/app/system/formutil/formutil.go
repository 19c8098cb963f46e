// Package formutil reads typed values from URL parameters and multipart
// form fields.
//
// Example usage:
//
//	pinID, err := formutil.PathID(r, "id", "pin")
//	if err != nil {
//		h.ErrLog.Write(w, r, err)
//		return
//	}
//	title := formutil.OptString(r, "title")
package formutil

import (
	"net/http"
	"strings"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PathID parses the chi URL parameter key as an ObjectID. what names the
// entity in the error message ("pin", "board").
func PathID(r *http.Request, key, what string) (primitive.ObjectID, error) {
	return ParseID(chi.URLParam(r, key), what)
}

// ParseID parses a hex ObjectID, returning a validation error when s is
// empty or malformed.
func ParseID(s, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("Invalid " + what + " id.")
	}
	return id, nil
}

// OptString returns a pointer to the trimmed form value for key, or nil when
// the field is absent. A present but empty field yields a pointer to "".
func OptString(r *http.Request, key string) *string {
	if r.Form == nil {
		_ = r.ParseForm()
	}
	vals, ok := r.Form[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	s := strings.TrimSpace(vals[0])
	return &s
}

// String returns the trimmed form value for key ("" when absent).
func String(r *http.Request, key string) string {
	if p := OptString(r, key); p != nil {
		return *p
	}
	return ""
}

// List returns the values for key. Repeated fields and comma-separated
// values are both accepted: tags=a&tags=b and tags=a,b give [a b].
// Returns nil when the field is absent.
func List(r *http.Request, key string) []string {
	if r.Form == nil {
		_ = r.ParseForm()
	}
	vals, ok := r.Form[key]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
