// Package respond writes and reads JSON request/response bodies.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// Message writes {"message": msg} with 200.
func Message(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Decode reads a JSON body into dst. Unknown fields are ignored so older
// clients that send extra keys keep working. Malformed bodies yield a
// validation error.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || (mt != "application/json" && !strings.HasSuffix(mt, "+json")) {
			return apperr.Validation("Content-Type must be application/json.")
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("Request body is empty.")
		case errors.As(err, &maxErr):
			return apperr.Validation("Request body is too large.")
		default:
			return apperr.Validation("Request body is not valid JSON.")
		}
	}
	return nil
}
