// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"go.uber.org/zap"
)

// body is the JSON error envelope: {"error": {...}}.
type body struct {
	Error payload `json:"error"`
}

type payload struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// ErrorLogger writes API errors and logs the unexpected ones.
// With Detail set (dev), 500 responses include the underlying error string.
type ErrorLogger struct {
	log    *zap.Logger
	Detail bool
}

// NewErrorLogger creates an ErrorLogger that logs through logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// Write maps err to a status and JSON body. Classified errors are written
// as-is; anything else is logged and collapsed to a generic 500.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	ae, classified := apperr.As(err)
	if !classified || ae.Kind == apperr.KindInternal {
		e.LogServerError(w, r, "request failed", err)
		return
	}
	respond.JSON(w, ae.Kind.Status(), body{Error: payload{
		Code:    ae.Kind.Code(),
		Message: ae.Message,
		Fields:  ae.Fields,
	}})
}

// LogServerError logs msg with request context and writes a 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if u, ok := auth.CurrentUser(r); ok {
		fields = append(fields, zap.String("user_id", u.ID))
	}
	e.log.Error(msg, fields...)

	p := payload{Code: apperr.KindInternal.Code(), Message: "Server error."}
	if e.Detail && err != nil {
		p.Detail = err.Error()
	}
	respond.JSON(w, http.StatusInternalServerError, body{Error: p})
}

// NotFound is the router's fallback for unknown routes.
func (e *ErrorLogger) NotFound(w http.ResponseWriter, r *http.Request) {
	e.Write(w, r, apperr.NotFound("Route not found."))
}

// MethodNotAllowed is the router's fallback for a known path with the wrong method.
func (e *ErrorLogger) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, body{Error: payload{
		Code:    "method_not_allowed",
		Message: "Method not allowed.",
	}})
}
