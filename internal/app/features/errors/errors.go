// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/dalemusser/dormhub/internal/app/system/inputval"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"go.uber.org/zap"
)

// RenderBadRequest answers 400 with msg and optional details.
func RenderBadRequest(w http.ResponseWriter, msg string, details ...string) {
	respond.Error(w, http.StatusBadRequest, msg, details...)
}

// RenderInvalid answers 422 with every failed validation message.
func RenderInvalid(w http.ResponseWriter, res *inputval.Result) {
	respond.Error(w, http.StatusUnprocessableEntity, res.First(), res.Messages()...)
}

// RenderUnauthorized answers 401.
func RenderUnauthorized(w http.ResponseWriter) {
	respond.Error(w, http.StatusUnauthorized, "sign in required")
}

// RenderForbidden answers 403. An empty msg uses a generic message.
func RenderForbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "you do not have permission to do this"
	}
	respond.Error(w, http.StatusForbidden, msg)
}

// RenderNotFound answers 404.
func RenderNotFound(w http.ResponseWriter, what string) {
	respond.Error(w, http.StatusNotFound, what+" not found")
}

// RenderConflict answers 409 with msg and optional details.
func RenderConflict(w http.ResponseWriter, msg string, details ...string) {
	respond.Error(w, http.StatusConflict, msg, details...)
}

// ErrorLogger logs a failure with request context and then answers the
// client with a safe message.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger writing to logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fs := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if u, ok := auth.CurrentUser(r); ok {
		fs = append(fs, zap.String("user_id", u.ID), zap.String("role", u.Role))
	}
	return fs
}

// LogServerError logs at error level and answers 500 with userMsg.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	if e != nil && e.Log != nil {
		e.Log.Error(logMsg, e.fields(r, err)...)
	}
	if userMsg == "" {
		userMsg = "internal error"
	}
	respond.Error(w, http.StatusInternalServerError, userMsg)
}

// LogBadRequest logs at warn level and answers 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	if e != nil && e.Log != nil {
		e.Log.Warn(logMsg, e.fields(r, err)...)
	}
	RenderBadRequest(w, userMsg)
}
