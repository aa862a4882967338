package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. The status comes from the error category (statusFor)
//  4. The technical error is logged with the request id
//  5. The client receives core.MapError's message, action and code as JSON

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/daoninhthai/crm/internal/core"
	"github.com/daoninhthai/crm/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, core.ErrIO):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err server-side and writes the user-facing message.
// Client errors are logged at info, everything else at error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	if status == http.StatusServiceUnavailable && errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "30")
	}

	// Client errors expose the precise reason; server errors never do.
	detail := userMsg.Message
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity ||
		status == http.StatusNotFound || status == http.StatusConflict {
		detail = err.Error()
	}
	writeJSONStatus(w, status, ErrorResponse{
		Error:   detail,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// badRequest rejects malformed input that never reached the service.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, field, msg string) {
	s.respondError(w, r, &core.ValidationError{Field: field, Message: msg})
}

// writeJSON encodes v as JSON with a 200 status.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged
// since the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(context.Background()).Error("json encode error", "error", err)
	}
}
