// internal/app/features/errors/errors.go
// Package errors writes the JSON error and success bodies every API feature
// shares: {"message": "..."} with an HTTP status.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/noteku/internal/app/system/limits"
	"go.uber.org/zap"
)

// Body is the standard error response.
type Body struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg} with status.
func Message(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Body{Message: msg})
}

// BadRequest writes 400.
func BadRequest(w http.ResponseWriter, msg string) { Message(w, http.StatusBadRequest, msg) }

// Unauthorized writes 401.
func Unauthorized(w http.ResponseWriter, msg string) { Message(w, http.StatusUnauthorized, msg) }

// Forbidden writes 403.
func Forbidden(w http.ResponseWriter, msg string) { Message(w, http.StatusForbidden, msg) }

// NotFound writes 404.
func NotFound(w http.ResponseWriter, msg string) { Message(w, http.StatusNotFound, msg) }

// TooManyRequests writes 429.
func TooManyRequests(w http.ResponseWriter, msg string) { Message(w, http.StatusTooManyRequests, msg) }

// Internal logs err and writes 500 without leaking it.
func Internal(w http.ResponseWriter, log *zap.Logger, msg string, err error, fields ...zap.Field) {
	log.Error(msg, append(fields, zap.Error(err))...)
	Message(w, http.StatusInternalServerError, "something went wrong")
}

// ErrBadBody is returned by DecodeJSON for an unreadable or malformed body.
var ErrBadBody = errors.New("invalid request body")

// DecodeJSON decodes the request body into v. An empty body decodes to the
// zero value so handlers report missing fields instead of a parse error.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}

// Handler serves the router-level fallbacks.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	NotFound(w, "route not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Message(w, http.StatusMethodNotAllowed, "method not allowed")
}
