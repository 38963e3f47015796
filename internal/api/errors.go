package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes carried in the response body alongside the HTTP status.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeInternal     = "internal"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
)

// APIError is the machine-readable error the compass client matches on.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope every error body uses.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// writeJSON writes data as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}

// writeError writes a structured error body with the given status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message}})
}
