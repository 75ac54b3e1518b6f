// Package httpx provides the uniform response envelope and error mapping
// used by every HTTP handler.
package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fasm-labs/fasm/internal/shared"
)

// Envelope is the body of every API response, success or failure.
type Envelope struct {
	TraceID string      `json:"trace_id"`
	Code    shared.Code `json:"code"`
	At      string      `json:"at"`
	Message string      `json:"message"`
	Data    any         `json:"data,omitempty"`
}

// JSON sends a success envelope with the given payload.
func JSON(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusOK, shared.CodeSuccess, shared.CodeSuccess.Message(), data)
}

// DecodeJSON decodes the JSON request body into target.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func write(w http.ResponseWriter, r *http.Request, status int, code shared.Code, message string, data any) {
	body := Envelope{
		TraceID: shared.TraceIDFromContext(r.Context()),
		Code:    code,
		At:      time.Now().Format(time.RFC3339),
		Message: message,
		Data:    data,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
