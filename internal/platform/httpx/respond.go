// Package httpx provides the JSON response envelope shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError carries field-level validation feedback.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// JSON writes an arbitrary payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// OKMessage writes a success envelope carrying only a message.
func OKMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: true, Message: message})
}

// Fail writes a failure envelope.
func Fail(w http.ResponseWriter, status int, errText string) {
	JSON(w, status, Envelope{Success: false, Error: errText})
}

// FailValidation writes a 400 with the structured details array.
func FailValidation(w http.ResponseWriter, details []FieldError) {
	JSON(w, http.StatusBadRequest, Envelope{
		Success: false,
		Error:   "validation failed",
		Details: details,
	})
}

// DecodeJSON decodes the request body into target.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
