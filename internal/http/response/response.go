// Package response writes the JSON envelopes shared by every API endpoint:
// {"success":true,"data":...} and {"success":false,"error":{...}}.
package response

import (
	"encoding/json"
	"net/http"
)

// Error codes surfaced to API clients.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeSpam        = "SPAM_DETECTED"
	CodeServer      = "SERVER_ERROR"
	CodeRateLimited = "RATE_LIMITED"
	CodeNotFound    = "NOT_FOUND"
	CodeBadMethod   = "METHOD_NOT_ALLOWED"
)

// Envelope is the top-level response body.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request. Fields is only set for validation failures.
type ErrorBody struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// Success builds a success envelope.
func Success(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Failure builds an error envelope.
func Failure(code, message string) Envelope {
	return Envelope{Error: &ErrorBody{Message: message, Code: code}}
}

// FieldFailure builds a validation error envelope.
func FieldFailure(message string, fields map[string][]string) Envelope {
	return Envelope{Error: &ErrorBody{Message: message, Code: CodeValidation, Fields: fields}}
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, Failure(code, message))
}
