package server

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every endpoint writes
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
}

// JSONResponse writes an arbitrary payload with the given status code
func JSONResponse(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// SuccessResponse writes a success envelope
func SuccessResponse(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	JSONResponse(w, statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse writes an error envelope. Details carries server-side
// diagnostics and stays empty for validation errors.
func ErrorResponse(w http.ResponseWriter, statusCode int, message, details string) {
	JSONResponse(w, statusCode, Response{
		Error:   message,
		Details: details,
	})
}
