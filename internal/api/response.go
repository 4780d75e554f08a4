package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Response represents the unified envelope format.
type Response struct {
	Result        string `json:"result"`
	Data          any    `json:"data,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	Details       any    `json:"details,omitempty"`
	CorrelationID string `json:"correlationId"`
}

// SuccessResponse creates a success response.
func SuccessResponse(data any, correlationID string) *Response {
	return &Response{
		Result:        "ok",
		Data:          data,
		CorrelationID: orNewID(correlationID),
	}
}

// ErrorResponse creates an error response.
func ErrorResponse(code, message string, details any, correlationID string) *Response {
	return &Response{
		Result:        "error",
		Code:          code,
		Message:       message,
		Details:       details,
		CorrelationID: orNewID(correlationID),
	}
}

// WriteSuccess writes a success envelope with a fresh correlation id.
func WriteSuccess(w http.ResponseWriter, data any) {
	writeResponse(w, http.StatusOK, SuccessResponse(data, ""))
}

// WriteError writes an error envelope with a fresh correlation id.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details any) {
	writeResponse(w, statusCode, ErrorResponse(code, message, details, ""))
}

func writeResponse(w http.ResponseWriter, statusCode int, response *Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Correlation-ID", response.CorrelationID)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func orNewID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
