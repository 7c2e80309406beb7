package response

import (
	"encoding/json"
	"net/http"

	"github.com/vendorpay/vendorpay/provider"
)

// Response is a standardized API response structure
type Response struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a successful response with data
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	resp := Response{
		Code:    statusCode,
		Success: true,
		Message: message,
		Data:    data,
	}
	WriteJSON(w, statusCode, resp)
}

// Error writes an error response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := Response{
		Code:    statusCode,
		Success: false,
		Message: message,
	}

	if err != nil {
		resp.Error = err.Error()
	}

	WriteJSON(w, statusCode, resp)
}

// WriteJSON encodes a payload as JSON with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// StatusForCode maps a provider error code to an HTTP status
func StatusForCode(code provider.ErrorCode) int {
	switch code {
	case provider.ErrValidationRejected:
		return http.StatusBadRequest
	case provider.ErrNotFound:
		return http.StatusNotFound
	case provider.ErrInvalidStateTransition:
		return http.StatusConflict
	case provider.ErrSignatureInvalid, provider.ErrTimestampExpired:
		return http.StatusBadRequest
	case provider.ErrProcessorRejected:
		return http.StatusPaymentRequired
	case provider.ErrProcessorUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFrom writes an error response with the status mapped from the
// provider error code carried by err.
func ErrorFrom(w http.ResponseWriter, message string, err error) {
	Error(w, StatusForCode(provider.CodeOf(err)), message, err)
}
