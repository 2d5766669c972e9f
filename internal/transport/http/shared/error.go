// Package shared centralizes translation of domain errors into the
// HTTP response envelope used by every guard endpoint.
package shared

import (
	"net/http"
	"strconv"

	"otpgate/internal/transport/http/json"
	dErrors "otpgate/pkg/domain-errors"
)

// SuccessResponse is the envelope for all 2xx bodies.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the envelope for all error bodies.
type ErrorResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	Message           string `json:"message"`
	Field             string `json:"field,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
	ResetFlow         bool   `json:"resetFlow,omitempty"`
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, data any, message string) {
	json.WriteJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// WriteError translates a domain error into the error envelope.
// Rate-limited and locked-out responses carry the Retry-After header so
// well-behaved clients can back off without parsing the body.
func WriteError(w http.ResponseWriter, err error) {
	domainErr, ok := dErrors.As(err)
	if !ok {
		json.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   string(dErrors.CodeInternal),
			Message: "internal error",
		})
		return
	}

	status := domainCodeToHTTPStatus(domainErr.Code)
	if status == http.StatusTooManyRequests && domainErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(domainErr.RetryAfter))
	}

	json.WriteJSON(w, status, ErrorResponse{
		Success:           false,
		Error:             string(domainErr.Code),
		Message:           domainErr.Message,
		Field:             domainErr.Field,
		RetryAfterSeconds: domainErr.RetryAfter,
		ResetFlow:         domainErr.ResetFlow,
	})
}

func domainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidCode, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeRateLimited, dErrors.CodeLockedOut:
		return http.StatusTooManyRequests
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeProviderFailure, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
