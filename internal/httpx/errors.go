// Package httpx carries the gateway's API error taxonomy and response helpers.
// Error codes are stable strings; HTTP statuses are derived from them only at
// the boundary so inner components never deal in status codes.
package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// Code identifies an API error category.
type Code string

const (
	CodeBadRequest              Code = "BAD_REQUEST"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeForbidden               Code = "FORBIDDEN"
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"
	CodeNotFound                Code = "NOT_FOUND"
	CodeNotUnique               Code = "NOT_UNIQUE"
	CodeRateLimited             Code = "RATE_LIMITED"
	CodeTenantNotFound          Code = "TENANT_NOT_FOUND"
	CodeInternal                Code = "INTERNAL_SERVER_ERROR"
)

// Status returns the HTTP status for the code. Unknown codes map to 500.
func (c Code) Status() int {
	switch c {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeInsufficientPermissions, CodeTenantNotFound:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotUnique:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed API error that survives to the HTTP boundary.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// E returns a typed API error.
func E(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

type errorBody struct {
	Success   bool        `json:"success"`
	Error     errorDetail `json:"error"`
	RequestID string      `json:"requestId,omitempty"`
}

type errorDetail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// WriteError writes err as a JSON error response. Typed errors keep their code
// and message; anything else is logged with the request id and reported as an
// internal error with no detail beyond the correlation id.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := RequestIDFrom(r.Context())

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		log.Printf("internal error (request_id=%s): %v", reqID, err)
		apiErr = E(CodeInternal, "internal server error")
	}

	status := apiErr.Code.Status()
	if status >= http.StatusInternalServerError {
		log.Printf("request failed (request_id=%s): %s", reqID, apiErr.Error())
	}

	WriteJSON(w, status, errorBody{
		Success:   false,
		Error:     errorDetail{Code: apiErr.Code, Message: apiErr.Message},
		RequestID: reqID,
	})
}

type dataBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// WriteData writes v inside the standard success envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, dataBody{Success: true, Data: v})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
