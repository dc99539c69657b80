package dto

import (
	"net/http"
	"strings"
)

// Error codes produced by the HTTP layer itself. Domain errors keep their own
// code (for example INSUFFICIENT_STOCK) and are classified by GetHTTPStatus.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeBodyTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:          http.StatusInternalServerError,
	"DUPLICATE_ORDER_NUMBER": http.StatusInternalServerError,
	"PASSWORD_HASH_ERROR":    http.StatusInternalServerError,

	// Validation and business rules -> 400
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_STATE":           http.StatusBadRequest,
	"INSUFFICIENT_STOCK":      http.StatusBadRequest,
	"INVALID_CREDENTIALS":     http.StatusBadRequest,
	"INVALID_TOKEN":           http.StatusBadRequest,
	"ALREADY_EXISTS":          http.StatusBadRequest,
	"USER_EXISTS":             http.StatusBadRequest,
	"EMAIL_TAKEN":             http.StatusBadRequest,
	"NO_ITEMS":                http.StatusBadRequest,
	"PRODUCT_NOT_FOUND":       http.StatusBadRequest,
	"CONCURRENT_MODIFICATION": http.StatusConflict,

	// Auth
	ErrCodeUnauthorized: http.StatusUnauthorized,
	"ACCOUNT_SUSPENDED": http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes not listed explicitly are domain validation failures
// (INVALID_PRICE, NO_IMAGES, ...) and map to 400; the empty code maps to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if code == "" {
		return http.StatusInternalServerError
	}
	if strings.HasSuffix(code, "_ERROR") {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// IsServerError reports whether a code is answered with a 5xx status
func IsServerError(code string) bool {
	return GetHTTPStatus(code) >= http.StatusInternalServerError
}
