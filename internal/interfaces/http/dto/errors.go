package dto

import "net/http"

// Transport error codes raised by the HTTP layer itself. Domain codes
// (UNBALANCED_ENTRY, PERIOD_CLOSED, ...) are returned unchanged.
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeUnavailable  = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,

	// Validation
	"INVALID_INPUT":        http.StatusBadRequest,
	"REQUIRED_FIELD":       http.StatusBadRequest,
	"INVALID_RIF":          http.StatusBadRequest,
	"INVALID_RATE":         http.StatusBadRequest,
	"INVALID_AMOUNT":       http.StatusBadRequest,
	"INVALID_ACCOUNT_CODE": http.StatusBadRequest,
	"INVALID_ACCOUNT_TYPE": http.StatusBadRequest,
	"INVALID_PARENT":       http.StatusBadRequest,
	"INVALID_DATE_RANGE":   http.StatusBadRequest,
	"INVALID_FREQUENCY":    http.StatusBadRequest,
	"INVALID_LINE":         http.StatusBadRequest,
	"INVALID_ACTOR":        http.StatusBadRequest,
	"OUT_OF_RANGE":         http.StatusBadRequest,

	// Entries that are well formed but cannot be posted
	"UNBALANCED_ENTRY": http.StatusUnprocessableEntity,
	"EMPTY_ENTRY":      http.StatusUnprocessableEntity,
	"NO_RECORDS":       http.StatusUnprocessableEntity,

	// State conflicts
	"INVALID_STATE":           http.StatusConflict,
	"PERIOD_OVERLAP":          http.StatusConflict,
	"PERIOD_CLOSED":           http.StatusConflict,
	"PERIOD_LOCKED":           http.StatusConflict,
	"PERIOD_HAS_ENTRIES":      http.StatusConflict,
	"RECURRING_INACTIVE":      http.StatusConflict,
	"ACCOUNT_NOT_EDITABLE":    http.StatusConflict,
	"HAS_CHILDREN":            http.StatusConflict,
	"ALREADY_EXISTS":          http.StatusConflict,
	"CONFLICT":                http.StatusConflict,
	"CONCURRENT_MODIFICATION": http.StatusConflict,
	"VERSION_CONFLICT":        http.StatusConflict,

	"NOT_FOUND":    http.StatusNotFound,
	"UNAUTHORIZED": http.StatusUnauthorized,
	"FORBIDDEN":    http.StatusForbidden,
}

// RetryableCodes are conflicts a client may resolve by repeating the request
var RetryableCodes = map[string]bool{
	"CONFLICT":                true,
	"CONCURRENT_MODIFICATION": true,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ValidationDetail describes one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponseWithRequestID creates an error response tagged with the request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Retryable: RetryableCodes[code],
		},
	}
}

// NewValidationErrorResponse creates a 400 response listing the rejected fields
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      ErrCodeValidation,
			Message:   message,
			RequestID: requestID,
			Details:   details,
		},
	}
}
