package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when a dependency is down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidRecord is used when a quote misses a required field or carries a malformed one
	ErrCodeInvalidRecord = "ERR_INVALID_RECORD"
	// ErrCodeInvalidStatus is used for an unknown quote status
	ErrCodeInvalidStatus = "ERR_INVALID_STATUS"
)

// Signature link error codes
const (
	// ErrCodeLinkInvalid is used when a signature link is forged or malformed
	ErrCodeLinkInvalid = "ERR_LINK_INVALID"
	// ErrCodeLinkExpired is used when a signature link is past its expiry
	ErrCodeLinkExpired = "ERR_LINK_EXPIRED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeNumberTaken is used when a quote number is already reserved
	ErrCodeNumberTaken = "ERR_NUMBER_TAKEN"
	// ErrCodeAlreadySigned is used when a quote already carries a signature
	ErrCodeAlreadySigned = "ERR_ALREADY_SIGNED"
)

// Numbering and rendering error codes
const (
	// ErrCodeAllocationExhausted is used when no quote number could be allocated
	ErrCodeAllocationExhausted = "ERR_ALLOCATION_EXHAUSTED"
	// ErrCodeRenderFailure is used when a quote could not be rendered to PDF
	ErrCodeRenderFailure = "ERR_RENDER_FAILURE"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
	// ErrCodeRateLimited is used when a client exceeds its request budget
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeInvalidRecord: http.StatusBadRequest,
	ErrCodeInvalidStatus: http.StatusBadRequest,

	// Signature links
	ErrCodeLinkInvalid: http.StatusUnauthorized,
	ErrCodeLinkExpired: http.StatusGone,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeNumberTaken:   http.StatusConflict,
	ErrCodeAlreadySigned: http.StatusConflict,

	// Numbering and rendering
	ErrCodeAllocationExhausted: http.StatusServiceUnavailable,
	ErrCodeRenderFailure:       http.StatusInternalServerError,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"INVALID_INPUT":           ErrCodeInvalidInput,
	"INVALID_STATE":           ErrCodeInvalidState,
	"ALLOCATION_EXHAUSTED":    ErrCodeAllocationExhausted,
	"INVALID_RECORD":          ErrCodeInvalidRecord,
	"INVALID_STATUS":          ErrCodeInvalidStatus,
	"NUMBER_TAKEN":            ErrCodeNumberTaken,
	"NUMBER_ALREADY_ASSIGNED": ErrCodeConflict,
	"ALREADY_SIGNED":          ErrCodeAlreadySigned,
	"INVALID_SIGNATURE_LINK":  ErrCodeLinkInvalid,
	"SIGNATURE_LINK_EXPIRED":  ErrCodeLinkExpired,
	"UNKNOWN_EMAIL_TEMPLATE":  ErrCodeNotFound,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
