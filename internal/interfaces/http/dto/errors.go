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
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeBusinessRule      = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
}

// DomainErrorHTTPStatus maps inventory domain codes, which are passed
// through to clients unchanged, to HTTP status codes
var DomainErrorHTTPStatus = map[string]int{
	"ITEM_NOT_FOUND":        http.StatusNotFound,
	"BATCH_NOT_FOUND":       http.StatusNotFound,
	"STOCK_LEVEL_NOT_FOUND": http.StatusNotFound,
	"VENDOR_NOT_FOUND":      http.StatusNotFound,
	"LOCATION_NOT_FOUND":    http.StatusNotFound,
	"RESERVATION_NOT_FOUND": http.StatusNotFound,
	"TRANSACTION_NOT_FOUND": http.StatusNotFound,

	"DUPLICATE_SKU":          http.StatusConflict,
	"DUPLICATE_BATCH_NUMBER": http.StatusConflict,
	"DUPLICATE_REFERENCE":    http.StatusConflict,

	"INVALID_TRANSACTION_QUANTITY": http.StatusBadRequest,
	"INVALID_UNIT_COST":            http.StatusBadRequest,
	"MISSING_DESTINATION_LOCATION": http.StatusBadRequest,
	"MISSING_SOURCE_LOCATION":      http.StatusBadRequest,
	"INVALID_TRANSFER_ROUTE":       http.StatusBadRequest,
	"UNKNOWN_TRANSACTION_TYPE":     http.StatusBadRequest,
	"EMPTY_TRANSACTION":            http.StatusBadRequest,
	"BATCH_REQUIRED":               http.StatusBadRequest,
	"REASON_REQUIRED":              http.StatusBadRequest,
	"MISSING_EXPIRATION_DATE":      http.StatusBadRequest,
	"INVALID_EXPIRATION_DATE":      http.StatusBadRequest,
	"INVALID_ITEM":                 http.StatusBadRequest,
	"INVALID_BATCH":                http.StatusBadRequest,
	"INVALID_COSTING_METHOD":       http.StatusBadRequest,
	"NON_POSITIVE_QUANTITY":        http.StatusBadRequest,

	"ITEM_INACTIVE":          http.StatusUnprocessableEntity,
	"QUANTITY_EXCEEDS_STOCK": http.StatusUnprocessableEntity,
	"RESERVATION_NOT_ACTIVE": http.StatusUnprocessableEntity,
	"TRANSACTION_COMMITTED":  http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := DomainErrorHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps the shared domain codes to standardized codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a legacy error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
