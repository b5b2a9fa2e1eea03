package dto

import (
	"net/http"
	"strings"
)

// API error codes. Domain codes map onto them by prefixing ERR_, so NOT_FOUND
// from the domain layer becomes ERR_NOT_FOUND on the wire.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"

	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists   = "ERR_ALREADY_EXISTS"
	ErrCodeConflict        = "ERR_CONFLICT"
	ErrCodeLockNotObtained = "ERR_LOCK_NOT_OBTAINED" // another write holds the building

	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInvalidDistribution = "ERR_INVALID_DISTRIBUTION" // shares cannot be computed
	ErrCodeNoTargetUnit        = "ERR_NO_TARGET_UNIT"       // unit-scoped operation without a unit
)

const apiCodePrefix = "ERR_"

var httpStatusByCode = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:        http.StatusTooManyRequests,

	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeLockNotObtained: http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInvalidDistribution: http.StatusUnprocessableEntity,
	ErrCodeNoTargetUnit:        http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the status for an API error code, 500 when the code is unknown
func GetHTTPStatus(code string) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode turns a known domain code into its API code. API codes and
// unknown codes come back unchanged.
func NormalizeErrorCode(code string) string {
	if strings.HasPrefix(code, apiCodePrefix) {
		return code
	}
	if _, ok := httpStatusByCode[apiCodePrefix+code]; ok {
		return apiCodePrefix + code
	}
	return code
}
