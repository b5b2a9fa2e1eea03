package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	byStatus := map[int][]string{
		http.StatusBadRequest:          {ErrCodeValidation, ErrCodeValidationRequired, ErrCodeBadRequest, ErrCodeInvalidInput},
		http.StatusNotFound:            {ErrCodeNotFound},
		http.StatusConflict:            {ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeLockNotObtained},
		http.StatusUnprocessableEntity: {ErrCodeInvalidState, ErrCodeInvalidDistribution, ErrCodeNoTargetUnit},
		http.StatusInternalServerError: {ErrCodeUnknown, ErrCodeInternal, "SOMETHING_ELSE"},
	}
	for status, codes := range byStatus {
		for _, code := range codes {
			assert.Equal(t, status, GetHTTPStatus(code), code)
		}
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	cases := map[string]string{
		"INVALID_DISTRIBUTION": ErrCodeInvalidDistribution,
		"NO_TARGET_UNIT":       ErrCodeNoTargetUnit,
		"LOCK_NOT_OBTAINED":    ErrCodeLockNotObtained,
		ErrCodeNotFound:        ErrCodeNotFound,
		"CUSTOM_ERROR":         "CUSTOM_ERROR",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeErrorCode(in), in)
	}
}

func TestNormalizeErrorCode_DomainCodesHaveStatus(t *testing.T) {
	for _, domainCode := range []string{
		shared.CodeNotFound,
		shared.CodeInvalidInput,
		shared.CodeInvalidState,
		shared.CodeAlreadyExists,
		shared.CodeLockNotObtained,
		billing.CodeInvalidDistribution,
		billing.CodeNoTargetUnit,
	} {
		t.Run(domainCode, func(t *testing.T) {
			apiCode := NormalizeErrorCode(domainCode)
			assert.Equal(t, "ERR_"+domainCode, apiCode)
			assert.NotEqual(t, http.StatusInternalServerError, GetHTTPStatus(apiCode))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponseWithRequestID("LOCK_NOT_OBTAINED", "Building is busy", "req-1")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLockNotObtained, resp.Error.Code)
	assert.Equal(t, "Building is busy", resp.Error.Message)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.Before(before))

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"success":false`)
	assert.NotContains(t, string(raw), `"data"`)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "Must be greater than 0"},
		{Field: "target_group", Message: "Must be one of: resident owner"},
	}
	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		pages    int
		size     int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, DefaultPageSize},
		{100, -1, 5, DefaultPageSize},
	}
	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]int{}, tt.total, 1, tt.pageSize)
		assert.True(t, resp.Success)
		assert.Nil(t, resp.Error)
		assert.Equal(t, tt.pages, resp.Meta.TotalPages, "total=%d size=%d", tt.total, tt.pageSize)
		assert.Equal(t, tt.size, resp.Meta.PageSize)
	}
}
