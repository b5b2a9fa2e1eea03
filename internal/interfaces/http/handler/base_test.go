package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/internal/interfaces/http/dto"
	"github.com/buildingledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "")
	assert.Empty(t, getRequestID(c))

	c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
	assert.Equal(t, "header-id", getRequestID(c))

	c.Set(middleware.RequestIDContextKey, "ctx-id")
	assert.Equal(t, "ctx-id", getRequestID(c), "context takes precedence over header")
}

func TestBaseHandler_ParseUUIDParam(t *testing.T) {
	h := &BaseHandler{}

	c, w := newContext(http.MethodGet, "/units/nope", "")
	c.Params = gin.Params{{Key: "unit_id", Value: "nope"}}
	_, ok := h.parseUUIDParam(c, "unit_id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid unit_id", decodeResponse(t, w).Error.Message)

	c, _ = newContext(http.MethodGet, "/", "")
	c.Params = gin.Params{{Key: "unit_id", Value: "0190a1b2-0000-7000-8000-000000000001"}}
	id, ok := h.parseUUIDParam(c, "unit_id")
	assert.True(t, ok)
	assert.Equal(t, "0190a1b2-0000-7000-8000-000000000001", id.String())
}

func TestBaseHandler_BindJSON(t *testing.T) {
	h := &BaseHandler{}
	type input struct {
		Status billing.TransactionStatus `json:"transaction_status" binding:"required,enum"`
	}

	t.Run("malformed body", func(t *testing.T) {
		c, w := newContext(http.MethodPost, "/", "{")
		var in input
		assert.False(t, h.bindJSON(c, &in))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)
	})

	t.Run("unknown enum value", func(t *testing.T) {
		c, w := newContext(http.MethodPost, "/", `{"transaction_status":"refunded"}`)
		var in input
		assert.False(t, h.bindJSON(c, &in))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "transaction_status", resp.Error.Details[0].Field)
	})

	t.Run("valid", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, "/", `{"transaction_status":"paid"}`)
		var in input
		assert.True(t, h.bindJSON(c, &in))
		assert.Equal(t, billing.TransactionStatusPaid, in.Status)
	})
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.NewNotFoundError("Unit", "u-1"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"wrapped lock contention", fmt.Errorf("recompute: %w",
			shared.NewDomainError(shared.CodeLockNotObtained, "Building is busy")), http.StatusConflict, dto.ErrCodeLockNotObtained},
		{"invalid distribution", billing.ErrInvalidDistribution, http.StatusUnprocessableEntity, dto.ErrCodeInvalidDistribution},
		{"duplicate", shared.NewDomainError(shared.CodeAlreadyExists, "Unit number taken"), http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext(http.MethodGet, "/", "")
			c.Set(middleware.RequestIDContextKey, "req-1")
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
			assert.Len(t, c.Errors, 1)
		})
	}

	t.Run("nil is a no-op", func(t *testing.T) {
		c, w := newContext(http.MethodGet, "/", "")
		h.HandleError(c, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newContext(http.MethodGet, "/", "")
	h.SuccessWithMeta(c, []string{"a", "b"}, 45, 2, 20)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandler_BindQuery(t *testing.T) {
	h := &BaseHandler{}
	var q dto.ListRequest

	c, w := newContext(http.MethodGet, "/?page=abc", "")
	assert.False(t, h.bindQuery(c, &q))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)

	c, w = newContext(http.MethodGet, "/?order_dir=sideways", "")
	assert.False(t, h.bindQuery(c, &q))
	assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)

	c, _ = newContext(http.MethodGet, "/?page=2&order_dir=asc", "")
	assert.True(t, h.bindQuery(c, &q))
	assert.Equal(t, 2, q.Page)
}
