package handler

import (
	"errors"
	"net/http"

	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/internal/interfaces/http/dto"
	"github.com/buildingledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler holds the response helpers every ledger handler embeds
type BaseHandler struct{}

// getRequestID prefers the ID assigned by the RequestID middleware over the raw header
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDContextKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

func (h *BaseHandler) fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// parseUUIDParam reads path parameter name. A malformed value is answered with 400.
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err == nil {
		return id, true
	}
	h.fail(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid "+name)
	return uuid.Nil, false
}

func (h *BaseHandler) bindJSON(c *gin.Context, obj any) bool {
	return h.bind(c, c.ShouldBindJSON(obj), dto.ErrCodeInvalidJSON, "Malformed request body")
}

func (h *BaseHandler) bindQuery(c *gin.Context, obj any) bool {
	return h.bind(c, c.ShouldBindQuery(obj), dto.ErrCodeBadRequest, "Invalid query parameters")
}

// bind answers a binding failure: field errors get a detailed validation
// response, anything else a plain 400 with code.
func (h *BaseHandler) bind(c *gin.Context, err error, code, message string) bool {
	switch {
	case err == nil:
		return true
	case middleware.IsValidationError(err):
		middleware.HandleValidationError(c, err)
	default:
		h.fail(c, http.StatusBadRequest, code, message)
	}
	return false
}

// Success writes data with 200
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta writes one page of a list with 200
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created writes data with 201
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent writes an empty 204
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleError answers err. Domain errors map to their API code and status,
// anything else is an opaque 500. err is also recorded on c for the access log.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		h.fail(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}
	code := dto.NormalizeErrorCode(domainErr.Code)
	h.fail(c, dto.GetHTTPStatus(code), code, domainErr.Message)
}
