package middleware

import (
	"net/http"

	"github.com/buildingledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit answers 413 when Content-Length exceeds maxBytes. Bodies of
// unknown length are wrapped so that reading past maxBytes fails.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		if req.ContentLength <= maxBytes {
			req.Body = http.MaxBytesReader(c.Writer, req.Body, maxBytes)
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestTooLarge,
			"Request body exceeds maximum allowed size",
			getRequestIDFromContext(c),
		))
	}
}
