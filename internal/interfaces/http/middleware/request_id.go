package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request ID on requests and responses
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey is the gin context key holding the request ID
	RequestIDContextKey = "request_id"

	maxRequestIDLength = 64
)

// RequestID tags each request with the caller's X-Request-ID, or a fresh one when
// the header is missing or longer than 64 bytes
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = generateRequestID()
		}
		c.Set(RequestIDContextKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// generateRequestID returns a random 32 character hex ID
func generateRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
