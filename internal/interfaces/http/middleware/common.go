// Package middleware provides HTTP middleware for the bridge.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/esimbridge/backend/internal/infrastructure/logger"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-ID"

// MaxRequestIDLength bounds caller-supplied request ids
const MaxRequestIDLength = 128

// RequestID adds a unique request ID to each request. A caller-supplied
// X-Request-ID is kept when it is short enough.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(logger.GinRequestIDKey, requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Next()
	}
}

// SecureHeaders sets response headers suitable for a machine-to-machine API
func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}
