package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// BodyLimit returns a middleware that limits request body size.
// Requests that announce a larger Content-Length are refused up front; the
// rest are wrapped so that reading past maxBytes fails with *http.MaxBytesError.
//
// When methods are given, only requests with one of them are limited. Other
// methods pass through untouched so the handler can answer 405 first.
func BodyLimit(maxBytes int64, methods ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(methods) > 0 && !slices.Contains(methods, c.Request.Method) {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.Header("Connection", "close")
			c.String(http.StatusRequestEntityTooLarge, "Payload Too Large")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
