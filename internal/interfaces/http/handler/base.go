// Package handler holds the inbound HTTP endpoints of the bridge.
package handler

import (
	"net/http"
	"strings"

	"github.com/esimbridge/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Plain-text response bodies
const (
	MsgUnauthorized       = "Unauthorized"
	MsgMethodNotAllowed   = "Method Not Allowed"
	MsgPayloadTooLarge    = "Payload Too Large"
	MsgBadRequest         = "Bad Request"
	MsgOrderFulfilled     = "eSIM provisioned and order fulfilled."
	MsgOrderSkipped       = "No eSIM product found. Skipping."
	MsgOrderError         = "Error processing order."
	MsgSyncCompleted      = "Product sync completed."
	MsgSyncFailed         = "Product sync failed."
	MsgSyncAlreadyRunning = "Product sync already in progress."
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Text sends a plain-text response
func (h *BaseHandler) Text(c *gin.Context, status int, message string) {
	c.String(status, message)
}

// Unauthorized sends a 401 with no hint about why the request was refused
func (h *BaseHandler) Unauthorized(c *gin.Context) {
	h.Text(c, http.StatusUnauthorized, MsgUnauthorized)
}

// MethodNotAllowed sends a 405 listing the accepted methods
func (h *BaseHandler) MethodNotAllowed(c *gin.Context, allowed ...string) {
	c.Header("Allow", strings.Join(allowed, ", "))
	h.Text(c, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

// allowsMethod reports whether the request method is one of allowed
func allowsMethod(c *gin.Context, allowed ...string) bool {
	for _, m := range allowed {
		if c.Request.Method == m {
			return true
		}
	}
	return false
}

// requestLogger returns the request-scoped logger, or fallback when the
// logging middleware is not installed
func (h *BaseHandler) requestLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	return logger.FromContextOr(c.Request.Context(), fallback)
}
