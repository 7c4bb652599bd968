package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/esimbridge/backend/internal/infrastructure/ecommerce"
	"github.com/esimbridge/backend/internal/infrastructure/logger"
)

// MaxWebhookIDLength bounds the delivery id copied onto spans
const MaxWebhookIDLength = 64

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "esim-bridge",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig returns the otelgin server middleware, or a pass-through
// when tracing is disabled.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher tags the server span with the request id and, for storefront
// webhooks, the delivery id and topic. Spans of 5xx responses are marked with
// codes.Error. Install it after TracingWithConfig and RequestID.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := c.GetString(logger.GinRequestIDKey); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if webhookID := c.GetHeader(ecommerce.HeaderShopifyWebhookID); webhookID != "" {
		if len(webhookID) > MaxWebhookIDLength {
			webhookID = webhookID[:MaxWebhookIDLength]
		}
		span.SetAttributes(attribute.String("webhook.id", webhookID))
	}
	if topic := c.GetHeader(ecommerce.HeaderShopifyTopic); topic != "" {
		span.SetAttributes(attribute.String("webhook.topic", topic))
	}
}
