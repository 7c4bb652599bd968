package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	appintegration "github.com/esimbridge/backend/internal/application/integration"
	"github.com/esimbridge/backend/internal/domain/integration"
	"github.com/esimbridge/backend/internal/infrastructure/ecommerce"
	"github.com/esimbridge/backend/internal/infrastructure/logger"
	"github.com/esimbridge/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultMaxWebhookBytes is the body limit used when none is configured
const DefaultMaxWebhookBytes int64 = 1 << 20

// OrderFulfiller processes a verified paid order
type OrderFulfiller interface {
	ProcessPaidOrder(ctx context.Context, order *integration.Order) (*appintegration.FulfillmentResult, error)
}

// OrderWebhookHandler receives the storefront "order paid" webhook
type OrderWebhookHandler struct {
	BaseHandler
	fulfiller    OrderFulfiller
	secret       string
	maxBodyBytes int64
	logger       *zap.Logger
	metrics      *telemetry.BridgeMetrics
}

// NewOrderWebhookHandler creates a new OrderWebhookHandler.
// secret is the storefront API secret used to sign webhook deliveries.
func NewOrderWebhookHandler(fulfiller OrderFulfiller, secret string, maxBodyBytes int64, log *zap.Logger) *OrderWebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxWebhookBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderWebhookHandler{
		fulfiller:    fulfiller,
		secret:       secret,
		maxBodyBytes: maxBodyBytes,
		logger:       log,
	}
}

// SetBridgeMetrics sets the business metrics recorder
func (h *OrderWebhookHandler) SetBridgeMetrics(bm *telemetry.BridgeMetrics) {
	h.metrics = bm
}

// HandleOrderPaid godoc
//
//	@Summary		Handle paid order webhook
//	@Description	Verify the delivery signature, provision an eSIM and fulfill the order
//	@Tags			webhooks
//	@Accept			json
//	@Produce		plain
//	@Param			X-Shopify-Hmac-Sha256	header		string	true	"Base64 HMAC-SHA256 of the raw body"
//	@Success		200						{string}	string	"eSIM provisioned and order fulfilled."
//	@Failure		401						{string}	string	"Unauthorized"
//	@Failure		405						{string}	string	"Method Not Allowed"
//	@Failure		413						{string}	string	"Payload Too Large"
//	@Failure		500						{string}	string	"Error processing order."
//	@Router			/shopify/webhooks/orders/paid [post]
func (h *OrderWebhookHandler) HandleOrderPaid(c *gin.Context) {
	if !allowsMethod(c, http.MethodPost) {
		h.MethodNotAllowed(c, http.MethodPost)
		return
	}

	meta := ecommerce.WebhookMetadataFromHeader(c.Request.Header)
	ctx, log := logger.WithWebhookID(c.Request.Context(), h.requestLogger(c, h.logger), meta.WebhookID)
	log = log.With(
		zap.String("topic", meta.Topic),
		zap.String("shop_domain", meta.ShopDomain),
		zap.String("header_order_id", meta.OrderID),
	)
	ctx = logger.WithContext(ctx, log)

	// The signature covers the exact bytes received, so read before any decoding
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodyBytes+1))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || int64(len(body)) > h.maxBodyBytes {
		log.Warn("Webhook body exceeds limit", zap.Int64("max_bytes", h.maxBodyBytes))
		h.Text(c, http.StatusRequestEntityTooLarge, MsgPayloadTooLarge)
		return
	}
	if err != nil {
		log.Warn("Failed to read webhook body", zap.Error(err))
		h.Text(c, http.StatusBadRequest, MsgBadRequest)
		return
	}

	verified := ecommerce.VerifyWebhookSignature(h.secret, body, c.GetHeader(ecommerce.HeaderShopifyHmac))
	if h.metrics != nil {
		h.metrics.RecordWebhookVerification(ctx, verified)
	}
	if !verified {
		log.Warn("Webhook signature verification failed")
		h.Unauthorized(c)
		return
	}

	order, err := ecommerce.DecodeOrderWebhook(body)
	if err != nil {
		log.Error("Failed to decode order webhook", zap.Error(err))
		h.Text(c, http.StatusInternalServerError, MsgOrderError)
		return
	}

	result, err := h.fulfiller.ProcessPaidOrder(ctx, order)
	if err != nil {
		fields := []zap.Field{zap.Int64("order_id", order.ID), zap.Error(err)}
		if fe, ok := appintegration.AsFulfillmentError(err); ok {
			fields = append(fields,
				zap.String("stage", fe.Stage.String()),
				zap.Bool("retryable", fe.Retryable()),
				zap.Bool("manual_reconciliation", fe.RequiresManualReconciliation()),
			)
		}
		log.Error("Order processing failed", fields...)
		h.Text(c, http.StatusInternalServerError, MsgOrderError)
		return
	}

	if result.Outcome == appintegration.OutcomeSkipped {
		h.Text(c, http.StatusOK, MsgOrderSkipped)
		return
	}
	h.Text(c, http.StatusOK, MsgOrderFulfilled)
}
