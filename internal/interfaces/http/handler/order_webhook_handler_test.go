package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appintegration "github.com/esimbridge/backend/internal/application/integration"
	"github.com/esimbridge/backend/internal/domain/integration"
	"github.com/esimbridge/backend/internal/infrastructure/ecommerce"
)

const testWebhookSecret = "shpss_test_secret"

const paidOrderPayload = `{
	"id": 5001,
	"name": "#1001",
	"email": "buyer@example.com",
	"customer": {"id": 77},
	"line_items": [
		{"id": 12, "title": "Europe 5GB", "quantity": 1,
		 "properties": [{"name": "maya.maya_product_id", "value": "EU-5GB-30D"}]}
	],
	"fulfillment_orders": [
		{"id": 9001, "assigned_location": {"location_id": 300},
		 "line_items": [{"id": 802, "line_item_id": 12, "quantity": 1}]}
	]
}`

// MockOrderFulfiller is a mock implementation of OrderFulfiller
type MockOrderFulfiller struct {
	mock.Mock
}

var _ OrderFulfiller = (*MockOrderFulfiller)(nil)

func (m *MockOrderFulfiller) ProcessPaidOrder(ctx context.Context, order *integration.Order) (*appintegration.FulfillmentResult, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.FulfillmentResult), args.Error(1)
}

func setupWebhookRouter(h *OrderWebhookHandler) *gin.Engine {
	r := gin.New()
	r.Any("/shopify/webhooks/orders/paid", h.HandleOrderPaid)
	return r
}

func signedRequest(method, body, secret string) *http.Request {
	req := httptest.NewRequest(method, "/shopify/webhooks/orders/paid", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ecommerce.HeaderShopifyHmac, ecommerce.SignWebhookPayload(secret, []byte(body)))
	req.Header.Set(ecommerce.HeaderShopifyTopic, "orders/paid")
	req.Header.Set(ecommerce.HeaderShopifyWebhookID, "wh-123")
	return req
}

func TestOrderWebhookHandler_Fulfilled(t *testing.T) {
	fulfiller := new(MockOrderFulfiller)
	fulfiller.On("ProcessPaidOrder", mock.Anything, mock.MatchedBy(func(o *integration.Order) bool {
		return o.ID == 5001 && len(o.LineItems) == 1
	})).Return(&appintegration.FulfillmentResult{
		Outcome: appintegration.OutcomeFulfilled,
		OrderID: 5001,
	}, nil)

	h := NewOrderWebhookHandler(fulfiller, testWebhookSecret, 0, zap.NewNop())
	w := httptest.NewRecorder()
	setupWebhookRouter(h).ServeHTTP(w, signedRequest(http.MethodPost, paidOrderPayload, testWebhookSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MsgOrderFulfilled, w.Body.String())
	fulfiller.AssertExpectations(t)
}

func TestOrderWebhookHandler_Skipped(t *testing.T) {
	fulfiller := new(MockOrderFulfiller)
	fulfiller.On("ProcessPaidOrder", mock.Anything, mock.Anything).Return(&appintegration.FulfillmentResult{
		Outcome: appintegration.OutcomeSkipped,
		OrderID: 5001,
	}, nil)

	h := NewOrderWebhookHandler(fulfiller, testWebhookSecret, 0, nil)
	w := httptest.NewRecorder()
	setupWebhookRouter(h).ServeHTTP(w, signedRequest(http.MethodPost, paidOrderPayload, testWebhookSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MsgOrderSkipped, w.Body.String())
}

func TestOrderWebhookHandler_Unauthorized(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{
			name:  "wrong secret",
			setup: func(r *http.Request) { r.Header.Set(ecommerce.HeaderShopifyHmac, ecommerce.SignWebhookPayload("other", []byte(paidOrderPayload))) },
		},
		{
			name:  "missing signature",
			setup: func(r *http.Request) { r.Header.Del(ecommerce.HeaderShopifyHmac) },
		},
		{
			name:  "garbage signature",
			setup: func(r *http.Request) { r.Header.Set(ecommerce.HeaderShopifyHmac, "not-base64!!") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fulfiller := new(MockOrderFulfiller)
			h := NewOrderWebhookHandler(fulfiller, testWebhookSecret, 0, zap.NewNop())

			req := signedRequest(http.MethodPost, paidOrderPayload, testWebhookSecret)
			tt.setup(req)
			w := httptest.NewRecorder()
			setupWebhookRouter(h).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, MsgUnauthorized, w.Body.String())
			fulfiller.AssertNotCalled(t, "ProcessPaidOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderWebhookHandler_TamperedBody(t *testing.T) {
	fulfiller := new(MockOrderFulfiller)
	h := NewOrderWebhookHandler(fulfiller, testWebhookSecret, 0, zap.NewNop())

	tampered := strings.Replace(paidOrderPayload, "5001", "5002", 1)
	req := httptest.NewRequest(http.MethodPost, "/shopify/webhooks/orders/paid", strings.NewReader(tampered))
	req.Header.Set(ecommerce.HeaderShopifyHmac, ecommerce.SignWebhookPayload(testWebhookSecret, []byte(paidOrderPayload)))

	w := httptest.NewRecorder()
	setupWebhookRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	fulfiller.AssertNotCalled(t, "ProcessPaidOrder", mock.Anything, mock.Anything)
}

func TestOrderWebhookHandler_MethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			fulfiller := new(MockOrderFulfiller)
			h := NewOrderWebhookHandler(fulfiller, testWebhookSecret, 0, zap.NewNop())

			w := httptest.NewRecorder()
			setupWebhookRouter(h).ServeHTTP(w, signedRequest(method, paidOrderPayload, testWebhookSecret))

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, MsgMethodNotAllowed, w.Body.String())
			assert.Equal(t, "POST", w.Header().Get("Allow"))
			fulfiller.AssertNotCalled(t, "ProcessPaidOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderWebhookHandler_PayloadTooLarge(t *testing.T) {
	fulfiller := new(MockOrderFulfiller)
	h := NewOrderWebhookHandler(fulfiller, testWebhookSecret, 64, zap.NewNop())

	w := httptest.NewRecorder()
	setupWebhookRouter(h).ServeHTTP(w, signedRequest(http.MethodPost, paidOrderPayload, testWebhookSecret))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	fulfiller.AssertNotCalled(t, "ProcessPaidOrder", mock.Anything, mock.Anything)
}

func TestOrderWebhookHandler_UndecodablePayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{"id": `},
		{name: "missing order id", body: `{"line_items": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fulfiller := new(MockOrderFulfiller)
			h := NewOrderWebhookHandler(fulfiller, testWebhookSecret, 0, zap.NewNop())

			w := httptest.NewRecorder()
			setupWebhookRouter(h).ServeHTTP(w, signedRequest(http.MethodPost, tt.body, testWebhookSecret))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, MsgOrderError, w.Body.String())
			fulfiller.AssertNotCalled(t, "ProcessPaidOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderWebhookHandler_ProcessingError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	fulfiller := new(MockOrderFulfiller)
	fulfiller.On("ProcessPaidOrder", mock.Anything, mock.Anything).Return(nil, &appintegration.FulfillmentError{
		Stage:   appintegration.StagePostActivation,
		OrderID: 5001,
		Err:     fmt.Errorf("create fulfillment: %w", integration.ErrPlatformRequestFailed),
	})

	h := NewOrderWebhookHandler(fulfiller, testWebhookSecret, 0, zap.New(core))
	w := httptest.NewRecorder()
	setupWebhookRouter(h).ServeHTTP(w, signedRequest(http.MethodPost, paidOrderPayload, testWebhookSecret))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, MsgOrderError, w.Body.String())

	entries := logs.FilterMessage("Order processing failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "post_activation", fields["stage"])
	assert.Equal(t, false, fields["retryable"])
	assert.Equal(t, true, fields["manual_reconciliation"])
	assert.Equal(t, "wh-123", fields["webhook_id"])
	assert.Equal(t, "orders/paid", fields["topic"])
}
