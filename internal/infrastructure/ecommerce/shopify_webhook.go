package ecommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
)

// Shopify webhook headers
const (
	HeaderShopifyHmac       = "X-Shopify-Hmac-Sha256"
	HeaderShopifyTopic      = "X-Shopify-Topic"
	HeaderShopifyShopDomain = "X-Shopify-Shop-Domain"
	HeaderShopifyWebhookID  = "X-Shopify-Webhook-Id"
	HeaderShopifyOrderID    = "X-Shopify-Order-Id"
	HeaderShopifyAPIVersion = "X-Shopify-Api-Version"
)

// SignWebhookPayload returns the base64 HMAC-SHA256 of body keyed by secret,
// as Shopify sends it in X-Shopify-Hmac-Sha256.
func SignWebhookPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the signature header against the raw request body.
// An empty secret, body or signature never verifies.
func VerifyWebhookSignature(secret string, rawBody []byte, signature string) bool {
	if secret == "" || len(rawBody) == 0 || signature == "" {
		return false
	}
	expected := SignWebhookPayload(secret, rawBody)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookMetadata holds the delivery headers logged with every webhook outcome
type WebhookMetadata struct {
	Topic      string
	ShopDomain string
	WebhookID  string
	OrderID    string
	APIVersion string
}

// WebhookMetadataFromHeader extracts the Shopify delivery headers
func WebhookMetadataFromHeader(h http.Header) WebhookMetadata {
	return WebhookMetadata{
		Topic:      h.Get(HeaderShopifyTopic),
		ShopDomain: h.Get(HeaderShopifyShopDomain),
		WebhookID:  h.Get(HeaderShopifyWebhookID),
		OrderID:    h.Get(HeaderShopifyOrderID),
		APIVersion: h.Get(HeaderShopifyAPIVersion),
	}
}
