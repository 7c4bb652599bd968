package ecommerce

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ShopifyConfig holds configuration for the Shopify Admin REST API
type ShopifyConfig struct {
	// StoreURL is the shop base URL. A bare host such as shop.myshopify.com is accepted.
	StoreURL string
	// AccessToken is the Admin API access token
	AccessToken string
	// APISecretKey signs webhook deliveries
	APISecretKey string
	// APIVersion is the Admin API version segment
	APIVersion string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// PageSize is the page size used when listing products
	PageSize int
	// MaxReadRetries bounds retries of read-only calls
	MaxReadRetries int
	// RetryInitialInterval is the first backoff interval for read retries
	RetryInitialInterval time.Duration
}

const (
	// ShopifyDefaultAPIVersion is the Admin API version used when none is configured
	ShopifyDefaultAPIVersion = "2024-07"
	// ShopifyMaxPageSize is the largest page the products endpoint returns
	ShopifyMaxPageSize = 250

	shopifyDefaultTimeoutSeconds = 30
	shopifyDefaultReadRetries    = 3
	shopifyDefaultRetryInterval  = 500 * time.Millisecond
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingStoreURL    = errors.New("shopify: store URL is required")
	ErrShopifyConfigInvalidStoreURL    = errors.New("shopify: store URL is invalid")
	ErrShopifyConfigMissingAccessToken = errors.New("shopify: access token is required")
	ErrShopifyConfigMissingSecretKey   = errors.New("shopify: API secret key is required")
)

// NewShopifyConfig creates a new Shopify configuration with defaults
func NewShopifyConfig(storeURL, accessToken, apiSecretKey string) *ShopifyConfig {
	return &ShopifyConfig{
		StoreURL:             storeURL,
		AccessToken:          accessToken,
		APISecretKey:         apiSecretKey,
		APIVersion:           ShopifyDefaultAPIVersion,
		TimeoutSeconds:       shopifyDefaultTimeoutSeconds,
		PageSize:             ShopifyMaxPageSize,
		MaxReadRetries:       shopifyDefaultReadRetries,
		RetryInitialInterval: shopifyDefaultRetryInterval,
	}
}

// Validate validates the configuration, normalizes the store URL and fills defaults
func (c *ShopifyConfig) Validate() error {
	if strings.TrimSpace(c.StoreURL) == "" {
		return ErrShopifyConfigMissingStoreURL
	}
	normalized, err := NormalizeStoreURL(c.StoreURL)
	if err != nil {
		return err
	}
	c.StoreURL = normalized

	if c.AccessToken == "" {
		return ErrShopifyConfigMissingAccessToken
	}
	if c.APISecretKey == "" {
		return ErrShopifyConfigMissingSecretKey
	}
	if c.APIVersion == "" {
		c.APIVersion = ShopifyDefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = shopifyDefaultTimeoutSeconds
	}
	if c.PageSize <= 0 || c.PageSize > ShopifyMaxPageSize {
		c.PageSize = ShopifyMaxPageSize
	}
	if c.MaxReadRetries < 0 {
		c.MaxReadRetries = 0
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = shopifyDefaultRetryInterval
	}
	return nil
}

// NormalizeStoreURL turns a bare shop host into an https URL and strips trailing slashes
func NormalizeStoreURL(raw string) (string, error) {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrShopifyConfigInvalidStoreURL, raw)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrShopifyConfigInvalidStoreURL, u.Scheme)
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/"), nil
}

// AdminURL returns the Admin API URL of a resource path such as "products.json"
func (c *ShopifyConfig) AdminURL(resource string) string {
	return fmt.Sprintf("%s/admin/api/%s/%s", c.StoreURL, c.APIVersion, strings.TrimLeft(resource, "/"))
}

// HTTPTimeout returns the configured request timeout
func (c *ShopifyConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
