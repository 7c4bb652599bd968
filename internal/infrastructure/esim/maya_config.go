package esim

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MayaConfig holds configuration for the Maya Mobile connectivity API
type MayaConfig struct {
	// BaseURL is the API root, e.g. https://api.maya.net
	BaseURL string
	// APIKey is sent in the activation body
	APIKey string
	// APISecret is sent as X-Auth-Token on every request
	APISecret string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MaxReadRetries bounds retries of the catalog read
	MaxReadRetries int
	// RetryInitialInterval is the first backoff interval for read retries
	RetryInitialInterval time.Duration
}

const (
	mayaDefaultTimeoutSeconds = 30
	mayaDefaultReadRetries    = 3
	mayaDefaultRetryInterval  = 500 * time.Millisecond

	mayaProductsPath   = "/product/v1/products"
	mayaActivationPath = "/connectivity/v1/esim"
)

// Errors for Maya configuration
var (
	ErrMayaConfigMissingBaseURL   = errors.New("maya: base URL is required")
	ErrMayaConfigInvalidBaseURL   = errors.New("maya: base URL is invalid")
	ErrMayaConfigMissingAPIKey    = errors.New("maya: API key is required")
	ErrMayaConfigMissingAPISecret = errors.New("maya: API secret is required")
)

// NewMayaConfig creates a new Maya configuration with defaults
func NewMayaConfig(baseURL, apiKey, apiSecret string) *MayaConfig {
	return &MayaConfig{
		BaseURL:              baseURL,
		APIKey:               apiKey,
		APISecret:            apiSecret,
		TimeoutSeconds:       mayaDefaultTimeoutSeconds,
		MaxReadRetries:       mayaDefaultReadRetries,
		RetryInitialInterval: mayaDefaultRetryInterval,
	}
}

// Validate validates the configuration and fills defaults
func (c *MayaConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMayaConfigMissingBaseURL
	}
	u, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("%w: %q", ErrMayaConfigInvalidBaseURL, c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	if c.APIKey == "" {
		return ErrMayaConfigMissingAPIKey
	}
	if c.APISecret == "" {
		return ErrMayaConfigMissingAPISecret
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = mayaDefaultTimeoutSeconds
	}
	if c.MaxReadRetries < 0 {
		c.MaxReadRetries = 0
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = mayaDefaultRetryInterval
	}
	return nil
}

// ProductsURL returns the catalog endpoint
func (c *MayaConfig) ProductsURL() string {
	return c.BaseURL + mayaProductsPath
}

// ActivationURL returns the eSIM activation endpoint
func (c *MayaConfig) ActivationURL() string {
	return c.BaseURL + mayaActivationPath
}
