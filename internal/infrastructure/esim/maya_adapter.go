package esim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Maya API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// HeaderMayaAuthToken carries the API secret
const HeaderMayaAuthToken = "X-Auth-Token"

// MayaAdapter implements integration.EsimProvider for Maya Mobile
type MayaAdapter struct {
	config     *MayaConfig
	httpClient *http.Client
}

// NewMayaAdapter creates a new Maya adapter with the given configuration
func NewMayaAdapter(config *MayaConfig) (*MayaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &MayaAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// ListProducts returns the full provider catalog. Transport failures,
// 429 and 5xx responses are retried with exponential backoff.
func (a *MayaAdapter) ListProducts(ctx context.Context) ([]integration.ProviderProduct, error) {
	var body []byte
	op := func() error {
		var err error
		body, err = a.doRequest(ctx, "list products", http.MethodGet, a.config.ProductsURL(), nil)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.config.RetryInitialInterval
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.config.MaxReadRetries)), ctx)); err != nil {
		return nil, err
	}

	var resp MayaProductsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse products: %v", integration.ErrPlatformInvalidResponse, err)
	}

	products := make([]integration.ProviderProduct, 0, len(resp.Data))
	for _, raw := range resp.Data {
		products = append(products, decodeMayaProduct(raw))
	}
	return products, nil
}

// ActivateEsim provisions an eSIM. It is never retried: a timeout or a
// response that cannot be read is reported as ErrActivationOutcomeUnknown.
func (a *MayaAdapter) ActivateEsim(ctx context.Context, req integration.ActivationRequest) (*integration.EsimActivation, error) {
	if req.ProductSKU == "" {
		return nil, fmt.Errorf("%w: product sku is required", integration.ErrActivationFailed)
	}

	body, err := a.doRequest(ctx, "activate esim", http.MethodPost, a.config.ActivationURL(), newMayaActivationRequest(a.config.APIKey, req))
	if err != nil {
		var apiErr *integration.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %w", integration.ErrActivationFailed, err)
		}
		return nil, err
	}

	var resp MayaActivationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w: failed to parse activation: %v",
			integration.ErrActivationOutcomeUnknown, integration.ErrPlatformInvalidResponse, err)
	}
	if resp.Data == nil || resp.Data.ActivationCode == "" {
		return nil, fmt.Errorf("%w: %w: activation response has no activation code",
			integration.ErrActivationOutcomeUnknown, integration.ErrPlatformInvalidResponse)
	}

	return &integration.EsimActivation{
		QRCodeImageURL: resp.Data.QRCodeImageURL,
		ActivationCode: resp.Data.ActivationCode,
		ICCID:          resp.Data.ICCID,
	}, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs an HTTP request to the Maya API
func (a *MayaAdapter) doRequest(ctx context.Context, operation, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("maya: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("maya: failed to create request: %w", err)
	}
	req.Header.Set(HeaderMayaAuthToken, a.config.APISecret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(operation, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if method != http.MethodGet {
			return nil, fmt.Errorf("%w: maya %s: failed to read response: %v", integration.ErrActivationOutcomeUnknown, operation, err)
		}
		return nil, fmt.Errorf("%w: maya %s: failed to read response: %v", integration.ErrPlatformUnavailable, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, integration.NewAPIError(integration.PlatformCodeMaya, operation, resp.StatusCode, body)
	}

	return body, nil
}

// classifyTransportError maps a failed round trip. A request that was never
// sent (dial failure) is unavailable; for writes anything else may have
// reached the provider.
func classifyTransportError(operation, method string, err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: maya %s: %v", integration.ErrPlatformUnavailable, operation, err)
	}
	if method == http.MethodGet {
		return fmt.Errorf("%w: maya %s: %v", integration.ErrPlatformUnavailable, operation, err)
	}
	return fmt.Errorf("%w: %w: maya %s: %v",
		integration.ErrActivationOutcomeUnknown, integration.ErrPlatformUnavailable, operation, err)
}

// isRetryable reports whether a read may be attempted again
func isRetryable(err error) bool {
	var apiErr *integration.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return errors.Is(err, integration.ErrPlatformUnavailable)
}
