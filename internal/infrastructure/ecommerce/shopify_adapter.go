package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Shopify API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// HeaderShopifyAccessToken authenticates Admin API calls
const HeaderShopifyAccessToken = "X-Shopify-Access-Token"

// ShopifyAdapter implements integration.StoreCatalog for the Shopify Admin REST API
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout(),
		},
	}, nil
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// ListEsimProducts returns every store product of type eSIM, following
// Link rel="next" pagination. Variants that come without embedded metafields
// have them fetched so the catalog join can see maya_product_id.
func (a *ShopifyAdapter) ListEsimProducts(ctx context.Context) ([]integration.StoreProduct, error) {
	query := url.Values{}
	query.Set("product_type", integration.EsimProductType)
	query.Set("limit", strconv.Itoa(a.config.PageSize))
	next := a.config.AdminURL("products.json") + "?" + query.Encode()

	products := make([]integration.StoreProduct, 0)
	seen := make(map[string]struct{})
	for next != "" {
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("%w: pagination loop at %s", integration.ErrPlatformInvalidResponse, next)
		}
		seen[next] = struct{}{}

		body, header, err := a.doReadRequest(ctx, "list products", next)
		if err != nil {
			return nil, err
		}

		var resp ShopifyProductsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: failed to parse products: %v", integration.ErrPlatformInvalidResponse, err)
		}

		for i := range resp.Products {
			if err := a.loadVariantMetafields(ctx, &resp.Products[i]); err != nil {
				return nil, err
			}
			products = append(products, resp.Products[i].toDomain())
		}

		next = nextPageURL(header.Get("Link"))
	}
	return products, nil
}

// loadVariantMetafields fetches the maya namespace metafields of variants
// whose payload did not embed them
func (a *ShopifyAdapter) loadVariantMetafields(ctx context.Context, p *ShopifyProduct) error {
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.Metafields != nil {
			continue
		}
		query := url.Values{}
		query.Set("namespace", integration.ProviderProductIDNamespace)
		endpoint := a.config.AdminURL(fmt.Sprintf("products/%s/variants/%s/metafields.json", formatID(p.ID), formatID(v.ID)))

		body, _, err := a.doReadRequest(ctx, "list variant metafields", endpoint+"?"+query.Encode())
		if err != nil {
			return err
		}
		var resp ShopifyMetafieldsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("%w: failed to parse metafields: %v", integration.ErrPlatformInvalidResponse, err)
		}
		v.Metafields = resp.Metafields
	}
	return nil
}

// CreateProduct creates a store product. It is never retried.
func (a *ShopifyAdapter) CreateProduct(ctx context.Context, draft integration.StoreProductDraft) (*integration.StoreProduct, error) {
	body, _, err := a.doRequest(ctx, "create product", http.MethodPost, a.config.AdminURL("products.json"), newShopifyProductCreateRequest(draft))
	if err != nil {
		return nil, err
	}

	var resp ShopifyProductResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse created product: %v", integration.ErrPlatformInvalidResponse, err)
	}
	product := resp.Product.toDomain()
	return &product, nil
}

// ---------------------------------------------------------------------------
// Fulfillment Operations
// ---------------------------------------------------------------------------

// CreateFulfillment records the fulfillment of a fulfillment order. It is never retried.
func (a *ShopifyAdapter) CreateFulfillment(ctx context.Context, req integration.FulfillmentRequest) (*integration.Fulfillment, error) {
	if req.FulfillmentOrderID == 0 || len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: fulfillment order and lines are required", integration.ErrFulfillmentFailed)
	}

	body, _, err := a.doRequest(ctx, "create fulfillment", http.MethodPost, a.config.AdminURL("fulfillments.json"), newShopifyFulfillmentCreateRequest(req))
	if err != nil {
		return nil, err
	}

	var resp ShopifyFulfillmentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse fulfillment: %v", integration.ErrPlatformInvalidResponse, err)
	}
	return &integration.Fulfillment{
		ID:     resp.Fulfillment.ID,
		Status: resp.Fulfillment.Status,
	}, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doReadRequest performs an idempotent GET, retrying transport failures,
// 429 and 5xx responses with exponential backoff
func (a *ShopifyAdapter) doReadRequest(ctx context.Context, operation, endpoint string) ([]byte, http.Header, error) {
	var (
		body   []byte
		header http.Header
	)
	op := func() error {
		var err error
		body, header, err = a.doRequest(ctx, operation, http.MethodGet, endpoint, nil)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.config.RetryInitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.config.MaxReadRetries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, nil, err
	}
	return body, header, nil
}

// doRequest performs an HTTP request to the Admin API
func (a *ShopifyAdapter) doRequest(ctx context.Context, operation, method, endpoint string, payload any) ([]byte, http.Header, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("shopify: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set(HeaderShopifyAccessToken, a.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: shopify %s: %v", integration.ErrPlatformUnavailable, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("shopify: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, integration.NewAPIError(integration.PlatformCodeShopify, operation, resp.StatusCode, body)
	}

	return body, resp.Header, nil
}

// isRetryable reports whether a read may be attempted again
func isRetryable(err error) bool {
	var apiErr *integration.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return errors.Is(err, integration.ErrPlatformUnavailable)
}

// nextPageURL extracts the rel="next" target of a Link header
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if strings.EqualFold(param, `rel="next"`) || strings.EqualFold(param, "rel=next") {
				return strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
			}
		}
	}
	return ""
}
