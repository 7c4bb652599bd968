package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("integration: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")

	// Product sync errors
	ErrProductSyncInvalidProduct = errors.New("integration: invalid product for sync")
	ErrProductSyncFailed         = errors.New("integration: product sync failed")

	// Order fulfillment errors
	ErrOrderInvalid             = errors.New("integration: invalid order payload")
	ErrDataInconsistency        = errors.New("integration: esim line item has no matching fulfillment order")
	ErrActivationFailed         = errors.New("integration: esim activation failed")
	ErrActivationOutcomeUnknown = errors.New("integration: esim activation outcome unknown")
	ErrFulfillmentFailed        = errors.New("integration: fulfillment creation failed")
)

// maxAPIErrorBody bounds the upstream body kept on an APIError
const maxAPIErrorBody = 512

// APIError is a non-2xx response from an external platform.
// It matches ErrPlatformRequestFailed, and additionally ErrPlatformAuthFailed
// for 401/403 and ErrPlatformRateLimited for 429.
type APIError struct {
	Platform   PlatformCode
	Operation  string
	StatusCode int
	Body       string
}

// NewAPIError builds an APIError, truncating the upstream body on a rune
// boundary
func NewAPIError(platform PlatformCode, operation string, statusCode int, body []byte) *APIError {
	b := string(body)
	if len(b) > maxAPIErrorBody {
		n := maxAPIErrorBody
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
		b = b[:n] + "...(truncated)"
	}
	return &APIError{
		Platform:   platform,
		Operation:  operation,
		StatusCode: statusCode,
		Body:       b,
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Platform.DisplayName(), e.Operation, e.StatusCode, e.Body)
}

// Unwrap exposes the sentinel errors this response maps to
func (e *APIError) Unwrap() []error {
	errs := []error{ErrPlatformRequestFailed}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		errs = append(errs, ErrPlatformAuthFailed)
	case http.StatusTooManyRequests:
		errs = append(errs, ErrPlatformRateLimited)
	}
	return errs
}

// Temporary reports whether the same request may succeed later
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ---------------------------------------------------------------------------
// PlatformCode identifies an external system
// ---------------------------------------------------------------------------

// PlatformCode represents the type of external platform
type PlatformCode string

const (
	// PlatformCodeShopify represents the Shopify storefront
	PlatformCodeShopify PlatformCode = "SHOPIFY"
	// PlatformCodeMaya represents the Maya Mobile eSIM provider
	PlatformCodeMaya PlatformCode = "MAYA"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeShopify, PlatformCodeMaya:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeShopify:
		return "Shopify"
	case PlatformCodeMaya:
		return "Maya Mobile"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// SyncStatus represents the synchronization status
// ---------------------------------------------------------------------------

// SyncStatus represents the synchronization status
type SyncStatus string

const (
	// SyncStatusInProgress indicates sync is in progress
	SyncStatusInProgress SyncStatus = "IN_PROGRESS"
	// SyncStatusSuccess indicates sync was successful
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates partial sync success
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates sync failed
	SyncStatusFailed SyncStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusInProgress, SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// SyncResult represents the result of a catalog sync run
type SyncResult struct {
	// Status is the overall sync status
	Status SyncStatus
	// TotalCount is the number of provider products examined
	TotalCount int
	// CreatedCount is the number of store products created
	CreatedCount int
	// SkippedCount is the number of provider products already present in the store
	SkippedCount int
	// FailedCount is the number of failed creations
	FailedCount int
	// FailedItems contains details about failed items
	FailedItems []SyncFailure
	// SyncedAt is when the sync completed
	SyncedAt time.Time
}

// NewSyncResult returns an in-progress result for total items
func NewSyncResult(total int) *SyncResult {
	return &SyncResult{
		Status:      SyncStatusInProgress,
		TotalCount:  total,
		FailedItems: make([]SyncFailure, 0),
	}
}

// RecordFailure appends a failed item to the result
func (r *SyncResult) RecordFailure(itemID string, err error) {
	r.FailedCount++
	r.FailedItems = append(r.FailedItems, SyncFailure{
		ItemID:       itemID,
		ErrorMessage: err.Error(),
	})
}

// Finish sets the final status from the counters
func (r *SyncResult) Finish(at time.Time) {
	r.SyncedAt = at
	switch {
	case r.FailedCount == 0:
		r.Status = SyncStatusSuccess
	case r.CreatedCount > 0 || r.SkippedCount > 0:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusFailed
	}
}

// SyncFailure represents a failed sync item
type SyncFailure struct {
	// ItemID is the provider product identifier
	ItemID string
	// ErrorMessage is the error description
	ErrorMessage string
}

// ---------------------------------------------------------------------------
// Port Interfaces
// ---------------------------------------------------------------------------

// StoreCatalog defines the port to the storefront platform.
// Implementations live in the infrastructure layer (Shopify).
type StoreCatalog interface {
	// ListEsimProducts returns every store product tagged as an eSIM product
	ListEsimProducts(ctx context.Context) ([]StoreProduct, error)

	// CreateProduct creates a new store product and returns it as stored
	CreateProduct(ctx context.Context, draft StoreProductDraft) (*StoreProduct, error)

	// CreateFulfillment records a fulfillment for a fulfillment order
	CreateFulfillment(ctx context.Context, req FulfillmentRequest) (*Fulfillment, error)
}

// EsimProvider defines the port to the eSIM provisioning provider.
// Implementations live in the infrastructure layer (Maya Mobile).
type EsimProvider interface {
	// ListProducts returns the full provider catalog
	ListProducts(ctx context.Context) ([]ProviderProduct, error)

	// ActivateEsim provisions an eSIM. It has a real-world side effect and
	// callers must not retry it on an ambiguous failure.
	ActivateEsim(ctx context.Context, req ActivationRequest) (*EsimActivation, error)
}
