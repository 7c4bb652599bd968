package integration

import (
	"time"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Fulfillment DTOs
// ---------------------------------------------------------------------------

// Outcome is the successful result of processing a paid order
type Outcome string

const (
	// OutcomeSkipped means the order has no eSIM line item
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFulfilled means the eSIM was activated and the order fulfilled
	OutcomeFulfilled Outcome = "fulfilled"
)

// FulfillmentResult describes a processed paid order
type FulfillmentResult struct {
	Outcome            Outcome `json:"outcome"`
	OrderID            int64   `json:"order_id"`
	LineItemID         int64   `json:"line_item_id,omitempty"`
	ProductSKU         string  `json:"product_sku,omitempty"`
	FulfillmentOrderID int64   `json:"fulfillment_order_id,omitempty"`
	FulfillmentID      int64   `json:"fulfillment_id,omitempty"`
	ICCID              string  `json:"iccid,omitempty"`
}

// ---------------------------------------------------------------------------
// Catalog Sync DTOs
// ---------------------------------------------------------------------------

// SyncFailureResponse is a failed product in a sync report
type SyncFailureResponse struct {
	ProviderProductID string `json:"provider_product_id"`
	Error             string `json:"error"`
}

// SyncResultResponse is the JSON form of a catalog sync result
type SyncResultResponse struct {
	Status       integration.SyncStatus `json:"status"`
	TotalCount   int                    `json:"total_count"`
	CreatedCount int                    `json:"created_count"`
	SkippedCount int                    `json:"skipped_count"`
	FailedCount  int                    `json:"failed_count"`
	FailedItems  []SyncFailureResponse  `json:"failed_items,omitempty"`
	SyncedAt     time.Time              `json:"synced_at"`
}

// ToSyncResultResponse converts a domain SyncResult to a response DTO
func ToSyncResultResponse(r *integration.SyncResult) SyncResultResponse {
	failures := make([]SyncFailureResponse, len(r.FailedItems))
	for i, f := range r.FailedItems {
		failures[i] = SyncFailureResponse{
			ProviderProductID: f.ItemID,
			Error:             f.ErrorMessage,
		}
	}
	return SyncResultResponse{
		Status:       r.Status,
		TotalCount:   r.TotalCount,
		CreatedCount: r.CreatedCount,
		SkippedCount: r.SkippedCount,
		FailedCount:  r.FailedCount,
		FailedItems:  failures,
		SyncedAt:     r.SyncedAt,
	}
}
