package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// BridgeMetrics records the business events of the eSIM bridge: webhook
// verification, eSIM activation, order fulfillment and catalog sync runs.
type BridgeMetrics struct {
	webhookVerifications *Counter
	activations          *Counter
	fulfillments         *Counter
	productsCreated      *Counter
	productsFailed       *Counter
	syncRuns             *Counter
	syncDuration         *Histogram
}

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeUnknown = "unknown"
)

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBridgeMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// NewBridgeMetrics creates the bridge instruments on meter.
func NewBridgeMetrics(meter metric.Meter) (*BridgeMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	bm := &BridgeMetrics{}
	counters := []struct {
		dst         **Counter
		name, descr string
		unit        string
	}{
		{&bm.webhookVerifications, "esim_webhook_verifications_total", "Webhook signature verifications by result", "{requests}"},
		{&bm.activations, "esim_activations_total", "eSIM activation attempts by outcome", "{activations}"},
		{&bm.fulfillments, "esim_order_fulfillments_total", "Paid orders processed by outcome", "{orders}"},
		{&bm.productsCreated, "esim_catalog_products_created_total", "Store products created by catalog sync", "{products}"},
		{&bm.productsFailed, "esim_catalog_products_failed_total", "Store product creations that failed", "{products}"},
		{&bm.syncRuns, "esim_catalog_sync_runs_total", "Catalog sync runs by status", "{runs}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.descr, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	bm.syncDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "esim_catalog_sync_duration_seconds",
		Description: "Catalog sync run duration",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordWebhookVerification records the result of a signature check.
func (bm *BridgeMetrics) RecordWebhookVerification(ctx context.Context, verified bool) {
	bm.webhookVerifications.Inc(ctx, AttrVerified.Bool(verified))
}

// RecordActivation records an activation attempt.
func (bm *BridgeMetrics) RecordActivation(ctx context.Context, outcome string) {
	bm.activations.Inc(ctx,
		AttrPlatform.String(integration.PlatformCodeMaya.String()),
		AttrOutcome.String(outcome),
	)
}

// RecordFulfillment records how a paid order ended. stage is empty on success.
func (bm *BridgeMetrics) RecordFulfillment(ctx context.Context, outcome, stage string) {
	bm.fulfillments.Inc(ctx,
		AttrOutcome.String(outcome),
		AttrStage.String(stage),
	)
}

// RecordCatalogSync records a finished catalog sync run.
func (bm *BridgeMetrics) RecordCatalogSync(ctx context.Context, result *integration.SyncResult, d time.Duration) {
	status := integration.SyncStatusFailed
	if result != nil {
		status = result.Status
		bm.productsCreated.Add(ctx, int64(result.CreatedCount))
		bm.productsFailed.Add(ctx, int64(result.FailedCount))
	}
	bm.syncRuns.Inc(ctx, AttrSyncStatus.String(status.String()))
	bm.syncDuration.RecordDuration(ctx, d, AttrSyncStatus.String(status.String()))
}
