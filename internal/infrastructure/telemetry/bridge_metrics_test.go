package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/esimbridge/backend/internal/domain/integration"
	"github.com/esimbridge/backend/internal/infrastructure/telemetry"
)

func newTestBridgeMetrics(t *testing.T) (*telemetry.BridgeMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := telemetry.NewBridgeMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return bm, reader
}

// sumOf returns the total of an int64 sum metric across all attribute sets
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestNewBridgeMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewBridgeMetrics(nil)
	assert.Equal(t, telemetry.ErrMeterNil, err)
	assert.Equal(t, "NewBridgeMetrics: meter cannot be nil", err.Error())
}

func TestBridgeMetrics_Counters(t *testing.T) {
	ctx := context.Background()
	bm, reader := newTestBridgeMetrics(t)

	bm.RecordWebhookVerification(ctx, true)
	bm.RecordWebhookVerification(ctx, false)
	bm.RecordActivation(ctx, telemetry.OutcomeSuccess)
	bm.RecordFulfillment(ctx, telemetry.OutcomeSkipped, "")

	assert.Equal(t, int64(2), sumOf(t, reader, "esim_webhook_verifications_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "esim_activations_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "esim_order_fulfillments_total"))
}

func TestBridgeMetrics_RecordCatalogSync(t *testing.T) {
	ctx := context.Background()
	bm, reader := newTestBridgeMetrics(t)

	result := integration.NewSyncResult(3)
	result.CreatedCount = 2
	result.RecordFailure("P3", assert.AnError)
	result.Finish(time.Now())

	bm.RecordCatalogSync(ctx, result, 2*time.Second)
	bm.RecordCatalogSync(ctx, nil, time.Second)

	assert.Equal(t, int64(2), sumOf(t, reader, "esim_catalog_products_created_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "esim_catalog_products_failed_total"))
	assert.Equal(t, int64(2), sumOf(t, reader, "esim_catalog_sync_runs_total"))
}
