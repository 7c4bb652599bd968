package integration

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/esimbridge/backend/internal/domain/integration"
	"github.com/esimbridge/backend/internal/infrastructure/logger"
	"github.com/esimbridge/backend/internal/infrastructure/telemetry"
)

// CatalogSyncService mirrors the provider catalog into the store.
// It only creates: price or description drift is not updated and store
// products whose provider product disappeared are left in place.
type CatalogSyncService struct {
	store    integration.StoreCatalog
	provider integration.EsimProvider
	logger   *zap.Logger
	metrics  *telemetry.BridgeMetrics
	now      func() time.Time
}

// NewCatalogSyncService creates a new CatalogSyncService
func NewCatalogSyncService(store integration.StoreCatalog, provider integration.EsimProvider, log *zap.Logger) *CatalogSyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogSyncService{
		store:    store,
		provider: provider,
		logger:   log,
		now:      time.Now,
	}
}

// SetBridgeMetrics sets the business metrics recorder
func (s *CatalogSyncService) SetBridgeMetrics(bm *telemetry.BridgeMetrics) {
	s.metrics = bm
}

// SyncCatalog creates a store product for every provider product that has no
// matching store product. Both catalogs are read before any write; a failed
// read aborts the run. A failed creation is recorded and the run continues.
func (s *CatalogSyncService) SyncCatalog(ctx context.Context) (*integration.SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog_sync", "run")
	defer span.End()

	log := logger.WithLogger(ctx, logger.FromContextOr(ctx, s.logger))
	start := s.now()

	providerProducts, err := s.provider.ListProducts(ctx)
	if err != nil {
		err = fmt.Errorf("%w: reading provider catalog: %w", integration.ErrProductSyncFailed, err)
		log.Error("Catalog sync aborted", zap.Error(err))
		telemetry.RecordError(span, err)
		s.recordSync(ctx, nil, start)
		return nil, err
	}

	storeProducts, err := s.store.ListEsimProducts(ctx)
	if err != nil {
		err = fmt.Errorf("%w: reading store catalog: %w", integration.ErrProductSyncFailed, err)
		log.Error("Catalog sync aborted", zap.Error(err))
		telemetry.RecordError(span, err)
		s.recordSync(ctx, nil, start)
		return nil, err
	}

	index := integration.NewProductIndex(storeProducts)
	log.Info("Catalogs loaded",
		zap.Int("provider_products", len(providerProducts)),
		zap.Int("store_products", len(storeProducts)),
		zap.Int("mapped_provider_ids", index.Len()),
	)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrProviderCount, len(providerProducts),
		telemetry.SpanAttrStoreCount, len(storeProducts),
	)

	result := integration.NewSyncResult(len(providerProducts))

	for _, p := range providerProducts {
		if err := p.Validate(); err != nil {
			log.Warn("Skipping invalid provider product", zap.String("provider_product_id", p.ID), zap.Error(err))
			result.RecordFailure(p.ID, err)
			continue
		}

		if storeID, ok := index.StoreProductID(p.ID); ok {
			result.SkippedCount++
			log.Debug("Store product already exists",
				zap.String("provider_product_id", p.ID),
				zap.Int64("store_product_id", storeID),
			)
			continue
		}

		draft := integration.NewStoreProductDraft(p)
		created, err := s.store.CreateProduct(ctx, draft)
		if err != nil {
			log.Warn("Failed to create store product", zap.String("provider_product_id", p.ID), zap.Error(err))
			result.RecordFailure(p.ID, err)
			continue
		}

		result.CreatedCount++
		log.Info("Created store product",
			zap.String("provider_product_id", p.ID),
			zap.Int64("store_product_id", created.ID),
		)

		// A provider id listed twice in one catalog creates one product.
		index.Add(integration.StoreProduct{
			ID:       created.ID,
			Title:    created.Title,
			Variants: []integration.StoreVariant{{SKU: p.StoreSKU(), Metafields: draft.Variants[0].Metafields}},
		})
	}

	result.Finish(s.now())

	fields := []zap.Field{
		zap.String("status", result.Status.String()),
		zap.Int("total", result.TotalCount),
		zap.Int("created", result.CreatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
	}
	if result.FailedCount > 0 {
		log.Warn("Catalog sync finished with failures", fields...)
		telemetry.SetAttributes(span, "sync_status", result.Status.String())
	} else {
		log.Info("Catalog sync finished", fields...)
		telemetry.SetOK(span)
	}
	s.recordSync(ctx, result, start)

	return result, nil
}

func (s *CatalogSyncService) recordSync(ctx context.Context, result *integration.SyncResult, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordCatalogSync(ctx, result, s.now().Sub(start))
	}
}
