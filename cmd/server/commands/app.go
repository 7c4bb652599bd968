package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	appintegration "github.com/esimbridge/backend/internal/application/integration"
	"github.com/esimbridge/backend/internal/infrastructure/config"
	"github.com/esimbridge/backend/internal/infrastructure/ecommerce"
	"github.com/esimbridge/backend/internal/infrastructure/esim"
	"github.com/esimbridge/backend/internal/infrastructure/scheduler"
	"github.com/esimbridge/backend/internal/infrastructure/telemetry"
)

// app is the wired bridge shared by every command
type app struct {
	tracer *telemetry.TracerProvider
	meter  *telemetry.MeterProvider

	metrics     *telemetry.BridgeMetrics
	fulfillment *appintegration.FulfillmentService
	catalog     *appintegration.CatalogSyncService
	scheduler   *scheduler.CatalogSyncScheduler
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	meter, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}

	a := &app{tracer: tracer, meter: meter}
	if err := a.wire(cfg, log); err != nil {
		a.shutdown(log)
		return nil, err
	}
	return a, nil
}

func (a *app) wire(cfg *config.Config, log *zap.Logger) error {
	shopifyCfg := ecommerce.NewShopifyConfig(cfg.Shopify.StoreURL, cfg.Shopify.AccessToken, cfg.Shopify.APISecretKey)
	if cfg.Shopify.APIVersion != "" {
		shopifyCfg.APIVersion = cfg.Shopify.APIVersion
	}
	shopifyCfg.TimeoutSeconds = cfg.Shopify.TimeoutSeconds
	shopifyCfg.MaxReadRetries = cfg.Shopify.MaxReadRetries
	store, err := ecommerce.NewShopifyAdapter(shopifyCfg)
	if err != nil {
		return fmt.Errorf("init shopify adapter: %w", err)
	}

	mayaCfg := esim.NewMayaConfig(cfg.Maya.BaseURL, cfg.Maya.APIKey, cfg.Maya.APISecret)
	mayaCfg.TimeoutSeconds = cfg.Maya.TimeoutSeconds
	mayaCfg.MaxReadRetries = cfg.Maya.MaxReadRetries
	provider, err := esim.NewMayaAdapter(mayaCfg)
	if err != nil {
		return fmt.Errorf("init maya adapter: %w", err)
	}

	a.fulfillment = appintegration.NewFulfillmentService(store, provider, log)
	a.catalog = appintegration.NewCatalogSyncService(store, provider, log)

	bm, err := telemetry.NewBridgeMetrics(a.meter.Meter("esim-bridge"))
	if err != nil {
		log.Warn("Bridge metrics disabled", zap.Error(err))
	} else {
		a.metrics = bm
		a.fulfillment.SetBridgeMetrics(bm)
		a.catalog.SetBridgeMetrics(bm)
	}

	schedCfg := scheduler.DefaultCatalogSyncSchedulerConfig()
	schedCfg.CronSchedule = cfg.Scheduler.SyncCronSchedule
	schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
	a.scheduler, err = scheduler.NewCatalogSyncScheduler(schedCfg, a.catalog, log)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	return nil
}

// shutdown flushes the telemetry providers; each bounds its own flush
func (a *app) shutdown(log *zap.Logger) {
	ctx := context.Background()
	if a.meter != nil {
		if err := a.meter.Shutdown(ctx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}
}
