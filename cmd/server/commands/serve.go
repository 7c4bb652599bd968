package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/esimbridge/backend/internal/infrastructure/config"
	"github.com/esimbridge/backend/internal/infrastructure/logger"
	"github.com/esimbridge/backend/internal/interfaces/http/handler"
	"github.com/esimbridge/backend/internal/interfaces/http/middleware"
	"github.com/esimbridge/backend/internal/interfaces/http/router"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the order webhook and catalog sync endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log.Info("Starting esim-bridge",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.shutdown(log)

	if cfg.Scheduler.Enabled {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		log.Info("Catalog sync scheduler started",
			zap.String("schedule", cfg.Scheduler.SyncCronSchedule),
			zap.Time("next_run", a.scheduler.NextRun()),
		)
	}

	engine, err := newEngine(cfg, log, a)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case sig := <-quit:
		log.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler stop failed", zap.Error(err))
		}
	}

	log.Info("Server exited")
	return nil
}

// newEngine builds the gin engine with the middleware chain and bridge routes
func newEngine(cfg *config.Config, log *zap.Logger, a *app) (*gin.Engine, error) {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	engine.Use(
		middleware.RequestID(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.SecureHeaders(),
	)
	if a.meter.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(a.meter.Meter("esim-bridge/http"), log))
	}

	orderWebhook := handler.NewOrderWebhookHandler(a.fulfillment, cfg.Shopify.APISecretKey, cfg.HTTP.MaxWebhookBytes, log)
	if a.metrics != nil {
		orderWebhook.SetBridgeMetrics(a.metrics)
	}
	// the scheduler serializes HTTP-triggered syncs with cron runs
	catalogSync := handler.NewCatalogSyncHandler(a.scheduler, cfg.HTTP.CronSecret, log)
	health := handler.NewHealthHandler(Version)
	health.SetScheduler(a.scheduler)

	router.Setup(engine, router.Handlers{
		OrderWebhook: orderWebhook,
		CatalogSync:  catalogSync,
		Health:       health,
	}, cfg.HTTP.MaxWebhookBytes)

	return engine, nil
}
