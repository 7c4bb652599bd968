package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appintegration "github.com/esimbridge/backend/internal/application/integration"
	"github.com/esimbridge/backend/internal/domain/integration"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one catalog sync and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.shutdown(log)

			ctx, cancel := context.WithTimeout(ctx, cfg.Scheduler.JobTimeout)
			defer cancel()

			result, err := a.catalog.SyncCatalog(ctx)
			if err != nil {
				log.Error("Product sync failed", zap.Error(err))
				return err
			}
			return reportSync(cmd.OutOrStdout(), result)
		},
	}
}

// reportSync prints result as JSON and returns an error unless every
// product was handled
func reportSync(w io.Writer, result *integration.SyncResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(appintegration.ToSyncResultResponse(result)); err != nil {
		return fmt.Errorf("write sync result: %w", err)
	}
	if result.Status != integration.SyncStatusSuccess {
		return fmt.Errorf("product sync finished with status %s", result.Status)
	}
	return nil
}
