// Package commands holds the esim-bridge command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/esimbridge/backend/internal/infrastructure/config"
	"github.com/esimbridge/backend/internal/infrastructure/logger"
)

// Version is set at build time with -ldflags "-X ...commands.Version=..."
var Version = "dev"

var (
	envFile string

	cfg *config.Config
	log *zap.Logger
)

// Execute runs the root command
func Execute() error {
	root := &cobra.Command{
		Use:          "esim-bridge",
		Short:        "Shopify to Maya Mobile eSIM bridge",
		SilenceUsage: true,
		Version:      Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", config.DotEnvFile, "dotenv file read before the environment")

	root.AddCommand(
		serveCmd(),
		syncCmd(),
	)
	return root.Execute()
}

func setup() error {
	config.DotEnvFile = envFile
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	l, err := logger.New(&logger.Config{
		Level:   loaded.Log.Level,
		Format:  loaded.Log.Format,
		Output:  loaded.Log.Output,
		Service: loaded.App.Name,
		Version: Version,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	cfg = loaded
	log = l
	return nil
}
