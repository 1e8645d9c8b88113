// Package cmd defines and implements the CLI commands for the
// minutes-scanner executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetline/minutes-scanner/internal/app"
	"github.com/fleetline/minutes-scanner/internal/config"
	"github.com/fleetline/minutes-scanner/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can
// replace it with a mock factory.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minutes-scanner",
		Short: "Scans city-council meeting minutes for fleet keywords.",
		Long: `minutes-scanner is the background scanning service of the CRM.
It searches the web for city-council meeting minutes and agendas,
extracts their text, and records every mention of the configured
sanitation-fleet vocabulary for the sales dashboard.`,

		// Build and inject the application after flags are parsed but
		// before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			ctx = context.WithValue(ctx, cfgKey, cfg)
			cmd.SetContext(ctx)
			return nil
		},

		// Shut services down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults apply without one)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScanCmd())

	return cmd
}

type cfgKeyType string

const cfgKey cfgKeyType = "config"

// resolveApp extracts the injected App from the command context.
func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// resolveConfig extracts the loaded config from the command context.
func resolveConfig(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(cfgKey).(config.Config)
	if !ok {
		return config.Config{}, fmt.Errorf("configuration not initialized")
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
