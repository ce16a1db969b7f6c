// Package cmd defines and implements the CLI commands for the seoscan
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/api"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/app"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/config"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/dispatcher"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/export"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/logging"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the set of services the commands use. Tests inject a fake.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetService() *scanner.Service
	GetExporter() *export.Exporter
	GetDispatcher() *dispatcher.Dispatcher
	NewServer() *api.Server
}

// newApp is the application factory; tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "seoscan",
		Short: "Finds Norwegian hotels with weak websites.",
		Long: `seoscan lists accommodation businesses from Brønnøysundregistrene,
scores each one's website against an SEO rubric, and ranks them by how much
a business of that size stands to gain from better SEO.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMunicipalitiesCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
