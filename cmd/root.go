// Package cmd defines and implements the CLI commands for the contact-crawler executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/config"
	"github.com/JakeFAU/contact-crawler/internal/logging"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	cfgFile  string
	provider string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "contact-crawler",
		Short: "Scrapes business websites for contact information.",
		Long: `contact-crawler visits a company's website, finds the pages most likely to
carry contact details and extracts emails, phone numbers, named people,
social profiles and contact forms into one record per domain.`,
		SilenceUsage: true,

		// Builds the services once the flags are parsed, before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.cfgFile, opts.provider)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(withApp(cmd.Context(), appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, err := resolveApp(cmd.Context()); err == nil {
				_ = appInstance.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&opts.provider, "provider", "", "page fetcher: colly or ninjas (overrides fetch.provider)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// loadConfig reads the configuration; a non-empty provider overrides fetch.provider.
func loadConfig(cfgFile, provider string) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if provider != "" {
		cfg.Fetch.Provider = provider
		if err := cfg.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	logger, err := logging.New(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logger.Fatal("Command execution failed", zap.Error(err))
	}
}
