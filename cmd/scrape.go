package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/contact"
	"github.com/JakeFAU/contact-crawler/internal/logging"
)

// newScrapeCmd creates the 'scrape' subcommand, which crawls one domain and
// prints its record as JSON.
func newScrapeCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "scrape <domain>",
		Short: "Scrapes contact information from a single domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			crawlMode, err := resolveMode(mode, appInstance)
			if err != nil {
				return err
			}
			task := contact.NewCrawlTask(args[0], nil)
			if task.Domain == "" {
				return fmt.Errorf("invalid domain %q", args[0])
			}

			record := appInstance.Scraper.ScrapeDomain(cmd.Context(), task, crawlMode,
				logging.Progress(appInstance.Logger, task.Domain))
			if record.Error != "" {
				appInstance.Logger.Warn("Scrape finished with error",
					zap.String("domain", record.Domain),
					zap.String("error", record.Error),
				)
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "crawl mode: quick or comprehensive (default from crawl.mode)")
	return cmd
}

// resolveMode prefers the flag and falls back to the configured mode.
func resolveMode(flag string, appInstance *App) (contact.Mode, error) {
	if flag == "" {
		flag = appInstance.Config.Crawl.Mode
	}
	mode, err := contact.ParseMode(flag)
	if err != nil {
		return "", fmt.Errorf("parse mode: %w", err)
	}
	return mode, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
