package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/contact"
	"github.com/JakeFAU/contact-crawler/internal/crawler"
)

// newBatchCmd creates the 'batch' subcommand. Domains come from the arguments
// and from a file holding one domain per line.
func newBatchCmd() *cobra.Command {
	var (
		mode     string
		filePath string
	)
	cmd := &cobra.Command{
		Use:   "batch [domains...]",
		Short: "Scrapes many domains in rate-limited windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			crawlMode, err := resolveMode(mode, appInstance)
			if err != nil {
				return err
			}

			domains := append([]string(nil), args...)
			if filePath != "" {
				fromFile, err := readDomainsFile(filePath)
				if err != nil {
					return err
				}
				domains = append(domains, fromFile...)
			}
			if len(domains) == 0 {
				return errors.New("no domains given: pass them as arguments or with --file")
			}

			tasks := make([]contact.CrawlTask, 0, len(domains))
			for _, d := range domains {
				tasks = append(tasks, contact.NewCrawlTask(d, nil))
			}

			logger := appInstance.Logger.Named("batch")
			records := appInstance.Scheduler.ProcessAll(cmd.Context(), tasks, crawlMode, func(p crawler.Progress) {
				logger.Info("Batch progress", zap.Int("current", p.Current), zap.Int("total", p.Total))
			})
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "crawl mode: quick or comprehensive (default from crawl.mode)")
	cmd.Flags().StringVar(&filePath, "file", "", "file with one domain per line; # starts a comment")
	return cmd
}

func readDomainsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domains file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readDomains(f)
}

// readDomains returns the non-blank lines of r that are not comments.
func readDomains(r io.Reader) ([]string, error) {
	var domains []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read domains: %w", err)
	}
	return domains, nil
}
