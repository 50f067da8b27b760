package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type discoverOutput struct {
	URL   string   `json:"url"`
	Links []string `json:"links"`
}

// newDiscoverCmd creates the 'discover' subcommand, which lists the subpages of
// a site most likely to carry contact details.
func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <url>",
		Short: "Lists likely contact pages for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			target := strings.TrimSpace(args[0])
			if !strings.Contains(target, "://") {
				target = "http://" + target
			}
			links, err := appInstance.Discoverer.DiscoverURL(cmd.Context(), target)
			if err != nil {
				return fmt.Errorf("discover %s: %w", target, err)
			}
			if links == nil {
				links = []string{}
			}
			return writeJSON(cmd.OutOrStdout(), discoverOutput{URL: target, Links: links})
		},
	}
}
