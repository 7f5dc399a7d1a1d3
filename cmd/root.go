// Package cmd defines and implements the CLI commands for the fixcrawl
// executable.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixcrawl",
		Short: "Catalog crawler for the fix-price.com store",
		Long: `fixcrawl crawls the fix-price.com catalog for a chosen city and a set of
category slugs, deduplicates the extracted products across categories, and
writes them as a single JSON document. A second command enumerates the
cities the store recognizes, for use as crawl input.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newCitiesCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
