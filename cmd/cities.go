package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pricefeed/fixprice-crawler/internal/cities"
	"github.com/pricefeed/fixprice-crawler/internal/clock/system"
	"github.com/pricefeed/fixprice-crawler/internal/config"
	"github.com/pricefeed/fixprice-crawler/internal/fetch"
	"github.com/pricefeed/fixprice-crawler/internal/fixprice"
	"github.com/pricefeed/fixprice-crawler/internal/logging"
	"github.com/pricefeed/fixprice-crawler/internal/progress"
	"github.com/pricefeed/fixprice-crawler/internal/schedule"
)

func newCitiesCmd() *cobra.Command {
	var out string
	var format string
	cmd := &cobra.Command{
		Use:   "cities",
		Short: "List the cities the store recognizes",
		Long: `Fetches the city selector and prints every city with the id accepted by
the crawl command's --city flag.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCities(cmd, out, format)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path (default stdout)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	return cmd
}

func runCities(cmd *cobra.Command, out, format string) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := fetch.NewClient(fetch.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		RequestTimeout: cfg.RequestTimeout(),
		Concurrency:    1,
	}, logger)
	if err != nil {
		return fmt.Errorf("init fetch client: %w", err)
	}

	apiSurface := &fixprice.API{
		BaseURL:   cfg.API.BaseURL,
		Key:       cfg.API.Key,
		Language:  cfg.API.Language,
		UserAgent: cfg.Crawler.UserAgent,
		PageLimit: cfg.Crawler.PageLimit,
	}
	extractor := &fixprice.Extractor{PageLimit: cfg.Crawler.PageLimit}

	// Same guarded-fetch machinery as the catalog crawl, capped at one
	// in-flight request.
	base, maxDelay := cfg.Backoff()
	sched := schedule.New(
		client,
		apiSurface,
		extractor,
		schedule.NewRetryPolicy(cfg.Crawler.MaxRetries, base, maxDelay),
		1,
		cfg.PolitenessDelay(),
		progress.NewTracker(system.New().Now()),
		logger,
	)

	enum := cities.New(sched, apiSurface, extractor, logger)
	list, err := enum.Enumerate(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only close on output file
		w = f
	}

	if format == "json" {
		return cities.WriteJSON(w, list)
	}
	return cities.WriteTable(w, list)
}
