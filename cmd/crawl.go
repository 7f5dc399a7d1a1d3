package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	gstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricefeed/fixprice-crawler/internal/api"
	"github.com/pricefeed/fixprice-crawler/internal/catalog"
	"github.com/pricefeed/fixprice-crawler/internal/clock/system"
	"github.com/pricefeed/fixprice-crawler/internal/config"
	"github.com/pricefeed/fixprice-crawler/internal/fetch"
	"github.com/pricefeed/fixprice-crawler/internal/fixprice"
	"github.com/pricefeed/fixprice-crawler/internal/logging"
	"github.com/pricefeed/fixprice-crawler/internal/progress"
	"github.com/pricefeed/fixprice-crawler/internal/schedule"
	"github.com/pricefeed/fixprice-crawler/internal/sink"
	"github.com/pricefeed/fixprice-crawler/internal/storage/gcs"
	"github.com/pricefeed/fixprice-crawler/internal/storage/local"
	"github.com/pricefeed/fixprice-crawler/internal/store"
)

type crawlFlags struct {
	cityID      int
	categories  string
	out         string
	concurrency int
	delayMs     int
	dsn         string
	metricsAddr string
}

func newCrawlCmd() *cobra.Command {
	var flags crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl catalog categories and write the product document",
		Long: `Crawls every requested category slug under the given city, walking each
category's listing pages to the end, deduplicating products by SKU across
categories, and writing the result as one JSON array.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, flags)
		},
	}
	cmd.Flags().IntVar(&flags.cityID, "city", 0, "city id (see the cities command)")
	cmd.Flags().StringVar(&flags.categories, "categories", "", "comma-separated category slugs")
	cmd.Flags().StringVar(&flags.out, "out", "", "output path (local file or gs://bucket/object)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "global concurrent fetch cap")
	cmd.Flags().IntVar(&flags.delayMs, "delay-ms", -1, "politeness delay between fetches to the same host")
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "optional Postgres DSN to mirror products into")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "optional listen address for /metrics and /progress")
	return cmd
}

func runCrawl(cmd *cobra.Command, flags crawlFlags) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyCrawlFlags(&cfg, cmd, flags)

	if cfg.Crawler.CityID <= 0 {
		return errors.New("a city id is required (--city)")
	}
	if len(cfg.Crawler.Categories) == 0 {
		return errors.New("at least one category slug is required (--categories)")
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	clk := system.New()
	logger.Info("crawl starting",
		zap.String("run_id", runID),
		zap.Int("city", cfg.Crawler.CityID),
		zap.Strings("categories", cfg.Crawler.Categories),
		zap.Int("concurrency", cfg.Crawler.Concurrency),
	)

	client, err := fetch.NewClient(fetch.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		RequestTimeout: cfg.RequestTimeout(),
		Concurrency:    cfg.Crawler.Concurrency,
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
	tracker := progress.NewTracker(clk.Now())

	base, maxDelay := cfg.Backoff()
	sched := schedule.New(
		client,
		apiSurface,
		extractor,
		schedule.NewRetryPolicy(cfg.Crawler.MaxRetries, base, maxDelay),
		cfg.Crawler.Concurrency,
		cfg.PolitenessDelay(),
		tracker,
		logger,
	)

	blob, objectPath, err := buildBlobStore(ctx, cfg.Output.Path)
	if err != nil {
		return err
	}

	var opts []sink.Option
	var productStore *store.ProductStore
	if cfg.DB.DSN != "" {
		productStore, err = store.New(ctx, store.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("init product store: %w", err)
		}
		defer productStore.Close()
		opts = append(opts, sink.WithProductStore(productStore, runID))
	}
	snk := sink.New(blob, objectPath, cfg.Output.ContentType, clk, logger, opts...)

	if cfg.Metrics.Addr != "" {
		srv := api.NewServer(tracker, logger)
		go func() {
			if err := srv.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Warn("observability server failed", zap.Error(err))
			}
		}()
	}

	city := catalog.City{ID: cfg.Crawler.CityID}
	outcomes := sched.Run(ctx, city, cfg.Crawler.Categories, snk)

	// Finalize on a fresh context so an interrupted run still flushes what
	// it extracted before the signal.
	finalizeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	written, finalizeErr := snk.Finalize(finalizeCtx)

	completed := summarize(logger, outcomes, written)
	if productStore != nil {
		if err := productStore.RecordRun(finalizeCtx, runID, city, outcomes, written); err != nil {
			logger.Error("record run failed", zap.Error(err))
		}
	}

	if finalizeErr != nil {
		return fmt.Errorf("finalize output: %w", finalizeErr)
	}
	if completed == 0 {
		return errors.New("no category completed")
	}
	return nil
}

func summarize(logger *zap.Logger, outcomes []catalog.CrawlOutcome, written int) int {
	completed := 0
	for _, o := range outcomes {
		fields := []zap.Field{
			zap.String("category", o.Category.Slug),
			zap.String("status", string(o.Status)),
			zap.Int("pages", o.PagesFetched),
			zap.Int("records", o.RecordsExtracted),
		}
		if o.Err != nil {
			fields = append(fields, zap.Error(o.Err))
		}
		logger.Info("category outcome", fields...)
		if o.Completed() {
			completed++
		}
	}
	logger.Info("crawl finished",
		zap.Int("categories_completed", completed),
		zap.Int("categories_failed", len(outcomes)-completed),
		zap.Int("products_written", written),
	)
	return completed
}

func applyCrawlFlags(cfg *config.Config, cmd *cobra.Command, flags crawlFlags) {
	if cmd.Flags().Changed("city") {
		cfg.Crawler.CityID = flags.cityID
	}
	if cmd.Flags().Changed("categories") {
		cfg.Crawler.Categories = splitSlugs(flags.categories)
	}
	if cmd.Flags().Changed("out") {
		cfg.Output.Path = flags.out
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Crawler.Concurrency = flags.concurrency
	}
	if cmd.Flags().Changed("delay-ms") {
		cfg.Crawler.DelayMs = flags.delayMs
	}
	if cmd.Flags().Changed("dsn") {
		cfg.DB.DSN = flags.dsn
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
	}
}

func splitSlugs(raw string) []string {
	parts := strings.Split(raw, ",")
	slugs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			slugs = append(slugs, trimmed)
		}
	}
	return slugs
}

// buildBlobStore picks the blob backend from the output path: gs:// URIs go
// to GCS, everything else to the local filesystem.
func buildBlobStore(ctx context.Context, outputPath string) (catalog.BlobStore, string, error) {
	if bucket, object, ok := strings.Cut(strings.TrimPrefix(outputPath, "gs://"), "/"); ok && strings.HasPrefix(outputPath, "gs://") {
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("init gcs client: %w", err)
		}
		blob, err := gcs.New(client, bucket)
		if err != nil {
			return nil, "", err
		}
		return blob, object, nil
	}

	dir := filepath.Dir(outputPath)
	blob, err := local.New(dir)
	if err != nil {
		return nil, "", fmt.Errorf("init output dir: %w", err)
	}
	return blob, filepath.Base(outputPath), nil
}
