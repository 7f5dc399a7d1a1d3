// Package schedule runs category walkers concurrently under a global fetch
// cap, politeness delay and retry policy.
package schedule

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
	"github.com/pricefeed/fixprice-crawler/internal/metrics"
	"github.com/pricefeed/fixprice-crawler/internal/progress"
	"github.com/pricefeed/fixprice-crawler/internal/walker"
)

// Scheduler owns all walker lifetimes for a run and provides the guarded
// fetch (cap, politeness, retry) every walker goes through.
type Scheduler struct {
	fetcher   catalog.Fetcher
	builder   walker.RequestBuilder
	extractor catalog.ListingExtractor
	retry     *RetryPolicy
	sem       *semaphore.Weighted
	limiter   *hostLimiter
	tracker   *progress.Tracker
	logger    *zap.Logger
}

// New constructs a Scheduler.
func New(
	fetcher catalog.Fetcher,
	builder walker.RequestBuilder,
	extractor catalog.ListingExtractor,
	retry *RetryPolicy,
	concurrency int,
	politenessDelay time.Duration,
	tracker *progress.Tracker,
	logger *zap.Logger,
) *Scheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		fetcher:   fetcher,
		builder:   builder,
		extractor: extractor,
		retry:     retry,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		limiter:   newHostLimiter(politenessDelay),
		tracker:   tracker,
		logger:    logger,
	}
}

// Run spawns one walker per category slug and blocks until every walker has
// reached a terminal state. An outcome is reported for every requested slug
// even when some walks fail or the context is canceled.
func (s *Scheduler) Run(ctx context.Context, city catalog.City, slugs []string, sink catalog.Sink) []catalog.CrawlOutcome {
	outcomes := make([]catalog.CrawlOutcome, len(slugs))
	var wg sync.WaitGroup
	for i, slug := range slugs {
		wg.Add(1)
		go func(i int, slug string) {
			defer wg.Done()
			w := walker.New(
				catalog.Category{Slug: slug, City: city},
				s,
				s.builder,
				s.extractor,
				sink,
				s.tracker,
				s.logger,
			)
			outcomes[i] = w.Run(ctx)
		}(i, slug)
	}
	wg.Wait()
	return outcomes
}

// FetchPage performs one guarded page fetch: acquire the global cap, honor
// the politeness slot, fetch, and retry transient failures with backoff.
func (s *Scheduler) FetchPage(ctx context.Context, req catalog.FetchRequest) (catalog.FetchResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := s.fetchOnce(ctx, req)
		if err == nil {
			metrics.PagesFetchedTotal.Inc()
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return catalog.FetchResponse{}, ctxErr
		}
		observeFailure(err)
		if !s.retry.ShouldRetry(err, attempt) {
			return catalog.FetchResponse{}, err
		}
		metrics.RetriesTotal.Inc()
		s.logger.Warn("retrying page fetch",
			zap.String("url", req.URL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		pause(ctx, s.retry.Backoff(attempt))
	}
}

func (s *Scheduler) fetchOnce(ctx context.Context, req catalog.FetchRequest) (catalog.FetchResponse, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return catalog.FetchResponse{}, err
	}
	defer s.sem.Release(1)

	s.limiter.Wait(ctx, hostOf(req.URL))
	if err := ctx.Err(); err != nil {
		return catalog.FetchResponse{}, err
	}

	metrics.FetchesTotal.Inc()
	return s.fetcher.Fetch(ctx, req)
}

func observeFailure(err error) {
	var fe *catalog.FetchError
	if !errors.As(err, &fe) {
		return
	}
	metrics.FetchErrorsTotal.WithLabelValues(string(fe.Kind)).Inc()
	if fe.Kind == catalog.FailureRateLimited {
		metrics.RateLimitHitsTotal.Inc()
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
