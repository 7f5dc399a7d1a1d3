// Package walker drives the per-category pagination state machine.
package walker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
	"github.com/pricefeed/fixprice-crawler/internal/progress"
)

// PageFetcher is the guarded fetch the scheduler provides: concurrency cap,
// politeness delay and retry policy are already applied inside.
type PageFetcher interface {
	FetchPage(ctx context.Context, req catalog.FetchRequest) (catalog.FetchResponse, error)
}

// RequestBuilder maps a pagination cursor onto a concrete API request.
type RequestBuilder interface {
	ListingRequest(cursor catalog.PageCursor) catalog.FetchRequest
}

// Walker walks one category's listing pages in strict pagination order,
// emitting records to the sink as each page is extracted. A walker is used
// for exactly one run; it never restarts after a terminal state.
type Walker struct {
	category  catalog.Category
	fetcher   PageFetcher
	builder   RequestBuilder
	extractor catalog.ListingExtractor
	sink      catalog.Sink
	tracker   *progress.Tracker
	logger    *zap.Logger
}

// New constructs a Walker for one category.
func New(
	category catalog.Category,
	fetcher PageFetcher,
	builder RequestBuilder,
	extractor catalog.ListingExtractor,
	sink catalog.Sink,
	tracker *progress.Tracker,
	logger *zap.Logger,
) *Walker {
	return &Walker{
		category:  category,
		fetcher:   fetcher,
		builder:   builder,
		extractor: extractor,
		sink:      sink,
		tracker:   tracker,
		logger:    logger,
	}
}

// Run executes the walk until end-of-results or a terminal failure and
// returns the outcome. Records emitted before a failure are kept.
func (w *Walker) Run(ctx context.Context) catalog.CrawlOutcome {
	outcome := catalog.CrawlOutcome{Category: w.category}
	cursor := catalog.PageCursor{Category: w.category, PageIndex: 1}
	visited := map[string]struct{}{currentToken(cursor): {}}

	w.tracker.CategoryStarted(w.category.Slug)

	for {
		if err := ctx.Err(); err != nil {
			return w.fail(outcome, fmt.Errorf("walk canceled: %w", err))
		}

		resp, err := w.fetcher.FetchPage(ctx, w.builder.ListingRequest(cursor))
		if err != nil {
			return w.fail(outcome, err)
		}
		outcome.PagesFetched++
		w.tracker.PageFetched(w.category.Slug)

		records, pagination, err := w.extractor.ExtractListing(resp, cursor)
		if err != nil {
			// Schema mismatch yields zero records for this page; without a
			// usable next-page token the category ends here.
			w.logger.Warn("listing extraction failed",
				zap.String("category", w.category.Slug),
				zap.Int("page", cursor.PageIndex),
				zap.Error(err),
			)
			return w.fail(outcome, err)
		}

		for _, rec := range records {
			if err := w.sink.Accept(rec, w.category); err != nil {
				w.logger.Warn("record rejected",
					zap.String("category", w.category.Slug),
					zap.String("sku", rec.SKU),
					zap.Error(err),
				)
				continue
			}
			outcome.RecordsExtracted++
		}
		w.tracker.RecordsExtracted(w.category.Slug, outcome.RecordsExtracted)

		if pagination.End {
			return w.done(outcome)
		}
		if _, seen := visited[pagination.NextToken]; seen {
			// Repeated token: the source is looping, treat as end-of-results
			// so the walk always terminates.
			w.logger.Info("pagination cycle detected",
				zap.String("category", w.category.Slug),
				zap.String("token", pagination.NextToken),
			)
			return w.done(outcome)
		}
		visited[pagination.NextToken] = struct{}{}
		cursor.PageIndex++
		cursor.NextToken = pagination.NextToken
	}
}

func (w *Walker) done(outcome catalog.CrawlOutcome) catalog.CrawlOutcome {
	outcome.Status = catalog.StatusCompleted
	w.tracker.CategoryFinished(w.category.Slug, string(catalog.StatusCompleted))
	w.logger.Info("category completed",
		zap.String("category", w.category.Slug),
		zap.Int("pages", outcome.PagesFetched),
		zap.Int("records", outcome.RecordsExtracted),
	)
	return outcome
}

func (w *Walker) fail(outcome catalog.CrawlOutcome, err error) catalog.CrawlOutcome {
	outcome.Status = catalog.StatusFailed
	outcome.Err = err
	w.tracker.CategoryFinished(w.category.Slug, string(catalog.StatusFailed))
	w.logger.Error("category failed",
		zap.String("category", w.category.Slug),
		zap.Int("pages", outcome.PagesFetched),
		zap.Int("records", outcome.RecordsExtracted),
		zap.Error(err),
	)
	return outcome
}

func currentToken(cursor catalog.PageCursor) string {
	if cursor.NextToken == "" {
		return "1"
	}
	return cursor.NextToken
}
