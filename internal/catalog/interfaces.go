package catalog

import (
	"context"
	"io"
	"time"
)

// Fetcher performs a single network request. Implementations hold no retry
// logic; retry policy belongs to the scheduler.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// ListingExtractor turns a listing-page response into raw records plus the
// pagination verdict for the category walk.
type ListingExtractor interface {
	ExtractListing(resp FetchResponse, cursor PageCursor) ([]RawRecord, Pagination, error)
}

// CityExtractor turns a city-selector response into the available cities.
type CityExtractor interface {
	ExtractCities(resp FetchResponse) ([]City, error)
}

// Sink accepts raw records from concurrently running walkers and owns the
// deduplicated product set. Accept must be safe for concurrent use.
type Sink interface {
	Accept(rec RawRecord, source Category) error
	Finalize(ctx context.Context) (int, error)
}

// BlobStore writes a finished artifact and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Clock returns the current time (swappable for testing).
type Clock interface {
	Now() time.Time
}
