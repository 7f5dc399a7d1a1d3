// Package cities enumerates the store's available cities from the
// city-selector endpoint.
package cities

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
	"github.com/pricefeed/fixprice-crawler/internal/walker"
)

// RequestSource builds the city-selector request.
type RequestSource interface {
	CitiesRequest() catalog.FetchRequest
}

// Enumerator fetches and decodes the city list. It goes through the same
// guarded fetch as the catalog walkers, so retry and politeness policy
// apply identically.
type Enumerator struct {
	fetcher   walker.PageFetcher
	source    RequestSource
	extractor catalog.CityExtractor
	logger    *zap.Logger
}

// New constructs an Enumerator.
func New(fetcher walker.PageFetcher, source RequestSource, extractor catalog.CityExtractor, logger *zap.Logger) *Enumerator {
	return &Enumerator{
		fetcher:   fetcher,
		source:    source,
		extractor: extractor,
		logger:    logger,
	}
}

// Enumerate returns the available cities, deduplicated by id and sorted by
// name. The selector listing should already be unique by id; the dedup is a
// guard against the source repeating entries.
func (e *Enumerator) Enumerate(ctx context.Context) ([]catalog.City, error) {
	resp, err := e.fetcher.FetchPage(ctx, e.source.CitiesRequest())
	if err != nil {
		return nil, fmt.Errorf("fetch city selector: %w", err)
	}
	cities, err := e.extractor.ExtractCities(resp)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(cities))
	unique := cities[:0]
	for _, c := range cities {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		unique = append(unique, c)
	}
	sort.Slice(unique, func(i, j int) bool {
		return unique[i].Name < unique[j].Name
	})

	e.logger.Info("cities enumerated", zap.Int("count", len(unique)))
	return unique, nil
}

// WriteJSON renders the city list as a JSON array.
func WriteJSON(w io.Writer, cities []catalog.City) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cities); err != nil {
		return fmt.Errorf("encode cities: %w", err)
	}
	return nil
}

// WriteTable renders the city list as an aligned two-column text table.
func WriteTable(w io.Writer, cities []catalog.City) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "City\tID"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range cities {
		if _, err := fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.ID); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}
