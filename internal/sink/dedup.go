// Package sink owns the deduplicated product set and the output document.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
	"github.com/pricefeed/fixprice-crawler/internal/metrics"
)

// ProductStore optionally mirrors finalized products into a database.
type ProductStore interface {
	InsertProducts(ctx context.Context, runID string, products []catalog.Product) error
}

// DedupSink normalizes raw records into Products keyed by SKU and is the
// single writer of the output document. Accept is safe for concurrent use.
type DedupSink struct {
	mu     sync.Mutex
	bySKU  map[string]*catalog.Product
	closed bool

	blob        catalog.BlobStore
	objectPath  string
	contentType string
	clock       catalog.Clock
	store       ProductStore
	runID       string
	logger      *zap.Logger
}

// Option customizes a DedupSink.
type Option func(*DedupSink)

// WithProductStore mirrors finalized products into the given store.
func WithProductStore(store ProductStore, runID string) Option {
	return func(s *DedupSink) {
		s.store = store
		s.runID = runID
	}
}

// New constructs a DedupSink writing its document through blob at objectPath.
func New(blob catalog.BlobStore, objectPath, contentType string, clock catalog.Clock, logger *zap.Logger, opts ...Option) *DedupSink {
	s := &DedupSink{
		bySKU:       make(map[string]*catalog.Product),
		blob:        blob,
		objectPath:  objectPath,
		contentType: contentType,
		clock:       clock,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept validates and normalizes one raw record. The first sighting of a
// SKU creates the Product; later sightings only extend its category set.
func (s *DedupSink) Accept(rec catalog.RawRecord, source catalog.Category) error {
	product, err := normalize(rec, source, s.clock)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink already finalized")
	}
	if existing, ok := s.bySKU[product.SKU]; ok {
		if !containsSlug(existing.CategorySlugs, source.Slug) {
			existing.CategorySlugs = append(existing.CategorySlugs, source.Slug)
		}
		metrics.DuplicatesMergedTotal.Inc()
		return nil
	}
	s.bySKU[product.SKU] = product
	metrics.ProductsAcceptedTotal.Inc()
	return nil
}

// Finalize writes the product set, sorted by SKU, as one JSON array and
// returns the number of distinct products written.
func (s *DedupSink) Finalize(ctx context.Context) (int, error) {
	s.mu.Lock()
	s.closed = true
	products := make([]catalog.Product, 0, len(s.bySKU))
	for _, p := range s.bySKU {
		sort.Strings(p.CategorySlugs)
		products = append(products, *p)
	}
	s.mu.Unlock()

	sort.Slice(products, func(i, j int) bool {
		return products[i].SKU < products[j].SKU
	})

	payload, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal products: %w", err)
	}
	uri, err := s.blob.PutObject(ctx, s.objectPath, s.contentType, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("write output: %w", err)
	}
	s.logger.Info("output document written",
		zap.String("uri", uri),
		zap.Int("products", len(products)),
	)

	if s.store != nil {
		// A database mirror failure must not fail a run whose document was
		// written; it is logged and the run proceeds.
		if err := s.store.InsertProducts(ctx, s.runID, products); err != nil {
			s.logger.Error("product store mirror failed", zap.Error(err))
		}
	}
	return len(products), nil
}

// normalize promotes a raw record to a canonical Product. Malformed records
// are rejected, never coerced.
func normalize(rec catalog.RawRecord, source catalog.Category, clock catalog.Clock) (*catalog.Product, error) {
	if rec.SKU == "" {
		return nil, fmt.Errorf("record has no sku")
	}
	if rec.Title == "" {
		return nil, fmt.Errorf("record %s has no title", rec.SKU)
	}
	if rec.Price == nil || *rec.Price <= 0 {
		return nil, fmt.Errorf("record %s has no usable price", rec.SKU)
	}

	price := catalog.Price{
		Current:  *rec.Price,
		Original: *rec.Price,
	}
	if rec.SpecialPrice != nil && *rec.SpecialPrice > 0 && *rec.SpecialPrice < *rec.Price {
		price.Current = *rec.SpecialPrice
		pct := (*rec.Price - *rec.SpecialPrice) / *rec.Price * 100
		price.SaleTag = fmt.Sprintf("Скидка %d%%", int(math.Round(pct)))
	}

	stock := catalog.Stock{}
	if rec.StockCount != nil {
		stock.Count = *rec.StockCount
		stock.InStock = *rec.StockCount > 0
	}

	assets := catalog.Assets{
		SetImages: rec.Images,
		Video:     rec.VideoLink,
	}
	if len(rec.Images) > 0 {
		assets.MainImage = rec.Images[0]
	}

	return &catalog.Product{
		SKU:           rec.SKU,
		Name:          rec.Title,
		URL:           productURL(rec.URL),
		Brand:         rec.Brand,
		Price:         price,
		Stock:         stock,
		Assets:        assets,
		Description:   rec.Description,
		Variants:      rec.Variants,
		CategorySlugs: []string{source.Slug},
		FirstSeen:     clock.Now(),
	}, nil
}

func productURL(itemPath string) string {
	if itemPath == "" {
		return ""
	}
	return "https://fix-price.com/catalog/" + itemPath
}

func containsSlug(slugs []string, slug string) bool {
	for _, s := range slugs {
		if s == slug {
			return true
		}
	}
	return false
}
