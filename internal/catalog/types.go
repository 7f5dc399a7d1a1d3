package catalog

import (
	"net/http"
	"time"
)

// City identifies a store region. The ID scopes every catalog request via
// the x-city header; prices and stock differ between cities.
type City struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Category is one requested catalog slug crawled under a resolved city.
// Slugs may be nested ("dlya-doma/tovary-dlya-uborki"); membership is exactly
// the slug crawled, parent slugs are never inferred.
type Category struct {
	Slug string
	City City
}

// PageCursor is the pagination position of a single category walk. It is
// owned and mutated only by the walker driving that category.
type PageCursor struct {
	Category  Category
	PageIndex int
	NextToken string
}

// Pagination is the extractor's verdict on where a category walk goes next.
// End set means end-of-results; otherwise NextToken advances the cursor.
type Pagination struct {
	NextToken string
	End       bool
}

// RawRecord is the unvalidated field set extracted from one listing entry.
// Optional fields stay as pointers so validation can tell "absent" from
// "zero" before promotion to a Product.
type RawRecord struct {
	SKU          string
	Title        string
	URL          string
	Brand        string
	Price        *float64
	SpecialPrice *float64
	StockCount   *int
	Images       []string
	VideoLink    string
	Description  string
	Variants     int
}

// Price carries the current and original price plus the sale tag derived
// from a special price, matching the shape the downstream feed expects.
type Price struct {
	Current  float64 `json:"current"`
	Original float64 `json:"original"`
	SaleTag  string  `json:"sale_tag,omitempty"`
}

// Stock reports availability summed across product variants.
type Stock struct {
	InStock bool `json:"in_stock"`
	Count   int  `json:"count"`
}

// Assets holds the media references attached to a product.
type Assets struct {
	MainImage string   `json:"main_image,omitempty"`
	SetImages []string `json:"set_images,omitempty"`
	Video     string   `json:"video,omitempty"`
}

// Product is the canonical deduplicated entity keyed by SKU. CategorySlugs
// accumulates every slug the SKU was sighted under during the run.
type Product struct {
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	URL           string    `json:"url,omitempty"`
	Brand         string    `json:"brand,omitempty"`
	Price         Price     `json:"price"`
	Stock         Stock     `json:"stock"`
	Assets        Assets    `json:"assets"`
	Description   string    `json:"description,omitempty"`
	Variants      int       `json:"variants"`
	CategorySlugs []string  `json:"category_slugs"`
	FirstSeen     time.Time `json:"first_seen"`
}

// TerminalStatus is the final state of one category walk.
type TerminalStatus string

// Terminal states reported in a CrawlOutcome.
const (
	StatusCompleted TerminalStatus = "completed"
	StatusFailed    TerminalStatus = "failed"
)

// CrawlOutcome summarizes one category walk for the run report.
type CrawlOutcome struct {
	Category         Category
	PagesFetched     int
	RecordsExtracted int
	Status           TerminalStatus
	Err              error
}

// Completed reports whether the walk reached end-of-results.
func (o CrawlOutcome) Completed() bool {
	return o.Status == StatusCompleted
}

// PageType tells the extractor which schema to apply to a response body.
type PageType string

// Page types handled by the extractors.
const (
	PageTypeListing      PageType = "listing"
	PageTypeCitySelector PageType = "city_selector"
)

// FetchRequest captures everything needed to fetch one API page.
type FetchRequest struct {
	Method  string
	URL     string
	Headers http.Header
}

// FetchResponse is the raw result returned by a Fetcher.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}
