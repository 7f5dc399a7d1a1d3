package fixprice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
)

// countHeader carries the total item count for a category; the API sets it
// on every listing response.
const countHeader = "X-Count"

// Extractor decodes buyer API payloads into raw records. It implements
// catalog.ListingExtractor and catalog.CityExtractor.
type Extractor struct {
	PageLimit int
}

// flexFloat accepts JSON numbers or numeric strings; the API renders prices
// as strings ("99.00").
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type listingItem struct {
	SKU   string `json:"sku"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Brand *struct {
		Title string `json:"title"`
	} `json:"brand"`
	Variants []struct {
		Price flexFloat `json:"price"`
		Count int       `json:"count"`
	} `json:"variants"`
	SpecialPrice *struct {
		Price flexFloat `json:"price"`
	} `json:"specialPrice"`
	Images []struct {
		Src string `json:"src"`
	} `json:"images"`
	VideoLink   string `json:"videoLink"`
	Description string `json:"description"`
}

// ExtractListing decodes one listing page into raw records and decides
// whether the category walk continues. End-of-results is signaled by an
// empty item list or by the X-Count total being exhausted.
func (e *Extractor) ExtractListing(resp catalog.FetchResponse, cursor catalog.PageCursor) ([]catalog.RawRecord, catalog.Pagination, error) {
	var items []listingItem
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, catalog.Pagination{}, &catalog.ExtractionError{
			PageType: catalog.PageTypeListing,
			Err:      err,
		}
	}

	records := make([]catalog.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, toRawRecord(item))
	}

	return records, e.paginate(resp, cursor, len(items)), nil
}

func toRawRecord(item listingItem) catalog.RawRecord {
	rec := catalog.RawRecord{
		SKU:         item.SKU,
		Title:       item.Title,
		URL:         item.URL,
		VideoLink:   item.VideoLink,
		Description: item.Description,
		Variants:    len(item.Variants),
	}
	if item.Brand != nil {
		rec.Brand = item.Brand.Title
	}
	if len(item.Variants) > 0 {
		price := float64(item.Variants[0].Price)
		rec.Price = &price
		count := 0
		for _, v := range item.Variants {
			count += v.Count
		}
		rec.StockCount = &count
	}
	if item.SpecialPrice != nil {
		special := float64(item.SpecialPrice.Price)
		rec.SpecialPrice = &special
	}
	for _, img := range item.Images {
		if img.Src != "" {
			rec.Images = append(rec.Images, img.Src)
		}
	}
	return rec
}

func (e *Extractor) paginate(resp catalog.FetchResponse, cursor catalog.PageCursor, pageSize int) catalog.Pagination {
	if pageSize == 0 {
		return catalog.Pagination{End: true}
	}

	limit := e.PageLimit
	if limit <= 0 {
		limit = pageSize
	}

	if totalStr := resp.Headers.Get(countHeader); totalStr != "" {
		if total, err := strconv.Atoi(totalStr); err == nil {
			if cursor.PageIndex*limit >= total {
				return catalog.Pagination{End: true}
			}
			return catalog.Pagination{NextToken: strconv.Itoa(cursor.PageIndex + 1)}
		}
	}

	// No usable total: a short page is the only terminator left.
	if pageSize < limit {
		return catalog.Pagination{End: true}
	}
	return catalog.Pagination{NextToken: strconv.Itoa(cursor.PageIndex + 1)}
}

// ExtractCities decodes the city-selector payload.
func (e *Extractor) ExtractCities(resp catalog.FetchResponse) ([]catalog.City, error) {
	var cities []catalog.City
	if err := json.Unmarshal(resp.Body, &cities); err != nil {
		return nil, &catalog.ExtractionError{
			PageType: catalog.PageTypeCitySelector,
			Err:      err,
		}
	}
	return cities, nil
}
