package fixprice

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
)

const listingPayload = `[
  {
    "sku": "P-100",
    "title": "Кружка керамическая",
    "url": "posuda/kruzhka-100",
    "brand": {"title": "HomeLine"},
    "variants": [
      {"price": "99.00", "count": 12},
      {"price": "99.00", "count": 5}
    ],
    "specialPrice": {"price": "79.00"},
    "images": [{"src": "https://img.fix-price.com/100-1.jpg"}, {"src": ""}],
    "videoLink": "",
    "description": "Кружка 300 мл"
  },
  {
    "sku": "P-200",
    "title": "Губка для посуды",
    "url": "uborka/gubka-200",
    "variants": [{"price": 35, "count": 0}]
  }
]`

func listingResponse(body string, total string) catalog.FetchResponse {
	headers := http.Header{}
	if total != "" {
		headers.Set("X-Count", total)
	}
	return catalog.FetchResponse{
		URL:        "https://api.fix-price.com/buyer/v1/product/in/posuda?limit=2&page=1",
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       []byte(body),
	}
}

func TestExtractListingRecords(t *testing.T) {
	t.Parallel()

	e := &Extractor{PageLimit: 2}
	cursor := catalog.PageCursor{
		Category:  catalog.Category{Slug: "posuda"},
		PageIndex: 1,
	}

	records, pagination, err := e.ExtractListing(listingResponse(listingPayload, "3"), cursor)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "P-100", first.SKU)
	assert.Equal(t, "Кружка керамическая", first.Title)
	assert.Equal(t, "posuda/kruzhka-100", first.URL)
	assert.Equal(t, "HomeLine", first.Brand)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 99.0, *first.Price, 0.001)
	require.NotNil(t, first.SpecialPrice)
	assert.InDelta(t, 79.0, *first.SpecialPrice, 0.001)
	require.NotNil(t, first.StockCount)
	assert.Equal(t, 17, *first.StockCount)
	assert.Equal(t, 2, first.Variants)
	// Empty image sources are dropped.
	assert.Equal(t, []string{"https://img.fix-price.com/100-1.jpg"}, first.Images)

	second := records[1]
	assert.Empty(t, second.Brand)
	assert.Nil(t, second.SpecialPrice)
	require.NotNil(t, second.Price)
	assert.InDelta(t, 35.0, *second.Price, 0.001)
	require.NotNil(t, second.StockCount)
	assert.Zero(t, *second.StockCount)

	// 3 total, 2 per page: page 1 is not the last.
	assert.False(t, pagination.End)
	assert.Equal(t, "2", pagination.NextToken)
}

func TestExtractListingPagination(t *testing.T) {
	t.Parallel()

	e := &Extractor{PageLimit: 2}

	t.Run("TotalExhausted", func(t *testing.T) {
		cursor := catalog.PageCursor{PageIndex: 2, NextToken: "2"}
		_, pagination, err := e.ExtractListing(listingResponse(listingPayload, "3"), cursor)
		require.NoError(t, err)
		assert.True(t, pagination.End)
	})

	t.Run("EmptyPage", func(t *testing.T) {
		cursor := catalog.PageCursor{PageIndex: 1}
		records, pagination, err := e.ExtractListing(listingResponse("[]", "50"), cursor)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.True(t, pagination.End)
	})

	t.Run("NoCountHeaderFullPage", func(t *testing.T) {
		cursor := catalog.PageCursor{PageIndex: 1}
		_, pagination, err := e.ExtractListing(listingResponse(listingPayload, ""), cursor)
		require.NoError(t, err)
		assert.False(t, pagination.End)
		assert.Equal(t, "2", pagination.NextToken)
	})

	t.Run("NoCountHeaderShortPage", func(t *testing.T) {
		short := &Extractor{PageLimit: 24}
		cursor := catalog.PageCursor{PageIndex: 1}
		_, pagination, err := short.ExtractListing(listingResponse(listingPayload, ""), cursor)
		require.NoError(t, err)
		assert.True(t, pagination.End)
	})

	t.Run("MalformedCountHeaderFallsBack", func(t *testing.T) {
		cursor := catalog.PageCursor{PageIndex: 1}
		_, pagination, err := e.ExtractListing(listingResponse(listingPayload, "many"), cursor)
		require.NoError(t, err)
		assert.False(t, pagination.End)
		assert.Equal(t, "2", pagination.NextToken)
	})
}

func TestExtractListingMalformedBody(t *testing.T) {
	t.Parallel()

	e := &Extractor{PageLimit: 24}
	cursor := catalog.PageCursor{PageIndex: 1}

	_, _, err := e.ExtractListing(listingResponse(`{"not":"an array"}`, ""), cursor)
	require.Error(t, err)
	assert.True(t, catalog.IsExtractionError(err))
	assert.False(t, catalog.IsRetryable(err))
}

func TestExtractCities(t *testing.T) {
	t.Parallel()

	e := &Extractor{}

	cities, err := e.ExtractCities(catalog.FetchResponse{
		Body: []byte(`[{"id": 55, "name": "Москва"}, {"id": 3, "name": "Казань"}]`),
	})
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, catalog.City{ID: 55, Name: "Москва"}, cities[0])

	_, err = e.ExtractCities(catalog.FetchResponse{Body: []byte(`not json`)})
	require.Error(t, err)
	assert.True(t, catalog.IsExtractionError(err))
}

func TestFlexFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"QuotedString", `"99.50"`, 99.50},
		{"Number", `35`, 35},
		{"Null", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f flexFloat
			require.NoError(t, f.UnmarshalJSON([]byte(tt.in)))
			assert.InDelta(t, tt.want, float64(f), 0.001)
		})
	}

	var f flexFloat
	assert.Error(t, f.UnmarshalJSON([]byte(`"free"`)))
}
