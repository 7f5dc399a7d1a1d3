package fixprice

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
)

func testAPI() *API {
	return &API{
		BaseURL:   "https://api.fix-price.com/buyer/v1",
		Key:       "test-key",
		Language:  "ru",
		UserAgent: "test-agent",
		PageLimit: 24,
	}
}

func TestListingRequest(t *testing.T) {
	t.Parallel()

	a := testAPI()
	cursor := catalog.PageCursor{
		Category: catalog.Category{
			Slug: "dlya-doma/tovary-dlya-uborki",
			City: catalog.City{ID: 55},
		},
		PageIndex: 1,
	}

	req := a.ListingRequest(cursor)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t,
		"https://api.fix-price.com/buyer/v1/product/in/dlya-doma/tovary-dlya-uborki?limit=24&page=1",
		req.URL,
	)
	assert.Equal(t, "55", req.Headers.Get("x-city"))
	assert.Equal(t, "ru", req.Headers.Get("x-language"))
	assert.Equal(t, "test-key", req.Headers.Get("X-Key"))
	assert.Equal(t, "test-agent", req.Headers.Get("User-Agent"))
	assert.Equal(t, "https://fix-price.com", req.Headers.Get("Origin"))
}

func TestListingRequestAdvancedCursor(t *testing.T) {
	t.Parallel()

	a := testAPI()
	req := a.ListingRequest(catalog.PageCursor{
		Category:  catalog.Category{Slug: "igrushki", City: catalog.City{ID: 3}},
		PageIndex: 4,
		NextToken: "4",
	})
	assert.Contains(t, req.URL, "page=4")
}

func TestCitiesRequest(t *testing.T) {
	t.Parallel()

	a := testAPI()
	req := a.CitiesRequest()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://api.fix-price.com/buyer/v1/location/city", req.URL)
	// The selector is fetched before a city is resolved.
	assert.Empty(t, req.Headers.Get("x-city"))
	assert.Equal(t, "test-key", req.Headers.Get("X-Key"))
}

func TestHeadersOmitEmptyOptionals(t *testing.T) {
	t.Parallel()

	a := &API{BaseURL: "https://api.fix-price.com/buyer/v1", UserAgent: "ua", PageLimit: 24}
	req := a.CitiesRequest()
	assert.Empty(t, req.Headers.Get("X-Key"))
	assert.Empty(t, req.Headers.Get("x-language"))
}
