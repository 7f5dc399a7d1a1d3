package fixprice

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
)

// DefaultBaseURL is the production buyer API root.
const DefaultBaseURL = "https://api.fix-price.com/buyer/v1"

// API builds requests against the buyer API. The page token on the wire is
// the 1-based page number rendered as a string.
type API struct {
	BaseURL   string
	Key       string
	Language  string
	UserAgent string
	PageLimit int
}

// ListingRequest builds the POST request for one listing page of a category.
func (a *API) ListingRequest(cursor catalog.PageCursor) catalog.FetchRequest {
	page := cursor.NextToken
	if page == "" {
		page = "1"
	}
	return catalog.FetchRequest{
		Method: http.MethodPost,
		URL: fmt.Sprintf("%s/product/in/%s?limit=%d&page=%s",
			a.BaseURL, cursor.Category.Slug, a.PageLimit, page),
		Headers: a.headers(cursor.Category.City),
	}
}

// CitiesRequest builds the GET request for the city-selector endpoint.
func (a *API) CitiesRequest() catalog.FetchRequest {
	return catalog.FetchRequest{
		Method:  http.MethodGet,
		URL:     a.BaseURL + "/location/city",
		Headers: a.headers(catalog.City{}),
	}
}

// headers reproduces the browser header set the site expects. The x-city
// header scopes prices and stock to the resolved city.
func (a *API) headers(city catalog.City) http.Header {
	h := http.Header{}
	h.Set("User-Agent", a.UserAgent)
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Content-Type", "application/json")
	h.Set("Referer", "https://fix-price.com/")
	h.Set("Origin", "https://fix-price.com")
	if a.Language != "" {
		h.Set("x-language", a.Language)
	}
	if a.Key != "" {
		h.Set("X-Key", a.Key)
	}
	if city.ID > 0 {
		h.Set("x-city", strconv.Itoa(city.ID))
	}
	return h
}
