// Package fetch implements the network fetch capability on top of Colly.
package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
)

// Config tunes the underlying Colly collector and transport.
type Config struct {
	UserAgent      string
	RequestTimeout time.Duration
	Concurrency    int
}

// Client is a Colly-backed catalog.Fetcher. It performs exactly one request
// per Fetch call; retry policy belongs to the scheduler.
type Client struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewClient constructs a configured Colly-based Client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       maxInt(1, cfg.Concurrency) * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &Client{
		baseCollector: base,
		logger:        logger,
	}, nil
}

// Fetch issues one request and returns the body or a classified FetchError.
func (c *Client) Fetch(ctx context.Context, req catalog.FetchRequest) (catalog.FetchResponse, error) {
	if err := ctx.Err(); err != nil {
		return catalog.FetchResponse{}, err
	}

	collector := c.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	start := time.Now()
	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			for k, v := range *r.Headers {
				cp := make([]string, len(v))
				copy(cp, v)
				headers[k] = cp
			}
		}
		send(fetchResult{resp: catalog.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte{}, r.Body...),
			Duration:   time.Since(start),
		}})
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{err: classify(req.URL, status, err)})
	})

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	if err := collector.Request(method, req.URL, nil, nil, req.Headers); err != nil {
		return catalog.FetchResponse{}, classify(req.URL, 0, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return catalog.FetchResponse{}, err
		}
		return res.resp, res.err
	default:
		return catalog.FetchResponse{}, &catalog.FetchError{
			Kind: catalog.FailureConnectionError,
			URL:  req.URL,
			Err:  errors.New("fetch produced no result"),
		}
	}
}

type fetchResult struct {
	resp catalog.FetchResponse
	err  error
}

// classify maps a transport error or HTTP status onto the failure taxonomy.
func classify(url string, status int, err error) *catalog.FetchError {
	switch {
	case status == http.StatusTooManyRequests:
		return &catalog.FetchError{Kind: catalog.FailureRateLimited, StatusCode: status, URL: url, Err: err}
	case status >= 400:
		return &catalog.FetchError{Kind: catalog.FailureHTTPError, StatusCode: status, URL: url, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &catalog.FetchError{Kind: catalog.FailureTimeout, URL: url, Err: err}
	}
	return &catalog.FetchError{Kind: catalog.FailureConnectionError, URL: url, Err: err}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
