// Package metrics exposes Prometheus collectors for the crawl engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks the number of HTTP requests dispatched.
	FetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fixcrawl_fetches_total",
		Help: "The total number of HTTP requests sent.",
	})
	// FetchErrorsTotal tracks failed requests by failure class.
	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fixcrawl_fetch_errors_total",
		Help: "The total number of failed HTTP requests, by failure kind.",
	}, []string{"kind"})
	// RetriesTotal tracks retry attempts issued by the scheduler.
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fixcrawl_retries_total",
		Help: "The total number of page fetch retries.",
	})
	// RateLimitHitsTotal tracks throttle responses from the site.
	RateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fixcrawl_rate_limit_hits_total",
		Help: "The total number of times the crawler was rate limited.",
	})
	// PagesFetchedTotal tracks pages successfully fetched.
	PagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fixcrawl_pages_fetched_total",
		Help: "The total number of pages successfully fetched.",
	})
	// ProductsAcceptedTotal tracks first sightings accepted by the sink.
	ProductsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fixcrawl_products_accepted_total",
		Help: "The total number of distinct products accepted.",
	})
	// DuplicatesMergedTotal tracks repeat SKU sightings merged by the sink.
	DuplicatesMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fixcrawl_duplicates_merged_total",
		Help: "The total number of duplicate SKU sightings merged.",
	})
)
