// Package catalog defines the core types and interfaces for the catalog
// crawl engine: cities, categories, extracted records, canonical products,
// and the capability seams (fetching, extraction, output) the engine is
// assembled from.
package catalog
