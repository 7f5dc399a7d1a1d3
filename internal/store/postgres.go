// Package store provides Postgres-backed persistence for crawl runs.
package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for product rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ProductStore mirrors finalized products and run summaries into Postgres.
type ProductStore struct {
	pool  execCloser
	table string
}

// New creates a Postgres-backed ProductStore using the provided config.
func New(ctx context.Context, cfg Config) (*ProductStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ProductStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string) (*ProductStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ProductStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ProductStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InsertProducts writes one row per distinct product for the given run.
func (s *ProductStore) InsertProducts(ctx context.Context, runID string, products []catalog.Product) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("product store is not configured")
	}
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_uuid,
	sku,
	name,
	brand,
	price_current,
	price_original,
	in_stock,
	stock_count,
	category_slugs,
	first_seen
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, s.table)

	for _, p := range products {
		args := []any{
			runID,
			p.SKU,
			p.Name,
			p.Brand,
			p.Price.Current,
			p.Price.Original,
			p.Stock.InStock,
			p.Stock.Count,
			p.CategorySlugs,
			p.FirstSeen,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert product %s: %w", p.SKU, err)
		}
	}
	return nil
}

// RecordRun writes the run summary row with per-category outcome counts.
func (s *ProductStore) RecordRun(ctx context.Context, runID string, city catalog.City, outcomes []catalog.CrawlOutcome, written int) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("product store is not configured")
	}
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	completed := 0
	failed := 0
	for _, o := range outcomes {
		if o.Completed() {
			completed++
		} else {
			failed++
		}
	}
	query := `
INSERT INTO crawl_runs (
	run_uuid,
	city_id,
	city_name,
	categories_completed,
	categories_failed,
	products_written,
	finished_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)`
	args := []any{
		runID,
		city.ID,
		city.Name,
		completed,
		failed,
		written,
		time.Now().UTC(),
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}
