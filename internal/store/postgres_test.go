package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricefeed/fixprice-crawler/internal/catalog"
)

func testProduct(sku string) catalog.Product {
	return catalog.Product{
		SKU:   sku,
		Name:  "item " + sku,
		Brand: "HomeLine",
		Price: catalog.Price{
			Current:  79,
			Original: 99,
			SaleTag:  "Скидка 20%",
		},
		Stock:         catalog.Stock{InStock: true, Count: 12},
		CategorySlugs: []string{"posuda"},
		FirstSeen:     time.Unix(1700000000, 0).UTC(),
	}
}

func TestNewWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "products; DROP TABLE products")
	assert.Error(t, err)

	_, err = NewWithPool(nil, "products")
	assert.Error(t, err)

	s, err := NewWithPool(mock, "")
	require.NoError(t, err)
	assert.Equal(t, "products", s.table)
}

func TestInsertProducts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "products")
	require.NoError(t, err)

	p := testProduct("P-1")
	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			"run-1",
			p.SKU,
			p.Name,
			p.Brand,
			p.Price.Current,
			p.Price.Original,
			p.Stock.InStock,
			p.Stock.Count,
			p.CategorySlugs,
			p.FirstSeen,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.InsertProducts(context.Background(), "run-1", []catalog.Product{p})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProductsRequiresRunID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "products")
	require.NoError(t, err)

	err = s.InsertProducts(context.Background(), "", []catalog.Product{testProduct("P-1")})
	assert.Error(t, err)
}

func TestInsertProductsPropagatesExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "products")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err = s.InsertProducts(context.Background(), "run-1", []catalog.Product{testProduct("P-1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert product P-1")
}

func TestRecordRun(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "products")
	require.NoError(t, err)

	outcomes := []catalog.CrawlOutcome{
		{Category: catalog.Category{Slug: "posuda"}, Status: catalog.StatusCompleted},
		{Category: catalog.Category{Slug: "igrushki"}, Status: catalog.StatusCompleted},
		{Category: catalog.Category{Slug: "net-takoy"}, Status: catalog.StatusFailed},
	}

	mock.ExpectExec("INSERT INTO crawl_runs").
		WithArgs("run-1", 55, "Москва", 2, 1, 120, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.RecordRun(context.Background(), "run-1", catalog.City{ID: 55, Name: "Москва"}, outcomes, 120)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseNilSafe(t *testing.T) {
	t.Parallel()

	var s *ProductStore
	s.Close()

	assert.Error(t, s.InsertProducts(context.Background(), "run-1", nil))
	assert.Error(t, s.RecordRun(context.Background(), "run-1", catalog.City{}, nil, 0))
}
