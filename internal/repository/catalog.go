package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stitchline/catalog-api/internal/catalog"
)

const listProductsSQL = `SELECT id, name, price, discounted_price, category, division, image,
		in_stock, colors, sizes, rating, description, material, care_instructions,
		made_for, sustainability, features
	FROM products ORDER BY id`

var _ catalog.Source = (*CatalogRepository)(nil)

// CatalogRepository serves the product catalog out of PostgreSQL. The
// table is populated offline by the feed-ingest tool; the service only
// ever reads it.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository using the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Load returns the full catalog ordered by id.
func (r *CatalogRepository) Load(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ReplaceAll swaps the entire products table for the given feed inside
// a single transaction, using COPY for the bulk insert.
func (r *CatalogRepository) ReplaceAll(ctx context.Context, products []catalog.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE products`); err != nil {
		return fmt.Errorf("truncate products: %w", err)
	}

	rows := make([][]any, len(products))
	for i, p := range products {
		rows[i] = []any{
			p.ID, p.Name, p.Price, p.DiscountedPrice, p.Category, p.Division, p.Image,
			p.InStock, p.Colors, p.Sizes, p.Rating, p.Description, p.Material,
			p.CareInstructions, p.MadeFor, p.Sustainability, p.Features,
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"products"},
		[]string{
			"id", "name", "price", "discounted_price", "category", "division", "image",
			"in_stock", "colors", "sizes", "rating", "description", "material",
			"care_instructions", "made_for", "sustainability", "features",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy products: %w", err)
	}

	return tx.Commit(ctx)
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.DiscountedPrice, &p.Category, &p.Division, &p.Image,
		&p.InStock, &p.Colors, &p.Sizes, &p.Rating, &p.Description, &p.Material,
		&p.CareInstructions, &p.MadeFor, &p.Sustainability, &p.Features,
	)
	return p, err
}
