package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// DBTX is the subset of pgxpool.Pool used by the repository. pgxmock pools
// also satisfy it, which keeps the repository testable without a database.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CatalogRepository reads catalog products from PostgreSQL for reindexing.
type CatalogRepository struct {
	db DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(db DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FetchBatch returns one page of catalog products in stable SKU order.
func (r *CatalogRepository) FetchBatch(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	query := `
		SELECT sku, name, slug, description, category, status, price, stock_quantity, tags, attributes, latitude, longitude, created_at, updated_at
		FROM products
		ORDER BY sku
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// Count returns the total number of catalog products.
func (r *CatalogRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func scanProduct(rows pgx.Rows) (domain.Product, error) {
	var (
		p              domain.Product
		attributesJSON []byte
		lat, lon       *float64
	)

	err := rows.Scan(
		&p.SKU,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&p.Status,
		&p.Price,
		&p.StockQuantity,
		&p.Tags,
		&attributesJSON,
		&lat,
		&lon,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}

	if len(attributesJSON) > 0 {
		var attrs map[string]any
		if err := json.Unmarshal(attributesJSON, &attrs); err != nil {
			return domain.Product{}, fmt.Errorf("unmarshal attributes for %s: %w", p.SKU, err)
		}
		p.Attributes = domain.FlattenAttributes(attrs)
	}

	if lat != nil && lon != nil {
		p.Location = &domain.GeoPoint{Lat: *lat, Lon: *lon}
	}

	return p, nil
}
