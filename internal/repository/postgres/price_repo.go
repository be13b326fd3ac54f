// internal/repository/postgres/price_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"verdant-service/internal/domain/pricing"
	xerrors "verdant-service/internal/pkg/errors"
)

type PriceRepository struct {
	db *pgxpool.Pool
}

func NewPriceRepository(db *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{db: db}
}

const priceColumns = `
	id, sku, name, category, unit,
	unit_price, unit_cost, purchase_price, markup_rate, margin_rate,
	active, created_at, updated_at
`

func scanPriceItem(row pgx.Row) (*pricing.PriceItem, error) {
	var p pricing.PriceItem
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit,
		&p.UnitPrice, &p.UnitCost, &p.PurchasePrice, &p.MarkupRate, &p.MarginRate,
		&p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan price item: %w", err)
	}
	return &p, nil
}

// Upsert inserts or replaces a catalog entry keyed by SKU.
func (r *PriceRepository) Upsert(ctx context.Context, p *pricing.PriceItem) (*pricing.PriceItem, error) {
	query := `
		INSERT INTO price_items (
			sku, name, category, unit,
			unit_price, unit_cost, purchase_price, markup_rate, margin_rate,
			active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			unit = EXCLUDED.unit,
			unit_price = EXCLUDED.unit_price,
			unit_cost = EXCLUDED.unit_cost,
			purchase_price = EXCLUDED.purchase_price,
			markup_rate = EXCLUDED.markup_rate,
			margin_rate = EXCLUDED.margin_rate,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING ` + priceColumns + `
	`
	return scanPriceItem(r.db.QueryRow(ctx, query,
		p.SKU, p.Name, p.Category, p.Unit,
		p.UnitPrice, p.UnitCost, p.PurchasePrice, p.MarkupRate, p.MarginRate,
		p.Active,
	))
}

// FindBySKU retrieves a catalog entry.
func (r *PriceRepository) FindBySKU(ctx context.Context, sku string) (*pricing.PriceItem, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM price_items
		WHERE sku = $1
	`
	return scanPriceItem(r.db.QueryRow(ctx, query, sku))
}

// List retrieves active catalog entries, optionally filtered by category.
func (r *PriceRepository) List(ctx context.Context, category string) ([]*pricing.PriceItem, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM price_items
		WHERE active = TRUE
		  AND ($1 = '' OR category = $1)
		ORDER BY category, name
	`
	rows, err := r.db.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query price items: %w", err)
	}
	defer rows.Close()

	var items []*pricing.PriceItem
	for rows.Next() {
		p, err := scanPriceItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
