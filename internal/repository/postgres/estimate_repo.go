// internal/repository/postgres/estimate_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"verdant-service/internal/domain/estimate"
	xerrors "verdant-service/internal/pkg/errors"
)

type EstimateRepository struct {
	db *pgxpool.Pool
}

func NewEstimateRepository(db *pgxpool.Pool) *EstimateRepository {
	return &EstimateRepository{db: db}
}

const estimateColumns = `
	id, customer_id, project_id, title, notes, status,
	subtotal, tax_rate, total,
	gross_profit, markup_rate, adjustment_amount,
	created_by, created_at, updated_at, sent_at
`

func scanEstimate(row pgx.Row) (*estimate.Estimate, error) {
	var e estimate.Estimate
	err := row.Scan(
		&e.ID, &e.CustomerID, &e.ProjectID, &e.Title, &e.Notes, &e.Status,
		&e.Subtotal, &e.TaxRate, &e.Total,
		&e.GrossProfit, &e.MarkupRate, &e.AdjustmentAmount,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, &e.SentAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan estimate: %w", err)
	}
	return &e, nil
}

// Create inserts the estimate and its line items in one transaction.
func (r *EstimateRepository) Create(ctx context.Context, e *estimate.Estimate) (*estimate.Estimate, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO estimates (
			customer_id, project_id, title, notes, status,
			subtotal, tax_rate, total,
			gross_profit, markup_rate, adjustment_amount,
			created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING ` + estimateColumns + `
	`
	created, err := scanEstimate(tx.QueryRow(ctx, query,
		e.CustomerID, e.ProjectID, e.Title, e.Notes, e.Status,
		e.Subtotal, e.TaxRate, e.Total,
		e.GrossProfit, e.MarkupRate, e.AdjustmentAmount,
		e.CreatedBy,
	))
	if err != nil {
		return nil, err
	}

	for i := range e.LineItems {
		item := &e.LineItems[i]
		itemQuery := `
			INSERT INTO estimate_line_items (
				estimate_id, description, quantity, unit, unit_price,
				unit_cost, purchase_price, margin_rate
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`
		if err := tx.QueryRow(ctx, itemQuery,
			created.ID, item.Description, item.Quantity, item.Unit, item.UnitPrice,
			item.UnitCost, item.PurchasePrice, item.MarginRate,
		).Scan(&item.ID); err != nil {
			return nil, fmt.Errorf("failed to insert line item: %w", err)
		}
		item.EstimateID = created.ID
	}
	created.LineItems = e.LineItems

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit estimate: %w", err)
	}
	return created, nil
}

// FindByID retrieves an estimate with its line items.
func (r *EstimateRepository) FindByID(ctx context.Context, id int64) (*estimate.Estimate, error) {
	query := `
		SELECT ` + estimateColumns + `
		FROM estimates
		WHERE id = $1
	`
	e, err := scanEstimate(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	items, err := r.lineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	e.LineItems = items
	return e, nil
}

func (r *EstimateRepository) lineItems(ctx context.Context, estimateID int64) ([]estimate.LineItem, error) {
	query := `
		SELECT id, estimate_id, description, quantity, unit, unit_price,
		       unit_cost, purchase_price, margin_rate
		FROM estimate_line_items
		WHERE estimate_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, estimateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var items []estimate.LineItem
	for rows.Next() {
		var item estimate.LineItem
		if err := rows.Scan(
			&item.ID, &item.EstimateID, &item.Description, &item.Quantity, &item.Unit, &item.UnitPrice,
			&item.UnitCost, &item.PurchasePrice, &item.MarginRate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List retrieves estimates matching the filter, newest first.
func (r *EstimateRepository) List(ctx context.Context, filter estimate.ListFilter) ([]*estimate.Estimate, error) {
	statuses := make([]string, len(filter.Statuses))
	for i, s := range filter.Statuses {
		statuses[i] = string(s)
	}

	query := `
		SELECT ` + estimateColumns + `
		FROM estimates
		WHERE ($1 = 0 OR customer_id = $1)
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, query, filter.CustomerID, pq.Array(statuses), limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	var estimates []*estimate.Estimate
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, e)
	}
	return estimates, rows.Err()
}

// Update persists mutable fields and recomputed totals.
func (r *EstimateRepository) Update(ctx context.Context, e *estimate.Estimate) (*estimate.Estimate, error) {
	query := `
		UPDATE estimates
		SET title = $2, notes = $3, status = $4,
		    subtotal = $5, tax_rate = $6, total = $7,
		    gross_profit = $8, markup_rate = $9, adjustment_amount = $10,
		    sent_at = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + estimateColumns + `
	`
	return scanEstimate(r.db.QueryRow(ctx, query,
		e.ID, e.Title, e.Notes, e.Status,
		e.Subtotal, e.TaxRate, e.Total,
		e.GrossProfit, e.MarkupRate, e.AdjustmentAmount,
		e.SentAt,
	))
}

// Delete removes an estimate; line items cascade.
func (r *EstimateRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM estimates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete estimate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
