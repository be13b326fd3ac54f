// internal/repository/postgres/invoice_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"verdant-service/internal/domain/invoice"
	xerrors "verdant-service/internal/pkg/errors"
)

type InvoiceRepository struct {
	db *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `
	id, number, customer_id, estimate_id, status,
	subtotal, tax_rate, total,
	gross_profit, adjustment_amount,
	due_date, issued_at, paid_at, created_by, created_at, updated_at
`

func scanInvoice(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.CustomerID, &inv.EstimateID, &inv.Status,
		&inv.Subtotal, &inv.TaxRate, &inv.Total,
		&inv.GrossProfit, &inv.AdjustmentAmount,
		&inv.DueDate, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}
	return &inv, nil
}

// Create inserts a draft invoice. Numbers are sequential per year.
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) (*invoice.Invoice, error) {
	query := `
		INSERT INTO invoices (
			number, customer_id, estimate_id, status,
			subtotal, tax_rate, total,
			gross_profit, adjustment_amount,
			due_date, created_by, created_at, updated_at
		)
		VALUES (
			'INV-' || to_char(NOW(), 'YYYY') || '-' || lpad(nextval('invoice_number_seq')::text, 5, '0'),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()
		)
		RETURNING ` + invoiceColumns + `
	`
	return scanInvoice(r.db.QueryRow(ctx, query,
		inv.CustomerID, inv.EstimateID, inv.Status,
		inv.Subtotal, inv.TaxRate, inv.Total,
		inv.GrossProfit, inv.AdjustmentAmount,
		inv.DueDate, inv.CreatedBy,
	))
}

// FindByID retrieves an invoice by primary key.
func (r *InvoiceRepository) FindByID(ctx context.Context, id int64) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE id = $1
	`
	return scanInvoice(r.db.QueryRow(ctx, query, id))
}

// List retrieves invoices matching the filter, newest first.
func (r *InvoiceRepository) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	statuses := make([]string, len(filter.Statuses))
	for i, s := range filter.Statuses {
		statuses[i] = string(s)
	}

	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
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
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// MarkIssued transitions a draft invoice to issued.
func (r *InvoiceRepository) MarkIssued(ctx context.Context, id int64, at time.Time) (*invoice.Invoice, error) {
	query := `
		UPDATE invoices
		SET status = $2, issued_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING ` + invoiceColumns + `
	`
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id, invoice.InvoiceStatusIssued, at, invoice.InvoiceStatusDraft))
	if xerrors.Is(err, xerrors.ErrNotFound) {
		// Either absent or already issued; let the service disambiguate.
		if _, findErr := r.FindByID(ctx, id); findErr == nil {
			return nil, xerrors.ErrConflict
		}
		return nil, xerrors.ErrNotFound
	}
	return inv, err
}

// Delete removes a draft invoice. Issued invoices are voided, not deleted.
func (r *InvoiceRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND status = $2`, id, invoice.InvoiceStatusDraft)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
