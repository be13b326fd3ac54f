// internal/domain/invoice/entity.go
package invoice

import (
	"database/sql"
	"time"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusIssued  InvoiceStatus = "issued"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

type Invoice struct {
	ID         int64         `json:"id" db:"id"`
	Number     string        `json:"number" db:"number"`
	CustomerID int64         `json:"customer_id" db:"customer_id"`
	EstimateID sql.NullInt64 `json:"estimate_id,omitempty" db:"estimate_id"`
	Status     InvoiceStatus `json:"status" db:"status"`

	Subtotal float64 `json:"subtotal" db:"subtotal"`
	TaxRate  float64 `json:"tax_rate" db:"tax_rate"`
	Total    float64 `json:"total" db:"total"`

	// Internal financials, stripped for roles without finance clearance
	GrossProfit      float64 `json:"gross_profit" db:"gross_profit"`
	AdjustmentAmount float64 `json:"adjustment_amount" db:"adjustment_amount"`

	DueDate   time.Time  `json:"due_date" db:"due_date"`
	IssuedAt  *time.Time `json:"issued_at,omitempty" db:"issued_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CreatedBy int64      `json:"created_by" db:"created_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
