// internal/domain/estimate/entity.go
package estimate

import (
	"database/sql"
	"time"
)

type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "draft"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusApproved EstimateStatus = "approved"
	EstimateStatusRejected EstimateStatus = "rejected"
	EstimateStatusExpired  EstimateStatus = "expired"
)

type Estimate struct {
	ID         int64          `json:"id" db:"id"`
	CustomerID int64          `json:"customer_id" db:"customer_id"`
	ProjectID  sql.NullInt64  `json:"project_id,omitempty" db:"project_id"`
	Title      string         `json:"title" db:"title"`
	Notes      sql.NullString `json:"notes,omitempty" db:"notes"`
	Status     EstimateStatus `json:"status" db:"status"`

	// Customer-facing totals
	Subtotal float64 `json:"subtotal" db:"subtotal"`
	TaxRate  float64 `json:"tax_rate" db:"tax_rate"`
	Total    float64 `json:"total" db:"total"`

	// Internal financials, stripped for roles without finance clearance
	GrossProfit      float64 `json:"gross_profit" db:"gross_profit"`
	MarkupRate       float64 `json:"markup_rate" db:"markup_rate"`
	AdjustmentAmount float64 `json:"adjustment_amount" db:"adjustment_amount"`

	LineItems []LineItem `json:"line_items,omitempty" db:"-"`

	CreatedBy int64      `json:"created_by" db:"created_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	SentAt    *time.Time `json:"sent_at,omitempty" db:"sent_at"`
}

type LineItem struct {
	ID          int64   `json:"id" db:"id"`
	EstimateID  int64   `json:"estimate_id" db:"estimate_id"`
	Description string  `json:"description" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	Unit        string  `json:"unit" db:"unit"`
	UnitPrice   float64 `json:"unit_price" db:"unit_price"`

	// Internal financials
	UnitCost      float64 `json:"unit_cost" db:"unit_cost"`
	PurchasePrice float64 `json:"purchase_price" db:"purchase_price"`
	MarginRate    float64 `json:"margin_rate" db:"margin_rate"`
}
