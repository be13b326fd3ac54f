// internal/domain/pricing/entity.go
package pricing

import "time"

// PriceItem is a catalog entry for a service or material. The customer-facing
// unit price coexists with internal cost figures that only finance-cleared
// roles may read.
type PriceItem struct {
	ID       int64  `json:"id" db:"id"`
	SKU      string `json:"sku" db:"sku"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
	Unit     string `json:"unit" db:"unit"`

	UnitPrice float64 `json:"unit_price" db:"unit_price"`

	// Internal financials
	UnitCost      float64 `json:"unit_cost" db:"unit_cost"`
	PurchasePrice float64 `json:"purchase_price" db:"purchase_price"`
	MarkupRate    float64 `json:"markup_rate" db:"markup_rate"`
	MarginRate    float64 `json:"margin_rate" db:"margin_rate"`

	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type UpsertRequest struct {
	SKU           string  `json:"sku" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Category      string  `json:"category"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price" binding:"required,gte=0"`
	UnitCost      float64 `json:"unit_cost" binding:"gte=0"`
	PurchasePrice float64 `json:"purchase_price" binding:"gte=0"`
	MarkupRate    float64 `json:"markup_rate" binding:"gte=0"`
	Active        *bool   `json:"active,omitempty"`
}
