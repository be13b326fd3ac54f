// internal/domain/invoice/dto.go
package invoice

import "time"

type CreateRequest struct {
	CustomerID int64     `json:"customer_id" binding:"required"`
	EstimateID *int64    `json:"estimate_id,omitempty"`
	Subtotal   float64   `json:"subtotal" binding:"required,gte=0"`
	TaxRate    float64   `json:"tax_rate" binding:"gte=0"`
	DueDate    time.Time `json:"due_date" binding:"required"`
}

type ListFilter struct {
	CustomerID int64
	Statuses   []InvoiceStatus
	Limit      int
	Offset     int
}
