// internal/domain/estimate/dto.go
package estimate

type CreateRequest struct {
	CustomerID int64             `json:"customer_id" binding:"required"`
	ProjectID  *int64            `json:"project_id,omitempty"`
	Title      string            `json:"title" binding:"required"`
	Notes      string            `json:"notes,omitempty"`
	TaxRate    float64           `json:"tax_rate"`
	LineItems  []LineItemRequest `json:"line_items" binding:"required,dive"`
}

type LineItemRequest struct {
	Description   string  `json:"description" binding:"required"`
	Quantity      float64 `json:"quantity" binding:"required,gt=0"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price" binding:"required,gte=0"`
	UnitCost      float64 `json:"unit_cost" binding:"gte=0"`
	PurchasePrice float64 `json:"purchase_price" binding:"gte=0"`
}

type UpdateRequest struct {
	Title     *string            `json:"title,omitempty"`
	Notes     *string            `json:"notes,omitempty"`
	Status    *EstimateStatus    `json:"status,omitempty"`
	TaxRate   *float64           `json:"tax_rate,omitempty"`
	LineItems *[]LineItemRequest `json:"line_items,omitempty"`
}

// AdjustRequest applies a manual discount or surcharge to the estimate total.
type AdjustRequest struct {
	AdjustmentAmount float64 `json:"adjustment_amount" binding:"required"`
	Reason           string  `json:"reason" binding:"required"`
}

type ListFilter struct {
	CustomerID int64
	Statuses   []EstimateStatus
	Limit      int
	Offset     int
}
