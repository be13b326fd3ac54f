// internal/service/estimate/estimate.go
package estimate

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"verdant-service/internal/domain/estimate"
	xerrors "verdant-service/internal/pkg/errors"
)

// Store is the persistence the estimate flow needs.
type Store interface {
	Create(ctx context.Context, e *estimate.Estimate) (*estimate.Estimate, error)
	FindByID(ctx context.Context, id int64) (*estimate.Estimate, error)
	List(ctx context.Context, filter estimate.ListFilter) ([]*estimate.Estimate, error)
	Update(ctx context.Context, e *estimate.Estimate) (*estimate.Estimate, error)
	Delete(ctx context.Context, id int64) error
}

type EstimateService struct {
	repo   Store
	logger *zap.Logger
	now    func() time.Time
}

func NewEstimateService(repo Store, logger *zap.Logger) *EstimateService {
	return &EstimateService{repo: repo, logger: logger, now: time.Now}
}

// Create builds an estimate from the request and computes both the
// customer-facing totals and the internal profit figures.
func (s *EstimateService) Create(ctx context.Context, req *estimate.CreateRequest, createdBy int64) (*estimate.Estimate, error) {
	e := &estimate.Estimate{
		CustomerID: req.CustomerID,
		Title:      req.Title,
		Notes:      sql.NullString{String: req.Notes, Valid: req.Notes != ""},
		Status:     estimate.EstimateStatusDraft,
		TaxRate:    req.TaxRate,
		CreatedBy:  createdBy,
	}
	if req.ProjectID != nil {
		e.ProjectID = sql.NullInt64{Int64: *req.ProjectID, Valid: true}
	}

	e.LineItems = make([]estimate.LineItem, len(req.LineItems))
	for i, item := range req.LineItems {
		e.LineItems[i] = estimate.LineItem{
			Description:   item.Description,
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			UnitPrice:     item.UnitPrice,
			UnitCost:      item.UnitCost,
			PurchasePrice: item.PurchasePrice,
		}
		if item.UnitPrice > 0 {
			e.LineItems[i].MarginRate = (item.UnitPrice - item.UnitCost) / item.UnitPrice
		}
	}
	recalcTotals(e)

	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	s.logger.Info("estimate created",
		zap.Int64("estimate_id", created.ID),
		zap.Int64("customer_id", created.CustomerID),
		zap.Int64("created_by", createdBy),
	)
	return created, nil
}

func (s *EstimateService) Get(ctx context.Context, id int64) (*estimate.Estimate, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *EstimateService) List(ctx context.Context, filter estimate.ListFilter) ([]*estimate.Estimate, error) {
	return s.repo.List(ctx, filter)
}

// Update applies the partial update and recomputes totals when line items or
// the tax rate changed.
func (s *EstimateService) Update(ctx context.Context, id int64, req *estimate.UpdateRequest) (*estimate.Estimate, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Notes != nil {
		e.Notes = sql.NullString{String: *req.Notes, Valid: *req.Notes != ""}
	}
	if req.Status != nil {
		e.Status = *req.Status
		if *req.Status == estimate.EstimateStatusSent && e.SentAt == nil {
			at := s.now()
			e.SentAt = &at
		}
	}
	if req.TaxRate != nil {
		e.TaxRate = *req.TaxRate
	}
	if req.LineItems != nil {
		items := make([]estimate.LineItem, len(*req.LineItems))
		for i, item := range *req.LineItems {
			items[i] = estimate.LineItem{
				EstimateID:    e.ID,
				Description:   item.Description,
				Quantity:      item.Quantity,
				Unit:          item.Unit,
				UnitPrice:     item.UnitPrice,
				UnitCost:      item.UnitCost,
				PurchasePrice: item.PurchasePrice,
			}
			if item.UnitPrice > 0 {
				items[i].MarginRate = (item.UnitPrice - item.UnitCost) / item.UnitPrice
			}
		}
		e.LineItems = items
	}
	recalcTotals(e)

	return s.repo.Update(ctx, e)
}

// Approve marks a sent estimate approved.
func (s *EstimateService) Approve(ctx context.Context, id int64) (*estimate.Estimate, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != estimate.EstimateStatusSent && e.Status != estimate.EstimateStatusDraft {
		return nil, xerrors.ErrConflict
	}
	e.Status = estimate.EstimateStatusApproved
	return s.repo.Update(ctx, e)
}

// Adjust applies a manual discount or surcharge and reflects it in the
// totals and gross profit.
func (s *EstimateService) Adjust(ctx context.Context, id int64, req *estimate.AdjustRequest) (*estimate.Estimate, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.AdjustmentAmount = req.AdjustmentAmount
	recalcTotals(e)

	s.logger.Info("estimate adjusted",
		zap.Int64("estimate_id", id),
		zap.Float64("adjustment", req.AdjustmentAmount),
		zap.String("reason", req.Reason),
	)
	return s.repo.Update(ctx, e)
}

func (s *EstimateService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func recalcTotals(e *estimate.Estimate) {
	var subtotal, cost float64
	for _, item := range e.LineItems {
		subtotal += item.Quantity * item.UnitPrice
		cost += item.Quantity * item.UnitCost
	}
	e.Subtotal = subtotal
	e.Total = subtotal*(1+e.TaxRate) + e.AdjustmentAmount
	e.GrossProfit = subtotal - cost + e.AdjustmentAmount
	if cost > 0 {
		e.MarkupRate = (subtotal - cost) / cost
	}
}
