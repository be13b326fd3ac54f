// internal/service/invoice/invoice.go
package invoice

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"verdant-service/internal/domain/invoice"
)

type Store interface {
	Create(ctx context.Context, inv *invoice.Invoice) (*invoice.Invoice, error)
	FindByID(ctx context.Context, id int64) (*invoice.Invoice, error)
	List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error)
	MarkIssued(ctx context.Context, id int64, at time.Time) (*invoice.Invoice, error)
	Delete(ctx context.Context, id int64) error
}

type InvoiceService struct {
	repo   Store
	logger *zap.Logger
	now    func() time.Time
}

func NewInvoiceService(repo Store, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{repo: repo, logger: logger, now: time.Now}
}

// Create opens a draft invoice.
func (s *InvoiceService) Create(ctx context.Context, req *invoice.CreateRequest, createdBy int64) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{
		CustomerID: req.CustomerID,
		Status:     invoice.InvoiceStatusDraft,
		Subtotal:   req.Subtotal,
		TaxRate:    req.TaxRate,
		Total:      req.Subtotal * (1 + req.TaxRate),
		DueDate:    req.DueDate,
		CreatedBy:  createdBy,
	}
	if req.EstimateID != nil {
		inv.EstimateID = sql.NullInt64{Int64: *req.EstimateID, Valid: true}
	}

	created, err := s.repo.Create(ctx, inv)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice created",
		zap.Int64("invoice_id", created.ID),
		zap.String("number", created.Number),
		zap.Int64("customer_id", created.CustomerID),
	)
	return created, nil
}

func (s *InvoiceService) Get(ctx context.Context, id int64) (*invoice.Invoice, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *InvoiceService) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	return s.repo.List(ctx, filter)
}

// Issue transitions a draft invoice to issued and stamps the time.
func (s *InvoiceService) Issue(ctx context.Context, id int64) (*invoice.Invoice, error) {
	inv, err := s.repo.MarkIssued(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice issued",
		zap.Int64("invoice_id", inv.ID),
		zap.String("number", inv.Number),
	)
	return inv, nil
}

func (s *InvoiceService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
