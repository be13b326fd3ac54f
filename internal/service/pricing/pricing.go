// internal/service/pricing/pricing.go
package pricing

import (
	"context"

	"go.uber.org/zap"

	"verdant-service/internal/domain/pricing"
)

type Store interface {
	Upsert(ctx context.Context, p *pricing.PriceItem) (*pricing.PriceItem, error)
	FindBySKU(ctx context.Context, sku string) (*pricing.PriceItem, error)
	List(ctx context.Context, category string) ([]*pricing.PriceItem, error)
}

type PricingService struct {
	repo   Store
	logger *zap.Logger
}

func NewPricingService(repo Store, logger *zap.Logger) *PricingService {
	return &PricingService{repo: repo, logger: logger}
}

// Upsert inserts or replaces a catalog entry keyed by SKU, deriving the
// margin rate from price and cost.
func (s *PricingService) Upsert(ctx context.Context, req *pricing.UpsertRequest) (*pricing.PriceItem, error) {
	item := &pricing.PriceItem{
		SKU:           req.SKU,
		Name:          req.Name,
		Category:      req.Category,
		Unit:          req.Unit,
		UnitPrice:     req.UnitPrice,
		UnitCost:      req.UnitCost,
		PurchasePrice: req.PurchasePrice,
		MarkupRate:    req.MarkupRate,
		Active:        true,
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if req.UnitPrice > 0 {
		item.MarginRate = (req.UnitPrice - req.UnitCost) / req.UnitPrice
	}

	saved, err := s.repo.Upsert(ctx, item)
	if err != nil {
		return nil, err
	}
	s.logger.Info("price item upserted", zap.String("sku", saved.SKU))
	return saved, nil
}

func (s *PricingService) Get(ctx context.Context, sku string) (*pricing.PriceItem, error) {
	return s.repo.FindBySKU(ctx, sku)
}

func (s *PricingService) List(ctx context.Context, category string) ([]*pricing.PriceItem, error) {
	return s.repo.List(ctx, category)
}
