// internal/handlers/pricing/pricing_handler.go
package pricing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"verdant-service/internal/domain/pricing"
	"verdant-service/internal/pkg/response"
	pricingUsecase "verdant-service/internal/service/pricing"
)

type PricingHandler struct {
	pricingService *pricingUsecase.PricingService
	logger         *zap.Logger
}

func NewPricingHandler(pricingService *pricingUsecase.PricingService, logger *zap.Logger) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		logger:         logger,
	}
}

// List returns active catalog entries
func (h *PricingHandler) List(c *gin.Context) {
	items, err := h.pricingService.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "price items", items)
}

// Get returns one catalog entry by SKU
func (h *PricingHandler) Get(c *gin.Context) {
	item, err := h.pricingService.Get(c.Request.Context(), c.Param("sku"))
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "price item", item)
}

// Upsert inserts or replaces a catalog entry
func (h *PricingHandler) Upsert(c *gin.Context) {
	var req pricing.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	item, err := h.pricingService.Upsert(c.Request.Context(), &req)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "price item saved", item)
}
