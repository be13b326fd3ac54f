// internal/handlers/estimate/estimate_handler.go
package estimate

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"verdant-service/internal/domain/estimate"
	"verdant-service/internal/middleware"
	"verdant-service/internal/pkg/response"
	estimateUsecase "verdant-service/internal/service/estimate"
)

type EstimateHandler struct {
	estimateService *estimateUsecase.EstimateService
	logger          *zap.Logger
}

func NewEstimateHandler(estimateService *estimateUsecase.EstimateService, logger *zap.Logger) *EstimateHandler {
	return &EstimateHandler{
		estimateService: estimateService,
		logger:          logger,
	}
}

// List returns estimates, filterable by customer and status
func (h *EstimateHandler) List(c *gin.Context) {
	filter := estimate.ListFilter{}
	if v := c.Query("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.ValidationError(c, "invalid customer_id", err)
			return
		}
		filter.CustomerID = id
	}
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			filter.Statuses = append(filter.Statuses, estimate.EstimateStatus(s))
		}
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	estimates, err := h.estimateService.List(c.Request.Context(), filter)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "estimates", estimates)
}

// Create opens a draft estimate
func (h *EstimateHandler) Create(c *gin.Context) {
	var req estimate.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	principal := middleware.MustGetPrincipal(c)
	created, err := h.estimateService.Create(c.Request.Context(), &req, principal.UserID)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "estimate created", created)
}

// Get returns a single estimate with line items
func (h *EstimateHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "invalid estimate id", err)
		return
	}

	e, err := h.estimateService.Get(c.Request.Context(), id)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "estimate", e)
}

// Update applies a partial update
func (h *EstimateHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "invalid estimate id", err)
		return
	}

	var req estimate.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	updated, err := h.estimateService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "estimate updated", updated)
}

// Approve marks an estimate approved
func (h *EstimateHandler) Approve(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "invalid estimate id", err)
		return
	}

	approved, err := h.estimateService.Approve(c.Request.Context(), id)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "estimate approved", approved)
}

// Adjust applies a manual discount or surcharge
func (h *EstimateHandler) Adjust(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "invalid estimate id", err)
		return
	}

	var req estimate.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	adjusted, err := h.estimateService.Adjust(c.Request.Context(), id, &req)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "estimate adjusted", adjusted)
}

// Delete removes an estimate
func (h *EstimateHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "invalid estimate id", err)
		return
	}

	if err := h.estimateService.Delete(c.Request.Context(), id); err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "estimate deleted", nil)
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
