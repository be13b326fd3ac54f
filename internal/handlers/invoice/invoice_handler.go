// internal/handlers/invoice/invoice_handler.go
package invoice

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"verdant-service/internal/domain/invoice"
	"verdant-service/internal/middleware"
	"verdant-service/internal/pkg/response"
	invoiceUsecase "verdant-service/internal/service/invoice"
)

type InvoiceHandler struct {
	invoiceService *invoiceUsecase.InvoiceService
	logger         *zap.Logger
}

func NewInvoiceHandler(invoiceService *invoiceUsecase.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// List returns invoices, filterable by customer and status
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := invoice.ListFilter{}
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
			filter.Statuses = append(filter.Statuses, invoice.InvoiceStatus(s))
		}
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	invoices, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "invoices", invoices)
}

// Create opens a draft invoice
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoice.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	principal := middleware.MustGetPrincipal(c)
	created, err := h.invoiceService.Create(c.Request.Context(), &req, principal.UserID)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "invoice created", created)
}

// Get returns a single invoice
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid invoice id", err)
		return
	}

	inv, err := h.invoiceService.Get(c.Request.Context(), id)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "invoice", inv)
}

// Issue transitions a draft invoice to issued
func (h *InvoiceHandler) Issue(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid invoice id", err)
		return
	}

	issued, err := h.invoiceService.Issue(c.Request.Context(), id)
	if err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "invoice issued", issued)
}

// Delete removes a draft invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid invoice id", err)
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		response.AuthError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "invoice deleted", nil)
}
