// internal/app/router.go
package app

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authHandler "verdant-service/internal/handlers/auth"
	estimateHandler "verdant-service/internal/handlers/estimate"
	invoiceHandler "verdant-service/internal/handlers/invoice"
	pricingHandler "verdant-service/internal/handlers/pricing"
	wsHandler "verdant-service/internal/handlers/websocket"
	"verdant-service/internal/middleware"
	"verdant-service/internal/obs"
	"verdant-service/internal/pkg/security"
)

type Handlers struct {
	AuthHandler     *authHandler.AuthHandler
	EstimateHandler *estimateHandler.EstimateHandler
	InvoiceHandler  *invoiceHandler.InvoiceHandler
	PricingHandler  *pricingHandler.PricingHandler
	WSHandler       *wsHandler.WebSocketHandler
	AuthMiddleware  *middleware.AuthMiddleware
	RateLimiter     *security.RateLimiter
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RateLimitMiddleware(h.RateLimiter))

	api := r.Group("/api/v1")

	// ==================== Health & Metrics ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})
	r.GET("/metrics", gin.WrapH(obs.Handler()))

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/refresh", h.AuthHandler.Refresh)
		// Outside the auth gate so repeating a logout with an already
		// terminated token still returns 200. The handler reads the bearer
		// token itself and termination is idempotent.
		authPublic.POST("/logout", h.AuthHandler.Logout)
	}

	// ==================== Protected Routes ====================
	// Strict order: authenticate, authorize against the route table, then
	// redact restricted fields on the way out.
	protected := api.Group("")
	protected.Use(h.AuthMiddleware.Auth())
	protected.Use(h.AuthMiddleware.Authorize())
	protected.Use(middleware.RedactMiddleware(logger))

	authProtected := protected.Group("/auth")
	{
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
		authProtected.GET("/me", h.AuthHandler.Me)
		authProtected.GET("/check-permission/:permission", h.AuthHandler.CheckPermission)
		authProtected.GET("/sessions", h.AuthHandler.ListSessions)
		authProtected.DELETE("/sessions/:token_id", h.AuthHandler.RevokeSession)
	}

	// ==================== Estimates ====================
	estimates := protected.Group("/estimates")
	{
		estimates.GET("", h.EstimateHandler.List)
		estimates.POST("", h.EstimateHandler.Create)
		estimates.GET("/:id", h.EstimateHandler.Get)
		estimates.PUT("/:id", h.EstimateHandler.Update)
		estimates.DELETE("/:id", h.EstimateHandler.Delete)
		estimates.POST("/:id/approve", h.EstimateHandler.Approve)
		estimates.POST("/:id/adjust", h.EstimateHandler.Adjust)
	}

	// ==================== Invoices ====================
	invoices := protected.Group("/invoices")
	{
		invoices.GET("", h.InvoiceHandler.List)
		invoices.POST("", h.InvoiceHandler.Create)
		invoices.GET("/:id", h.InvoiceHandler.Get)
		invoices.POST("/:id/issue", h.InvoiceHandler.Issue)
		invoices.DELETE("/:id", h.InvoiceHandler.Delete)
	}

	// ==================== Pricing Catalog ====================
	pricing := protected.Group("/pricing")
	{
		pricing.GET("/items", h.PricingHandler.List)
		pricing.PUT("/items", h.PricingHandler.Upsert)
		pricing.GET("/items/:sku", h.PricingHandler.Get)
	}
}
