// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"verdant-service/internal/config"
	"verdant-service/internal/db"
	authHandler "verdant-service/internal/handlers/auth"
	estimateHandler "verdant-service/internal/handlers/estimate"
	invoiceHandler "verdant-service/internal/handlers/invoice"
	pricingHandler "verdant-service/internal/handlers/pricing"
	wsHandler "verdant-service/internal/handlers/websocket"
	"verdant-service/internal/middleware"
	"verdant-service/internal/obs"
	"verdant-service/internal/pkg/jwt"
	"verdant-service/internal/pkg/security"
	"verdant-service/internal/pkg/session"
	"verdant-service/internal/repository/postgres"
	authUsecase "verdant-service/internal/service/auth"
	estimateUsecase "verdant-service/internal/service/estimate"
	invoiceUsecase "verdant-service/internal/service/invoice"
	pricingUsecase "verdant-service/internal/service/pricing"
	"verdant-service/internal/websocket"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- Metrics -----
	obs.Init()

	// ----- PostgreSQL -----
	pool, err := db.NewPostgresPool(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session store -----
	var store session.Store
	switch s.cfg.SessionBackend {
	case "redis":
		redisClient, err := db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			PoolSize: 10,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store = session.NewRedisStore(redisClient)
		logger.Info("using redis session store", zap.String("addr", s.cfg.RedisAddr))
	default:
		store = session.NewMemoryStore()
		logger.Info("using in-memory session store")
	}

	sessionManager := session.NewManager(store, session.Config{
		TTL:            s.cfg.SessionTTL,
		MaxPerUser:     s.cfg.SessionMaxPerUser,
		EvictionPolicy: s.cfg.SessionEviction,
		SlideThreshold: s.cfg.SessionSlideThreshold,
		BindIP:         s.cfg.SessionBindIP,
	}, logger)

	// ----- Attempt tracker & rate limiter -----
	tracker := security.NewMemoryTracker(security.TrackerConfig{
		Threshold:    s.cfg.LockoutThreshold,
		LockDuration: s.cfg.LockoutDuration,
	}, logger)

	rateLimiter := security.NewRateLimiter(security.RateLimitConfig{
		Requests: s.cfg.RateLimitRequests,
		Window:   s.cfg.RateLimitWindow,
	})
	defer rateLimiter.Close()

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(jwtManager.Verifier, sessionManager, logger)
	go hub.Run(ctx)

	// ----- Repositories -----
	userRepo := postgres.NewUserRepository(pool)
	estimateRepo := postgres.NewEstimateRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	priceRepo := postgres.NewPriceRepository(pool)

	// ----- Services -----
	authService := authUsecase.NewAuthService(userRepo, jwtManager, sessionManager, tracker, hub, logger)
	estimateService := estimateUsecase.NewEstimateService(estimateRepo, logger)
	invoiceService := invoiceUsecase.NewInvoiceService(invoiceRepo, logger)
	pricingService := pricingUsecase.NewPricingService(priceRepo, logger)

	// ----- Background sweeps -----
	go s.runSweeps(ctx, sessionManager, tracker)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:     authHandler.NewAuthHandler(authService, logger),
		EstimateHandler: estimateHandler.NewEstimateHandler(estimateService, logger),
		InvoiceHandler:  invoiceHandler.NewInvoiceHandler(invoiceService, logger),
		PricingHandler:  pricingHandler.NewPricingHandler(pricingService, logger),
		WSHandler:       wsHandler.NewWebSocketHandler(hub, logger),
		AuthMiddleware:  middleware.NewAuthMiddleware(authService, logger),
		RateLimiter:     rateLimiter,
	}

	SetupRouter(s.engine, logger, handlers)

	logger.Info("starting HTTP server", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}

// runSweeps periodically prunes expired sessions and stale attempt history.
// Correctness never depends on the sweep; it only bounds memory.
func (s *Server) runSweeps(ctx context.Context, sessions *session.Manager, tracker *security.MemoryTracker) {
	interval := s.cfg.SessionSweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := sessions.SweepExpired(ctx)
			if err != nil {
				s.logger.Warn("session sweep failed", zap.Error(err))
			} else if swept > 0 {
				obs.ActiveSessions.Sub(float64(swept))
				s.logger.Info("swept expired sessions", zap.Int("count", swept))
			}
			if pruned := tracker.Prune(); pruned > 0 {
				s.logger.Info("pruned stale login attempt history", zap.Int("count", pruned))
			}
		}
	}
}
