package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/namma-finance/ledger-core/internal/auth"
	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/cache"
	"github.com/namma-finance/ledger-core/internal/config"
	"github.com/namma-finance/ledger-core/internal/handler"
	"github.com/namma-finance/ledger-core/internal/jobs"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/repository/postgres"
	"github.com/namma-finance/ledger-core/internal/service"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	c, err := cache.New(cfg.CacheURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to cache")
	}

	queue, err := jobs.NewQueue(cfg.CacheURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to job queue")
	}
	defer queue.Close()

	// Initialize repositories
	db := postgres.New(pool)
	userRepo := postgres.NewUserRepo(db)
	customerRepo := postgres.NewCustomerRepo(db)
	agentAssignmentRepo := postgres.NewAgentAssignmentRepo(db)
	loanRepo := postgres.NewLoanRepo(db)
	scheduleRepo := postgres.NewScheduleRepo(db)
	collectionRepo := postgres.NewCollectionRepo(db)
	feePenaltyRepo := postgres.NewFeePenaltyRepo(db)
	auditRepo := postgres.NewAuditRepo(db)
	investmentRepo := postgres.NewInvestmentRepo(db)
	borrowingRepo := postgres.NewBorrowingRepo(db)
	analyticsRepo := postgres.NewAnalyticsRepo(db)

	tokens := auth.NewTokenManager(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	checker := authz.New(agentAssignmentRepo, customerRepo)

	// Initialize services
	auditService := service.NewAuditService(auditRepo)
	scheduleService := service.NewScheduleService(loanRepo, scheduleRepo)
	authService := service.NewAuthService(userRepo, tokens)
	userService := service.NewUserService(userRepo, auditService)
	customerService := service.NewCustomerService(customerRepo, checker, auditService)
	loanService := service.NewLoanService(db, loanRepo, customerRepo, feePenaltyRepo, checker, auditService, c, queue, scheduleService)
	collectionService := service.NewCollectionService(db, loanRepo, collectionRepo, scheduleRepo, feePenaltyRepo, checker, auditService, c)
	capitalService := service.NewCapitalService(investmentRepo, borrowingRepo)
	analyticsService := service.NewAnalyticsService(analyticsRepo)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokens, userRepo)
	loginLimiter := middleware.NewFixedWindowLimiter(cfg.LoginRateLimitRequests, cfg.LoginRateLimitWindow)
	agentLimiter := middleware.NewAgentRateLimiter(cfg.AgentRateLimitPerMinute, cfg.AgentRateLimitBurst)

	// Initialize handlers
	handlers := &handler.Handlers{
		Auth:        handler.NewAuthHandler(authService, authMiddleware, cfg.IsProduction()),
		Loans:       handler.NewLoanHandler(loanService, scheduleService, collectionService, authMiddleware),
		Collections: handler.NewCollectionHandler(collectionService, authMiddleware),
		Customers:   handler.NewCustomerHandler(customerService, userService, authMiddleware),
		Users:       handler.NewUserHandler(userService, authMiddleware),
		Capital:     handler.NewCapitalHandler(capitalService, authMiddleware),
		Analytics:   handler.NewAnalyticsHandler(analyticsService, authMiddleware),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, handlers, authMiddleware, middleware.LoginRateLimit(loginLimiter), middleware.AgentRateLimit(agentLimiter))

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	loginLimiter.Stop()
	agentLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
