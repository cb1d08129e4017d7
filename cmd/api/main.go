// @title Budget Allocation Engine API
// @version 1.0
// @description Distributes trade-promotion budgets across customers, channels and regions and tracks their utilization.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/tpm-platform/allocation-engine/internal/config"
	"github.com/tpm-platform/allocation-engine/internal/domain"
	"github.com/tpm-platform/allocation-engine/internal/handler"
	"github.com/tpm-platform/allocation-engine/internal/middleware"
	"github.com/tpm-platform/allocation-engine/internal/repository/locking"
	"github.com/tpm-platform/allocation-engine/internal/repository/postgres"
	"github.com/tpm-platform/allocation-engine/internal/repository/storage"
	"github.com/tpm-platform/allocation-engine/internal/service"
	"github.com/tpm-platform/allocation-engine/internal/websocket"
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
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	// Connect to database
	pool, err := postgres.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	// Initialize repositories
	allocationRepo := postgres.NewBudgetAllocationRepository(pool)
	referenceRepo := postgres.NewReferenceRepository(pool)
	spendLedger := postgres.NewSpendLedgerRepository(pool)

	// Mutation guard: Redis when configured so every replica shares it
	var guard domain.MutationGuard = service.NewLocalMutationGuard()
	if cfg.Redis.Address != "" {
		redisClient, err := locking.Connect(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		guard = locking.NewRedisMutationGuard(redisClient, cfg.MutationLockTTL)
		log.Info().Str("address", cfg.Redis.Address).Msg("Using Redis mutation guard")
	} else {
		log.Warn().Msg("REDIS_ADDRESS not set, mutation guard is process local")
	}

	// WebSocket hub
	hub := websocket.NewHub()

	// Initialize services
	resolver := service.NewEntityResolver(referenceRepo)
	allocationService := service.NewBudgetAllocationService(allocationRepo, referenceRepo, spendLedger, resolver, guard)
	allocationService.SetLegacyMethodFallback(cfg.LegacyMethodFallback)
	allocationService.SetEventPublisher(hub)

	utilizationService := service.NewUtilizationService(allocationRepo, spendLedger, guard)
	utilizationService.SetEventPublisher(hub)

	// Background utilization refresh
	var utilizationWorker *service.UtilizationWorker
	if cfg.UtilizationRefreshInterval > 0 {
		utilizationWorker = service.NewUtilizationWorker(utilizationService, allocationRepo, log.Logger, cfg.UtilizationRefreshInterval)
		utilizationWorker.Start(context.Background())
	}

	waterfallService := service.NewWaterfallService(allocationRepo, referenceRepo, spendLedger)
	if cfg.S3.Enabled() {
		reportStore, err := storage.NewS3ReportStore(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize report storage")
		}
		waterfallService.SetReportStore(reportStore, cfg.S3.PresignExpiry)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Report storage enabled")
	}

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, referenceRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}

	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, referenceRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket token validator")
	}

	// Initialize handlers
	allocationHandler := handler.NewAllocationHandler(allocationService, utilizationService)
	reportHandler := handler.NewReportHandler(allocationService, waterfallService)
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

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

	// API docs
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", handler.ServeOpenAPI3Spec)

	// WebSocket endpoint (token passed as query param)
	e.GET("/ws", wsHandler.HandleWS)

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, allocationHandler, reportHandler)

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

	if utilizationWorker != nil {
		utilizationWorker.Stop()
	}
	hub.Shutdown()

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

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Int32("tenant_id", middleware.GetTenantID(c)).
				Msg("request")

			return nil
		}
	}
}
