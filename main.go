package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/ai"
	"github.com/pawscope/backend/internal/audit"
	"github.com/pawscope/backend/internal/config"
	"github.com/pawscope/backend/internal/handler"
	"github.com/pawscope/backend/internal/metrics"
	"github.com/pawscope/backend/internal/middleware"
	"github.com/pawscope/backend/internal/repository"
	"github.com/pawscope/backend/internal/security"
	"github.com/pawscope/backend/internal/service"
	"github.com/pawscope/backend/internal/snapshot"
	"github.com/pawscope/backend/internal/storage"
)

var (
	logger *zap.Logger
	pool   *pgxpool.Pool
	cfg    *config.Config
)

func main() {
	// Load configuration
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database connection pool with pgx
	pool, err = pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Test database connection
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize analysis gateway client
	analyzer, err := ai.NewOpenAIAnalyzer(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
	if err != nil {
		logger.Fatal("Failed to initialize analysis client", zap.Error(err))
	}

	// Initialize media storage
	mediaStorage, err := storage.NewMediaStorageClient(
		cfg.Azure.Storage.AccountName,
		cfg.Azure.Storage.AccountKey,
		cfg.Azure.Storage.MediaContainer,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize media storage client", zap.Error(err))
	}

	// Initialize snapshot store for session persistence, encrypted at rest
	// when a key is configured
	var snapshotEnc *security.Encryptor
	if cfg.Triage.SnapshotKey != "" {
		snapshotEnc, err = security.NewEncryptor([]byte(cfg.Triage.SnapshotKey))
		if err != nil {
			logger.Fatal("Failed to initialize snapshot encryption", zap.Error(err))
		}
	}
	snapshotStore, err := snapshot.NewFileStore(cfg.Triage.SnapshotDir, snapshotEnc, logger)
	if err != nil {
		logger.Fatal("Failed to initialize snapshot store", zap.Error(err))
	}

	// Initialize repositories
	checkRepo := repository.NewSymptomCheckRepository(pool, logger)
	providerRepo := repository.NewProviderRepository(pool, logger)

	// Initialize metrics
	m := metrics.NewMetrics()

	// Initialize audit logging
	auditLogger := audit.NewLogger(pool, logger)

	// Initialize services
	providerService := service.NewProviderService(providerRepo, logger)
	checkService := service.NewCheckService(checkRepo, analyzer, m, logger)
	limits := service.Limits{
		MaxImages:        cfg.Triage.MaxImages,
		MaxImageBytes:    cfg.Triage.MaxImageBytes,
		MaxVideoBytes:    cfg.Triage.MaxVideoBytes,
		MinSymptomLength: cfg.Triage.MinSymptomLength,
	}
	triageService := service.NewTriageService(
		snapshotStore,
		analyzer,
		providerService,
		checkRepo,
		mediaStorage,
		m,
		limits,
		logger,
	)

	evictionCtx, stopEviction := context.WithCancel(context.Background())
	defer stopEviction()
	triageService.StartEvictionLoop(evictionCtx, 10*time.Minute, cfg.Triage.SessionIdleTTL)

	// Initialize handlers
	triageHandler := handler.NewTriageHandler(triageService, logger)
	checkHandler := handler.NewCheckHandler(checkService, auditLogger, logger)
	providerHandler := handler.NewProviderHandler(providerService, logger)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add request ID middleware
	r.Use(middleware.RequestIDMiddleware())

	// Add request logging middleware
	r.Use(middleware.RequestLoggingMiddleware(logger))

	// Add error logging middleware
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	// Register routes
	r.GET("/health", getHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		triage := v1.Group("/triage/session")
		{
			triage.POST("/start", triageHandler.PostSessionStart)
			triage.GET("/:id", triageHandler.GetSession)
			triage.POST("/:id/select", triageHandler.PostSelect)
			triage.POST("/:id/symptoms", triageHandler.PostSymptoms)
			triage.POST("/:id/media", triageHandler.PostMedia)
			triage.DELETE("/:id/media", triageHandler.DeleteMedia)
			triage.POST("/:id/feedback", triageHandler.PostFeedback)
			triage.POST("/:id/followup", triageHandler.PostFollowUp)
			triage.POST("/:id/reset", triageHandler.PostReset)
		}

		v1.POST("/checks", checkHandler.PostCheck)
		v1.GET("/checks/:id", checkHandler.GetCheck)
		v1.PUT("/checks/:id/messages", checkHandler.PutMessages)
		v1.POST("/checks/:id/feedback", checkHandler.PostCheckFeedback)
		v1.GET("/pets/:petId/checks", checkHandler.GetPetChecks)

		v1.GET("/providers/nearby", providerHandler.GetNearby)
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close database connections
	pool.Close()

	logger.Info("Server exited")
}

// getHealth implements the health check endpoint
func getHealth(c *gin.Context) {
	ctx := c.Request.Context()

	// Check database connectivity
	if err := pool.Ping(ctx); err != nil {
		logger.Error("health check failed: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	// Return healthy status
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
		"service":  "pawscope-backend",
		"version":  "1.0.0",
	})
}
