package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/mybookshelf/price-service/config"
	_ "github.com/mybookshelf/price-service/docs"
	"github.com/mybookshelf/price-service/internal/classifier"
	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/handlers"
	"github.com/mybookshelf/price-service/internal/jobs"
	"github.com/mybookshelf/price-service/internal/middleware"
	"github.com/mybookshelf/price-service/internal/notify"
	"github.com/mybookshelf/price-service/internal/pricesource"
	"github.com/mybookshelf/price-service/internal/reports"
	"github.com/mybookshelf/price-service/internal/review"
	"github.com/mybookshelf/price-service/internal/sweepers"
	"github.com/mybookshelf/price-service/internal/telemetry"
	"github.com/mybookshelf/price-service/internal/updater"
)

// @title MyBookshelf Price Service API
// @version 1.0
// @description Price validation and approval workflow for the affiliate catalog
// @BasePath /
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting price service")

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()

	telemetryCleanup := telemetry.MustInit(ctx, telemetry.GetConfigFromEnv())
	defer telemetryCleanup(ctx)

	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	if err := handleInterruptedRuns(ctx, logger); err != nil {
		logger.Warn().Err(err).Msg("Failed to handle interrupted runs")
	}

	pool := database.Pool()
	catalog := database.NewCatalogStore(pool)
	history := database.NewHistoryStore(pool)
	queue := database.NewQueueStore(pool)
	runs := database.NewRunStore(pool)

	notifier := notify.New(notify.Config{
		Enabled:    cfg.Notify.Enabled,
		WebhookURL: cfg.Notify.WebhookURL,
		APIKey:     cfg.Notify.APIKey,
		FromEmail:  cfg.Notify.FromEmail,
		AdminEmail: cfg.Notify.AdminEmail,
	}, *logger)

	source := pricesource.NewAmazonSource(pricesource.AmazonConfig{
		BaseURL:           cfg.Source.BaseURL,
		UserAgent:         cfg.Source.UserAgent,
		Timeout:           cfg.Source.Timeout,
		RequestsPerMinute: float64(cfg.Source.RequestsPerMinute),
	}, *logger)

	updaterCfg := updater.Config{
		BatchSize:        cfg.Pricing.BatchSize,
		FreshnessHours:   cfg.Pricing.FreshnessHours,
		MaxFetchAttempts: cfg.Pricing.MaxFetchAttempts,
		RetryMaxAttempts: uint64(cfg.Source.MaxRetries),
		RetryInterval:    time.Duration(cfg.Source.RetryIntervalMs) * time.Millisecond,
		Classifier: classifier.Config{
			DefaultMaxChangePercent:  cfg.Pricing.DefaultMaxChangePercent,
			CategoryMaxChangePercent: cfg.Pricing.CategoryMaxChangePct,
			MaxPriceCents:            cfg.Pricing.MaxPriceCents,
			MinPriceCents:            cfg.Pricing.MinPriceCents,
		},
	}
	priceUpdater := updater.New(catalog, history, queue, runs, source, notifier, updaterCfg, *logger)

	gateway := review.New(queue, catalog, history, *logger)
	reportBuilder := reports.NewBuilder(queue, history, runs)

	staleSweeper := sweepers.NewStaleQueueSweeper(queue, notifier, logger,
		1*time.Hour, cfg.Pricing.StaleReviewHours)
	go staleSweeper.Start(ctx)

	cleanupManager := jobs.NewCleanupManager(jobs.DefaultManagerConfig(), logger)
	cleanupManager.Start()

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	internal := router.Group("/internal")
	internal.Use(middleware.AdminAuthMiddleware(cfg.Server.AdminAPIKey))
	internal.Use(middleware.RateLimitMiddleware())
	{
		internal.GET("/health", handlers.HealthCheck)
		handlers.RegisterHistoryRoutes(internal, catalog, history)

		admin := internal.Group("/admin")
		{
			handlers.RegisterApprovalRoutes(admin, gateway)
			handlers.RegisterUpdateRoutes(admin, priceUpdater, runs)
			handlers.RegisterReportRoutes(admin, reportBuilder)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	staleSweeper.Stop()
	cleanupManager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

// handleInterruptedRuns marks runs stuck in 'running' from a previous
// process as failed so the run list never shows a phantom in-flight cycle.
func handleInterruptedRuns(ctx context.Context, logger *zerolog.Logger) error {
	pool := database.Pool()

	result, err := pool.Exec(ctx, `
		UPDATE price_update_runs
		SET status = 'failed',
		    completed_at = NOW(),
		    error_message = 'Service restarted during processing'
		WHERE status = 'running'
	`)
	if err != nil {
		return fmt.Errorf("failed to mark interrupted runs: %w", err)
	}

	if n := result.RowsAffected(); n > 0 {
		logger.Info().Int64("count", n).Msg("Marked interrupted update runs as failed")
	}
	return nil
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "price-service").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
