package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"zepto-analytics/internal/config"
	"zepto-analytics/internal/loader"
	"zepto-analytics/internal/model"
	"zepto-analytics/internal/repository"
	"zepto-analytics/internal/router"
	"zepto-analytics/internal/service"
	"zepto-analytics/internal/telemetry"
	"zepto-analytics/pkg/database"
	"zepto-analytics/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// 1. Load Env
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: failed to read .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// 2. Logging
	logger.Init("zepto-analytics", cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	// 3. Data Loader (connects per cold load, never at startup)
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	productRepo := repository.NewProductRepo(database.Options{
		DSN:            cfg.DB.DSN(),
		ConnectTimeout: cfg.DB.ConnectTimeout,
		Debug:          cfg.LogLevel == "debug",
	}, cfg.DB.Table, cfg.DB.QueryTimeout)
	datasetLoader := loader.New(productRepo,
		loader.WithTTL(cfg.CacheTTL),
		loader.WithMetrics(metrics),
	)

	// 4. Warm the cache. A failure here is not fatal; requests retry the load.
	if _, err := datasetLoader.Load(context.Background()); err != nil {
		logger.Logger.Warn().
			Err(err).
			Bool("retryable", model.Retryable(err)).
			Msg("Initial dataset load failed")
	}

	// 5. Wiring
	dashService := service.NewDashboardService(datasetLoader)
	app := router.New(dashService, metrics, prometheus.DefaultGatherer)

	// 6. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	logger.Logger.Info().Msg("Server exited")
}
