package main

import (
	"context"
	"net/http"

	"stockwatch-service/internal/catalog"
	"stockwatch-service/internal/handler"
	mid "stockwatch-service/internal/middleware"
	"stockwatch-service/internal/store"
	"stockwatch-service/internal/sweep"
	"stockwatch-service/pkg/config"
	"stockwatch-service/pkg/database"
	"stockwatch-service/pkg/jwtutil"
	"stockwatch-service/pkg/logger"
	"stockwatch-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration (reads .env if present)
	appConfig, err := config.Load("stockwatch-service")
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting stockwatch-service", appConfig.LogConfig()...)

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	err = database.InitDB(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Wire the core: store, catalog gateway, executor, pipeline, scheduler
	// and reactivator all share one store and one catalog client.
	runStore := store.New(database.GetDB())
	catalogClient := catalog.NewClient(&appConfig.Catalog, appConfig.Sweep.PageSize, log)
	executor := sweep.NewExecutor(catalogClient, runStore, runStore,
		appConfig.Sweep.DeactivationTag, appConfig.Sweep.ProgressStride, log)
	pipeline := sweep.NewPipeline(catalogClient, executor, runStore,
		appConfig.Sweep.DefaultThresholdDays, log)
	reactivator := sweep.NewReactivator(catalogClient, runStore,
		appConfig.Sweep.DeactivationTag, log)

	scheduler := sweep.NewScheduler(runStore, pipeline, appConfig.Sweep.TickInterval, log)
	scheduler.Start(context.Background())
	log.Info("Tenant scheduler started",
		zap.Duration("tick_interval", appConfig.Sweep.TickInterval))

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	settingsHandler := handler.NewSettingsHandler(runStore)
	scanHandler := handler.NewScanHandler(runStore, pipeline)
	activityHandler := handler.NewActivityHandler(runStore)
	webhookHandler := handler.NewWebhookHandler(runStore, reactivator)

	// Shop-scoped API routes - auth middleware validates the session JWT
	// and extracts the shop domain
	api := e.Group("/api", mid.AuthMiddleware)
	api.GET("/settings", settingsHandler.GetSettings)
	api.PUT("/settings", settingsHandler.UpdateSettings)
	api.POST("/scan", scanHandler.RunScan)
	api.GET("/scan/status", scanHandler.GetStatus)
	api.GET("/activity", activityHandler.ListActivity)
	api.DELETE("/activity", activityHandler.ClearActivity)

	// Inbound catalog notifications - authenticated by the delivery channel,
	// not by session JWT
	e.POST("/webhooks/inventory-levels", webhookHandler.HandleInventoryLevel)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
