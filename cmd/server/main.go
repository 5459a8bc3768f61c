package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/store177/shop-backend/config"
	"github.com/store177/shop-backend/internal/app/controller"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/app/service"
	"github.com/store177/shop-backend/internal/auth"
	"github.com/store177/shop-backend/internal/db"
	"github.com/store177/shop-backend/internal/middleware"
	"github.com/store177/shop-backend/internal/notify"
	"github.com/store177/shop-backend/internal/router"
	"github.com/store177/shop-backend/internal/scheduler"
	"github.com/store177/shop-backend/internal/storage"
	ws "github.com/store177/shop-backend/internal/websocket"
	"github.com/store177/shop-backend/pkg/logger"
	"github.com/store177/shop-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	format := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		format = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      format,
		EnableColor: true,
	})

	logger.Info("Starting "+cfg.Telegram.StoreName+" backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"admins":      len(cfg.Telegram.AdminIDs),
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if cfg.Server.Environment == "development" {
		if err := db.Seed(); err != nil {
			logger.Warn("Failed to seed database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Redis is optional: without it the catalog is rebuilt on every read
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, catalog cache disabled", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}
	catalogCache := redis.NewCache(redis.GetClient(), cfg.Redis.CatalogTTL)

	var images service.ImageStorage
	if cfg.S3.Bucket != "" && cfg.S3.BaseURL != "" {
		images = storage.NewS3Storage(&cfg.S3)
	} else {
		logger.Warn("S3 storage not configured, image presign disabled", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Admin live feed
	hub := ws.NewHub()
	go hub.Run(ctx)

	var telegram notify.Notifier
	if cfg.Telegram.NotifyEnable && cfg.Telegram.BotToken != "" {
		telegram = notify.NewTelegramSender(cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken)
	}
	notifier := notify.NewMultiNotifier(telegram, hub)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db.GetDB())
	variantRepo := repository.NewVariantRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())

	// Initialize services
	productService := service.NewProductService(productRepo, catalogCache, images)
	orderService := service.NewOrderService(db.GetDB(), orderRepo, productRepo, variantRepo, catalogCache, service.OrderNotifications{
		Notifier:  notifier,
		AdminIDs:  cfg.Telegram.AdminIDs,
		StoreName: cfg.Telegram.StoreName,
	})

	// Auth gates
	telegramGate := auth.NewTelegramGate(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL, cfg.Telegram.IsAdmin)
	sessionGate := auth.NewSessionGate(cfg.JWT.Secret, cfg.JWT.SessionExpiry, cfg.Telegram.IsAdmin)

	// Initialize controllers
	productController := controller.NewProductController(productService)
	orderController := controller.NewOrderController(orderService, cfg.Order.PlacementTimeout)
	adminController := controller.NewAdminController(sessionGate, hub, cfg.CORS.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(telegramGate, sessionGate)

	r := router.NewRouter(
		productController,
		orderController,
		adminController,
		authMiddleware,
		cfg,
	)

	jobs := scheduler.NewScheduler(scheduler.Config{
		CatalogWarmSpec:   cfg.Scheduler.CatalogWarmSpec,
		LowStockSpec:      cfg.Scheduler.LowStockSpec,
		LowStockThreshold: cfg.Scheduler.LowStockThreshold,
		AdminIDs:          cfg.Telegram.AdminIDs,
	}, productService, variantRepo, notifier)
	if err := jobs.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", err)
	}
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
