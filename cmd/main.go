package main

import (
	"context"
	"fmt"
	"time"

	"pawnbook-service/internal/billing"
	"pawnbook-service/internal/handler"
	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/storage"
	"pawnbook-service/pkg/config"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/jwtutil"
	"pawnbook-service/pkg/logger"
	"pawnbook-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting pawnbook service...", cfg.LogConfig()...)

	jwtutil.Initialize(&cfg.JWT)
	middleware.SessionCookieName = cfg.JWT.CookieName
	handler.SessionCookieSecure = cfg.JWT.CookieSecure
	log.Info("JWT utility initialized")

	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if cfg.Storage.Enabled() {
		store, err := storage.NewMinioStore(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.EnsureBucket(ctx)
		cancel()
		if err != nil {
			log.Fatal("Failed to prepare storage bucket", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		storage.SetDefault(store)
		log.Info("Object storage initialized", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		log.Warn("Object storage not configured, uploads are disabled")
	}
	if cfg.Storage.MaxUploadBytes > 0 {
		handler.MaxUploadBytes = cfg.Storage.MaxUploadBytes
	}

	if cfg.Stripe.Enabled() {
		billing.SetDefault(billing.NewStripeProvider(&cfg.Stripe))
		handler.CheckoutPriceID = cfg.Stripe.PriceID
		handler.CheckoutSuccessURL = cfg.Stripe.SuccessURL
		handler.CheckoutCancelURL = cfg.Stripe.CancelURL
		handler.PortalReturnURL = cfg.Stripe.PortalReturn
		log.Info("Stripe billing initialized")
	} else {
		log.Warn("Stripe not configured, subscriptions are disabled")
	}

	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowCredentials: true,
	}))
	// multipart overhead on top of the largest allowed upload
	e.Use(echomiddleware.BodyLimit(fmt.Sprintf("%dK", handler.MaxUploadBytes/1024+1024)))
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	handler.RegisterRoutes(e)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
