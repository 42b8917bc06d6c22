package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cowema/promotion-engine/internal/cache"
	"github.com/cowema/promotion-engine/internal/config"
	"github.com/cowema/promotion-engine/internal/handler"
	"github.com/cowema/promotion-engine/internal/model"
	"github.com/cowema/promotion-engine/internal/repository"
	"github.com/cowema/promotion-engine/internal/selector"
	"github.com/cowema/promotion-engine/internal/store"
	"github.com/cowema/promotion-engine/internal/validator"
	"github.com/cowema/promotion-engine/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Redis backs the durable promotion snapshot. Unreachable Redis is not
	// fatal: the store keeps its defaults and the remote sync still runs.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize promotion engine components (layered architecture)
	promoRepo := repository.NewPromotionRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	snapshot := cache.NewSnapshot(redisClient)

	promoStore := store.New(promoRepo, usageRepo, settingsRepo, snapshot)
	if err := promoStore.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("snapshot restore failed, starting from defaults")
	}
	if err := promoStore.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("remote promotion load failed, keeping local collection")
	}

	// The selector re-evaluates the surfaced promotion once per interval.
	sel := selector.New(promoStore,
		time.Duration(cfg.Selector.IntervalSeconds)*time.Second,
		func(p model.Promotion) {
			log.Info().Str("code", p.Code).Float64("discount", p.Discount).Msg("new promotion surfaced to storefront")
		})
	selectorCtx, selectorCancel := context.WithCancel(ctx)
	sel.Start(selectorCtx)

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "COWEMA Promotion Engine",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB body limit
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	promoHandler := handler.NewPromotionHandler(promoStore, validate)
	applyHandler := handler.NewApplyHandler(promoStore, validate)
	healthHandler := handler.NewHealthHandler(pool)

	app.Get("/health", healthHandler.Check)

	// Storefront routes
	app.Get("/api/promotions/surfaced", promoHandler.GetSurfaced)
	app.Get("/api/promotions/code/:code", promoHandler.GetByCode)
	app.Post("/api/promotions/apply", applyHandler.ApplyCode)

	// Admin routes
	app.Get("/api/promotions", promoHandler.ListPromotions)
	app.Post("/api/promotions", promoHandler.CreatePromotion)
	app.Patch("/api/promotions/:id", promoHandler.UpdatePromotion)
	app.Post("/api/promotions/:id/activate", promoHandler.ActivatePromotion)
	app.Post("/api/promotions/:id/deactivate", promoHandler.DeactivatePromotion)
	app.Delete("/api/promotions/:id", promoHandler.DeletePromotion)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Stop the selector before tearing the rest down so no tick runs against
	// a closing pool.
	selectorCancel()
	sel.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close connections AFTER server shutdown (even if shutdown timed out)
	pool.Close()
	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("error closing redis client")
	}
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
