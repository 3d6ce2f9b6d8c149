package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront-api/internal/cache"
	"storefront-api/internal/config"
	"storefront-api/internal/events"
	"storefront-api/internal/handlers"
	"storefront-api/internal/middleware"
	"storefront-api/internal/models"
	"storefront-api/internal/services"
	"storefront-api/internal/telemetry"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Storefront API", "version", "1.0.0")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize OpenTelemetry telemetry system
	otelTelemetry := &telemetry.Telemetry{}
	if err := otelTelemetry.InitMetrics(ctx, telemetry.MeterName, telemetry.MetricsOptions{
		Exporter: cfg.MetricsExporter,
		Port:     cfg.MetricsPort,
	}); err != nil {
		return err
	}

	apiTelemetry := telemetry.NewStorefrontApiTelemetry()
	if err := apiTelemetry.InitializeTelemetry(ctx); err != nil {
		slog.Error("Failed to initialize API telemetry", "error", err)
		return err
	}

	eventQueue := events.NewEventQueue(events.EventQueueConfig{
		MaxEvents: config.ParseInt("MAX_EVENTS_IN_QUEUE", cfg.MaxEventsInQueue, 10000),
		Logger:    slog.Default(),
	})

	idempotencyCache := cache.NewTTLCache[models.Order](
		config.ParseDuration("IDEMPOTENCY_CACHE_TTL", cfg.IdempotencyCacheTTL, 2*time.Minute),
		config.ParseDuration("IDEMPOTENCY_CACHE_CLEANUP_INTERVAL", cfg.IdempotencyCacheCleanupInterval, 30*time.Second),
	)
	defer idempotencyCache.Stop()

	// Initialize services
	catalog := services.NewCatalogService(eventQueue)
	promotions := services.NewPromotionService()
	stores := services.Stores{
		Catalog:    catalog,
		Orders:     services.NewOrderService(catalog, promotions, eventQueue, idempotencyCache),
		Promotions: promotions,
		Messages:   services.NewMessageService(),
	}
	if cfg.DataPath != "" {
		seed, err := services.LoadSeedFile(cfg.DataPath)
		if err != nil {
			return err
		}
		stores.Seed(seed)
	} else {
		slog.Info("No DATA_PATH configured, starting with empty stores")
	}

	adminAuth := middleware.NewAdminAuth(cfg.AdminKeys())
	if !adminAuth.Enabled() {
		if cfg.IsProduction() {
			slog.Warn("ADMIN_API_KEYS is not set, admin routes are open")
		} else {
			slog.Info("Admin authentication disabled")
		}
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Enabled:           config.ParseBool("RATE_LIMIT_ENABLED", cfg.RateLimitEnabled, false),
		Type:              middleware.ParseRateLimitType(cfg.RateLimitType),
		RequestsPerMinute: config.ParseInt("RATE_LIMIT_REQUESTS_PER_MINUTE", cfg.RateLimitRequestsPerMinute, 100),
	})
	defer rateLimiter.Stop()

	router := handlers.NewRouter(handlers.Dependencies{
		Catalog:    stores.Catalog,
		Orders:     stores.Orders,
		Promotions: stores.Promotions,
		Messages:   stores.Messages,
		Events:     eventQueue,
		AdminAuth:  adminAuth,
		RateLimit:  rateLimiter,
		Telemetry:  apiTelemetry,
		Logger:     slog.Default(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server ready to accept connections", "address", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(otelTelemetry.ServeMetrics)

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")

		// Give outstanding requests a deadline for completion
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			config.ParseDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, 30*time.Second))
		defer cancel()

		// Release long-poll waiters before draining connections
		eventQueue.Close()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}

		otelTelemetry.Close(shutdownCtx)
		slog.Info("Telemetry shutdown completed")
		return err
	})

	return g.Wait()
}
