// Package main provides the entrypoint for the FoodieMap API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/api"
	"github.com/foodiemap/foodiemap/internal/api/handler"
	"github.com/foodiemap/foodiemap/internal/api/middleware"
	"github.com/foodiemap/foodiemap/internal/auth"
	"github.com/foodiemap/foodiemap/internal/config"
	"github.com/foodiemap/foodiemap/internal/database"
	"github.com/foodiemap/foodiemap/internal/provider/resilience"
	"github.com/foodiemap/foodiemap/internal/rates"
	"github.com/foodiemap/foodiemap/internal/routing"
	"github.com/foodiemap/foodiemap/internal/routing/googlemaps"
	"github.com/foodiemap/foodiemap/internal/routing/goong"
	"github.com/foodiemap/foodiemap/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "foodiemap-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting FoodieMap API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Rates live in Postgres when a database is configured, in memory otherwise.
	var (
		rateRepo rates.Repository
		pinger   handler.Pinger
	)
	if cfg.DatabaseEnabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().Str("target", cfg.Database.Redacted()).Msg("database connected")

		repo := rates.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare rates schema")
		}
		rateRepo = repo
		pinger = pool
	} else {
		log.Warn().Msg("DATABASE_ENABLED is false, rate overrides are kept in memory")
		rateRepo = rates.NewInMemoryRepository()
	}

	ratesService := rates.NewService(rates.ServiceConfig{
		Repository: rateRepo,
		Logger:     log,
		CacheTTL:   cfg.RatesCacheTTL,
	})
	log.Info().Msg("rates service initialized")

	registry := resilience.NewRegistry()
	provider, err := newProvider(cfg, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize routing provider")
	}

	routingService := routing.NewService(routing.ServiceConfig{
		Provider:        provider,
		Rates:           ratesService,
		Metrics:         providerMetrics,
		Logger:          log,
		CacheTTL:        cfg.RouteCacheTTL,
		CacheGridSize:   cfg.RouteGridSize,
		StaleIfErrorTTL: cfg.RouteStaleTTL,
	})
	log.Info().
		Str("provider", provider.Name()).
		Msg("routing service initialized")

	// Admin tokens are minted out of band with the same signing key.
	jwtSigningKey := cfg.JWTSigningKey
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Currency:    ratesService.Currency(),
		RequireTLS:  cfg.RequireTLS,
		ComputeRateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.RouteRateLimitPerMinute,
			WindowLength: time.Minute,
		},
		Routing:     routingService,
		Rates:       ratesService,
		RateStore:   ratesService,
		Tokens:      jwtService,
		Registry:    registry,
		Database:    pinger,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// newProvider builds the routing provider selected by ROUTING_PROVIDER.
func newProvider(cfg *config.Config, registry *resilience.Registry, log zerolog.Logger) (routing.Provider, error) {
	switch cfg.RoutingProvider {
	case config.ProviderGoogleMaps:
		return googlemaps.NewClient(googlemaps.ClientConfig{
			APIKey:   cfg.GoogleMapsAPIKey,
			Registry: registry,
			Language: cfg.RoutingLanguage,
			Logger:   log,
		})
	default:
		return goong.NewClient(goong.ClientConfig{
			APIKey:   cfg.GoongAPIKey,
			BaseURL:  cfg.GoongBaseURL,
			Registry: registry,
			Logger:   log,
		}), nil
	}
}
