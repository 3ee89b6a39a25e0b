// Package main provides the entrypoint for the FoodieMap background worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/api/middleware"
	"github.com/foodiemap/foodiemap/internal/api/response"
	"github.com/foodiemap/foodiemap/internal/config"
	"github.com/foodiemap/foodiemap/internal/provider/resilience"
	"github.com/foodiemap/foodiemap/internal/routing"
	"github.com/foodiemap/foodiemap/internal/routing/googlemaps"
	"github.com/foodiemap/foodiemap/internal/routing/goong"
	"github.com/foodiemap/foodiemap/internal/telemetry"
	"github.com/foodiemap/foodiemap/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// warmInterval is how often the worker warms routes when no Pub/Sub
// subscription drives it.
const warmInterval = 15 * time.Minute

func main() {
	const serviceName = "foodiemap-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting FoodieMap worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	registry := resilience.NewRegistry()
	provider, err := newProvider(cfg, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize routing provider")
	}

	routingService := routing.NewService(routing.ServiceConfig{
		Provider:        provider,
		Metrics:         providerMetrics,
		Logger:          log,
		CacheTTL:        cfg.RouteCacheTTL,
		CacheGridSize:   cfg.RouteGridSize,
		StaleIfErrorTTL: cfg.RouteStaleTTL,
	})

	warmConfig := worker.DefaultWarmConfig()
	warmConfig.Concurrency = cfg.WarmConcurrency
	warmJob := worker.NewWarmJob(worker.WarmJobConfig{
		Config:  warmConfig,
		Logger:  log,
		Routing: routingService,
	})
	dispatcher := worker.NewDispatcher(warmJob, log)

	// Worker also exposes health endpoint for Cloud Run
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"version":   Version,
			"provider":  provider.Name(),
			"warmup":    warmJob.MetricsSnapshot(),
			"providers": registry.OverallStatus(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.PubSubProjectID != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			Dispatcher:       dispatcher,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
			}
		}()
	} else {
		log.Warn().
			Dur("interval", warmInterval).
			Msg("PUBSUB_PROJECT_ID not set, warming routes on a timer")

		go func() {
			ticker := time.NewTicker(warmInterval)
			defer ticker.Stop()

			for {
				warmJob.Run(ctx)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
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
