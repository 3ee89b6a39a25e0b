// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/foodiemap/foodiemap/internal/database"
)

// Routing providers selectable with ROUTING_PROVIDER.
const (
	ProviderGoong      = "goong"
	ProviderGoogleMaps = "googlemaps"
)

// Config holds configuration shared by the API server and the worker.
type Config struct {
	Port        string
	Environment string
	RequireTLS  bool

	RoutingProvider  string
	GoongAPIKey      string
	GoongBaseURL     string
	GoogleMapsAPIKey string
	RoutingLanguage  string

	RouteCacheTTL time.Duration
	RouteStaleTTL time.Duration
	RouteGridSize float64
	RatesCacheTTL time.Duration

	RouteRateLimitPerMinute int

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	TelemetryEnabled bool
	OTLPEndpoint     string
	TraceSampleRatio float64

	DatabaseEnabled bool
	Database        database.Config

	PubSubProjectID    string
	PubSubSubscription string
	WarmConcurrency    int
}

// Load reads an optional .env file (files named in paths, or ./.env) and then
// the process environment. Variables already set in the environment win.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(paths...); err != nil && len(paths) > 0 {
		return nil, fmt.Errorf("loading env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("APP_PORT", "8080"),
		RequireTLS:  getBoolEnv("REQUIRE_TLS", false),
		Environment: getEnv("APP_ENV", "development"),

		RoutingProvider:  strings.ToLower(getEnv("ROUTING_PROVIDER", ProviderGoong)),
		GoongAPIKey:      os.Getenv("GOONG_API_KEY"),
		GoongBaseURL:     os.Getenv("GOONG_BASE_URL"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		RoutingLanguage:  getEnv("ROUTING_LANGUAGE", "vi"),

		RouteCacheTTL: getDurationEnv("ROUTE_CACHE_TTL", 5*time.Minute),
		RouteStaleTTL: getDurationEnv("ROUTE_STALE_TTL", 15*time.Minute),
		RouteGridSize: getFloatEnv("ROUTE_GRID_SIZE", 0.001),
		RatesCacheTTL: getDurationEnv("RATES_CACHE_TTL", 1*time.Minute),

		RouteRateLimitPerMinute: getIntEnv("RATE_LIMIT_ROUTES_PER_MINUTE", 30),

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     getEnv("JWT_ISSUER", "https://api.foodiemap.vn"),
		JWTAudience:   getEnv("JWT_AUDIENCE", "foodiemap-admin"),

		TelemetryEnabled: getBoolEnv("OTEL_ENABLED", false),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRatio: getFloatEnv("OTEL_TRACES_SAMPLER_ARG", 1),

		DatabaseEnabled: getBoolEnv("DATABASE_ENABLED", false),
		Database:        database.ConfigFromEnv(),

		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: getEnv("PUBSUB_SUBSCRIPTION", "foodiemap-worker-jobs"),
		WarmConcurrency:    getIntEnv("WARM_CONCURRENCY", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected provider has its credentials.
func (c *Config) Validate() error {
	switch c.RoutingProvider {
	case ProviderGoong:
		if c.GoongAPIKey == "" {
			return fmt.Errorf("GOONG_API_KEY is required when ROUTING_PROVIDER=%s", ProviderGoong)
		}
	case ProviderGoogleMaps:
		if c.GoogleMapsAPIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required when ROUTING_PROVIDER=%s", ProviderGoogleMaps)
		}
	default:
		return fmt.Errorf("unknown ROUTING_PROVIDER %q", c.RoutingProvider)
	}
	if c.RouteGridSize <= 0 {
		return fmt.Errorf("ROUTE_GRID_SIZE must be positive, got %v", c.RouteGridSize)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}
