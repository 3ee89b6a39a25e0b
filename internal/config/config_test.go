package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiemap/foodiemap/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("GOONG_API_KEY", "goong-key")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.ProviderGoong, cfg.RoutingProvider)
	assert.Equal(t, 5*time.Minute, cfg.RouteCacheTTL)
	assert.Equal(t, 15*time.Minute, cfg.RouteStaleTTL)
	assert.Equal(t, time.Minute, cfg.RatesCacheTTL)
	assert.InDelta(t, 0.001, cfg.RouteGridSize, 1e-12)
	assert.False(t, cfg.TelemetryEnabled)
	assert.False(t, cfg.RequireTLS)
	assert.Equal(t, 30, cfg.RouteRateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ROUTING_PROVIDER", "GoogleMaps")
	t.Setenv("GOOGLE_MAPS_API_KEY", "maps-key")
	t.Setenv("ROUTE_CACHE_TTL", "90s")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("WARM_CONCURRENCY", "8")
	t.Setenv("REQUIRE_TLS", "true")
	t.Setenv("RATE_LIMIT_ROUTES_PER_MINUTE", "120")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, config.ProviderGoogleMaps, cfg.RoutingProvider)
	assert.Equal(t, 90*time.Second, cfg.RouteCacheTTL)
	assert.True(t, cfg.TelemetryEnabled)
	assert.True(t, cfg.RequireTLS)
	assert.Equal(t, 120, cfg.RouteRateLimitPerMinute)
	assert.InDelta(t, 0.25, cfg.TraceSampleRatio, 1e-9)
	assert.Equal(t, 8, cfg.WarmConcurrency)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GOONG_API_KEY", "goong-key")
	t.Setenv("ROUTE_CACHE_TTL", "soon")
	t.Setenv("OTEL_ENABLED", "maybe")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.RouteCacheTTL)
	assert.False(t, cfg.TelemetryEnabled)
}

func TestFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"goong without key", map[string]string{"ROUTING_PROVIDER": "goong", "GOONG_API_KEY": ""}},
		{"googlemaps without key", map[string]string{"ROUTING_PROVIDER": "googlemaps", "GOOGLE_MAPS_API_KEY": ""}},
		{"unknown provider", map[string]string{"ROUTING_PROVIDER": "osrm", "GOONG_API_KEY": "k"}},
		{"bad grid", map[string]string{"GOONG_API_KEY": "k", "ROUTE_GRID_SIZE": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GOONG_API_KEY=from-file\nAPP_PORT=9090\n"), 0o600))

	// godotenv does not override variables already present
	t.Setenv("APP_PORT", "7070")
	t.Setenv("GOONG_API_KEY", "")
	require.NoError(t, os.Unsetenv("GOONG_API_KEY"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GoongAPIKey)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
