package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// RateSource supplies the rate table used to price route plans.
type RateSource interface {
	Table(ctx context.Context) RateTable
}

// StaticRates is a RateSource that always returns the same table.
type StaticRates RateTable

// Table implements RateSource.
func (s StaticRates) Table(context.Context) RateTable {
	return RateTable(s)
}

// MetricsRecorder receives cache and provider events from the service.
type MetricsRecorder interface {
	RecordCacheLookup(ctx context.Context, mode string, hit bool)
	RecordProviderCall(ctx context.Context, provider string, duration time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordCacheLookup(context.Context, string, bool)                      {}
func (noopMetrics) RecordProviderCall(context.Context, string, time.Duration, error) {}

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Rates prices plans. Defaults to DefaultRateTable.
	Rates RateSource

	// Metrics records cache lookups and provider calls. Optional.
	Metrics MetricsRecorder

	// Logger for service operations.
	Logger zerolog.Logger

	// Tracer spans provider calls. Defaults to the global tracer provider.
	Tracer trace.Tracer

	// CacheTTL is how long to cache routing data (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration
}

// Service provides routing data with caching.
type Service struct {
	provider        Provider
	rates           RateSource
	metrics         MetricsRecorder
	tracer          trace.Tracer
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration

	// mu guards the cache only. Provider calls run unlocked, and concurrent
	// misses on one key share a single call through inflight.
	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
	inflight    singleflight.Group
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001 // ~110m, restaurants sit close together
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	rates := cfg.Rates
	if rates == nil {
		rates = StaticRates(DefaultRateTable())
	}

	var metrics MetricsRecorder = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/foodiemap/foodiemap/internal/routing")
	}

	return &Service{
		provider:        cfg.Provider,
		rates:           rates,
		metrics:         metrics,
		tracer:          tracer,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedDirections),
	}
}

// GetDirections returns route directions between two points.
// Uses cached data if available and not expired.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := ValidateCoordinate(req.Origin); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates: " + err.Error(),
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := ValidateCoordinate(req.Destination); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates: " + err.Error(),
			Err:      ErrInvalidCoordinates,
		}
	}

	if req.Mode == "" {
		req.Mode = ModeCar
	}
	if !s.Supports(req.Mode) {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "UNSUPPORTED_MODE",
			Message:  fmt.Sprintf("transport mode %q is not supported", req.Mode),
			Err:      ErrUnsupportedMode,
		}
	}

	cacheKey := s.cacheKey(req)

	if cached, ok := s.lookup(cacheKey); ok && time.Now().Before(cached.expiresAt) {
		s.metrics.RecordCacheLookup(ctx, string(req.Mode), true)
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for directions")
		return cached.response, nil
	}

	v, err, shared := s.inflight.Do(cacheKey, func() (interface{}, error) {
		return s.fetchDirections(ctx, req, cacheKey)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("joined in-flight directions request")
	}
	return v.(*DirectionsResponse), nil
}

func (s *Service) lookup(cacheKey string) (*cachedDirections, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cached, ok := s.cache[cacheKey]
	return cached, ok
}

// fetchDirections calls the provider and stores the result. It runs once per
// key at a time and never holds the cache lock across the provider call.
func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*DirectionsResponse, error) {
	// A call that finished just before this one may have filled the entry.
	if cached, ok := s.lookup(cacheKey); ok && time.Now().Before(cached.expiresAt) {
		s.metrics.RecordCacheLookup(ctx, string(req.Mode), true)
		return cached.response, nil
	}
	s.metrics.RecordCacheLookup(ctx, string(req.Mode), false)

	ctx, span := s.tracer.Start(ctx, "routing.fetch_directions", trace.WithAttributes(
		attribute.String("routing.provider", s.provider.Name()),
		attribute.String("routing.mode", string(req.Mode)),
		attribute.Bool("routing.alternatives", req.Alternatives),
	))
	defer span.End()

	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Str("mode", string(req.Mode)).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	start := time.Now()
	resp, err := s.provider.GetDirections(ctx, req)
	s.metrics.RecordProviderCall(ctx, s.provider.Name(), time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("origin_lat", req.Origin.Lat).
			Float64("origin_lon", req.Origin.Lon).
			Float64("dest_lat", req.Destination.Lat).
			Float64("dest_lon", req.Destination.Lon).
			Str("mode", string(req.Mode)).
			Msg("failed to fetch directions")
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")

		// stale-if-error
		if cached, ok := s.lookup(cacheKey); ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Str("cache_key", cacheKey).
					Msg("serving stale directions data due to provider error")
				span.SetAttributes(attribute.Bool("routing.stale", true))
				return cached.response, nil
			}
		}

		return nil, err
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[cacheKey] = &cachedDirections{
		response:  resp,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded()
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("routing.route_count", len(resp.Routes)))
	s.logger.Debug().
		Str("cache_key", cacheKey).
		Int("route_count", len(resp.Routes)).
		Msg("cached directions response")

	return resp, nil
}

// PlanRequest asks for priced, display-ready route options.
type PlanRequest struct {
	Origin       Coordinate
	Destination  Coordinate
	Mode         TransportMode
	Alternatives bool
	Locale       DurationLocale
}

// PlanOption is one summarized route alternative.
type PlanOption struct {
	Route   Route
	Summary *RouteSummary
}

// Plan is the result of Service.Plan.
type Plan struct {
	Provider    string
	Mode        TransportMode
	Options     []PlanOption
	Skipped     int // Routes dropped because their geometry could not be decoded
	GeneratedAt time.Time
}

// Plan fetches directions and summarizes every alternative with the current
// rate table. Options are ordered fastest first, then shortest. Routes with
// malformed geometry are skipped; the call fails only when none survive.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	if req.Mode == "" {
		req.Mode = ModeCar
	}

	resp, err := s.GetDirections(ctx, DirectionsRequest{
		Origin:       req.Origin,
		Destination:  req.Destination,
		Mode:         req.Mode,
		Alternatives: req.Alternatives,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, &Error{
			Provider: resp.Provider,
			Code:     "NO_ROUTE",
			Message:  "provider returned no routes",
			Err:      ErrNoRouteFound,
		}
	}

	opts := SummaryOptions{
		Mode:   req.Mode,
		Rates:  s.rates.Table(ctx),
		Locale: req.Locale,
	}

	plan := &Plan{
		Provider:    resp.Provider,
		Mode:        req.Mode,
		Options:     make([]PlanOption, 0, len(resp.Routes)),
		GeneratedAt: time.Now().UTC(),
	}

	var lastErr error
	for i, route := range resp.Routes {
		summary, err := Summarize(route, opts)
		if err != nil {
			s.logger.Warn().Err(err).
				Int("route_index", i).
				Str("provider", resp.Provider).
				Msg("skipping route with malformed geometry")
			plan.Skipped++
			lastErr = err
			continue
		}
		plan.Options = append(plan.Options, PlanOption{Route: route, Summary: summary})
	}

	if len(plan.Options) == 0 {
		return nil, &Error{
			Provider: resp.Provider,
			Code:     "MALFORMED_GEOMETRY",
			Message:  "no route geometry could be decoded",
			Err:      errors.Join(ErrNoRouteFound, lastErr),
		}
	}

	sort.SliceStable(plan.Options, func(i, j int) bool {
		a, b := plan.Options[i].Summary, plan.Options[j].Summary
		if a.DurationSeconds != b.DurationSeconds {
			return a.DurationSeconds < b.DurationSeconds
		}
		return a.DistanceMeters < b.DistanceMeters
	})

	return plan, nil
}

// Supports reports whether the provider can route mode.
func (s *Service) Supports(mode TransportMode) bool {
	for _, m := range s.provider.SupportedModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// SupportedModes returns the transport modes of the underlying provider.
func (s *Service) SupportedModes() []TransportMode {
	return s.provider.SupportedModes()
}

// Rates returns the rate table currently used for pricing.
func (s *Service) Rates(ctx context.Context) RateTable {
	return s.rates.Table(ctx)
}

// cacheKey generates a cache key for a routing request.
// Uses grid-based quantization for both origin and destination.
// Format: {mode}:{gridOriginLat},{gridOriginLon}:{gridDestLat},{gridDestLon}.
func (s *Service) cacheKey(req DirectionsRequest) string {
	gridOriginLat := math.Floor(req.Origin.Lat/s.cacheGridSize) * s.cacheGridSize
	gridOriginLon := math.Floor(req.Origin.Lon/s.cacheGridSize) * s.cacheGridSize
	gridDestLat := math.Floor(req.Destination.Lat/s.cacheGridSize) * s.cacheGridSize
	gridDestLon := math.Floor(req.Destination.Lon/s.cacheGridSize) * s.cacheGridSize

	key := fmt.Sprintf("%s:%.3f,%.3f:%.3f,%.3f",
		req.Mode,
		gridOriginLat, gridOriginLon,
		gridDestLat, gridDestLon,
	)
	if req.Alternatives {
		key += ":alt"
	}
	return key
}

// cleanupIfNeeded removes expired entries if cleanup interval has passed.
// The caller holds s.mu for writing.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		// Remove entries that are past the stale-if-error window
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired routing cache entries")
	}
}

// InvalidateCache clears all cached data and returns the number of dropped entries.
func (s *Service) InvalidateCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.cache)
	s.cache = make(map[string]*cachedDirections)
	return n
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
