package middleware

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/foodiemap/foodiemap/internal/routing"
)

const meterName = "github.com/foodiemap/foodiemap/internal/api/middleware"

// unmatchedRoute labels requests no chi route pattern matched, keeping raw
// paths out of metric attributes.
const unmatchedRoute = "unmatched"

// MeterOption configures where instruments are registered.
type MeterOption func(*meterConfig)

type meterConfig struct {
	provider metric.MeterProvider
}

// WithMeterProvider registers instruments on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) MeterOption {
	return func(c *meterConfig) { c.provider = mp }
}

func newMeter(opts []MeterOption) metric.Meter {
	cfg := meterConfig{provider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.provider.Meter(meterName)
}

// Metrics holds the HTTP server instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestTotal     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments.
func NewMetrics(opts ...MeterOption) (*Metrics, error) {
	meter := newMeter(opts)
	m := &Metrics{}
	var err error

	if m.requestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.requestTotal, err = meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP server requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.requestsInFlight, err = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of HTTP requests currently being processed"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.responseSize, err = meter.Int64Histogram(
		"http.server.response.body.size",
		metric.WithDescription("Size of HTTP response bodies in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware records duration, count and body size per route pattern.
// The pattern is read after the handler runs, once chi has resolved it.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			inFlight := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.requestsInFlight.Add(ctx, 1, inFlight)
			defer m.requestsInFlight.Add(ctx, -1, inFlight)

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			route := routePattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			attrs := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", wrapped.statusCode),
				attribute.Bool("error", wrapped.statusCode >= http.StatusBadRequest),
			)

			m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			m.requestTotal.Add(ctx, 1, attrs)
			m.responseSize.Record(ctx, wrapped.written, attrs)
		})
	}
}

// ProviderMetrics implements routing.MetricsRecorder with OpenTelemetry instruments.
type ProviderMetrics struct {
	callDuration metric.Float64Histogram
	calls        metric.Int64Counter
	cacheLookups metric.Int64Counter
}

// NewProviderMetrics creates the routing provider and route cache instruments.
func NewProviderMetrics(opts ...MeterOption) (*ProviderMetrics, error) {
	meter := newMeter(opts)
	m := &ProviderMetrics{}
	var err error

	if m.callDuration, err = meter.Float64Histogram(
		"routing.provider.request.duration",
		metric.WithDescription("Duration of routing provider requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.calls, err = meter.Int64Counter(
		"routing.provider.request.total",
		metric.WithDescription("Total number of routing provider requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.cacheLookups, err = meter.Int64Counter(
		"routing.cache.lookups",
		metric.WithDescription("Route cache lookups by transport mode and result"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordProviderCall records one provider request. Data points survive
// cancellation of the request context.
func (m *ProviderMetrics) RecordProviderCall(ctx context.Context, provider string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.Bool("error", err != nil),
	)
	ctx = context.WithoutCancel(ctx)
	m.callDuration.Record(ctx, duration.Seconds(), attrs)
	m.calls.Add(ctx, 1, attrs)
}

// RecordCacheLookup records a route cache hit or miss for a transport mode.
func (m *ProviderMetrics) RecordCacheLookup(ctx context.Context, mode string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("routing.mode", mode),
		attribute.String("routing.cache.result", result),
	))
}

var _ routing.MetricsRecorder = (*ProviderMetrics)(nil)
