package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiemap/foodiemap/internal/routing"
	"github.com/foodiemap/foodiemap/internal/worker"
)

// fakeDirections records requests and fails for the configured modes.
type fakeDirections struct {
	mu       sync.Mutex
	requests []routing.DirectionsRequest
	failFor  map[routing.TransportMode]bool
	failErr  error // returned for failFor modes, defaults to a provider outage
	delay    time.Duration
}

func (f *fakeDirections) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.failFor[req.Mode] {
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, &routing.Error{Provider: "fake", Code: "UNAVAILABLE", Err: routing.ErrProviderUnavailable}
	}
	return &routing.DirectionsResponse{
		Provider: "fake",
		Routes:   []routing.Route{{DistanceMeters: 1000}, {DistanceMeters: 1200}},
	}, nil
}

func (f *fakeDirections) SupportedModes() []routing.TransportMode {
	return []routing.TransportMode{routing.ModeCar, routing.ModeMotorbike, routing.ModeTaxi}
}

func (f *fakeDirections) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var testTrips = []worker.Trip{
	{
		Name:        "Ben Thanh to Bui Vien",
		Origin:      routing.Coordinate{Lat: 10.7726, Lon: 106.6980},
		Destination: routing.Coordinate{Lat: 10.7675, Lon: 106.6932},
	},
	{
		Name:        "Hoan Kiem to Ta Hien",
		Origin:      routing.Coordinate{Lat: 21.0285, Lon: 105.8542},
		Destination: routing.Coordinate{Lat: 21.0347, Lon: 105.8517},
	},
}

func TestDefaultWarmConfig(t *testing.T) {
	cfg := worker.DefaultWarmConfig()

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
	assert.True(t, cfg.Alternatives)
	assert.Empty(t, cfg.Modes)
	assert.GreaterOrEqual(t, len(cfg.Trips), 4)

	for _, trip := range cfg.Trips {
		assert.NoError(t, routing.ValidateCoordinate(trip.Origin), trip.Name)
		assert.NoError(t, routing.ValidateCoordinate(trip.Destination), trip.Name)
	}
}

func TestWarmJob_Run_ProviderModes(t *testing.T) {
	fake := &fakeDirections{}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Trips:        testTrips,
			Alternatives: true,
			Concurrency:  2,
			Timeout:      time.Second,
		},
		Logger:  zerolog.Nop(),
		Routing: fake,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 6, result.TotalTasks)
	assert.Equal(t, 6, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 12, result.RoutesFetched)
	assert.Empty(t, result.Errors)
	assert.False(t, result.EndTime.Before(result.StartTime))

	require.Equal(t, 6, fake.count())
	for _, req := range fake.requests {
		assert.True(t, req.Alternatives)
	}
}

func TestWarmJob_Run_CollectsErrors(t *testing.T) {
	fake := &fakeDirections{failFor: map[routing.TransportMode]bool{routing.ModeTaxi: true}}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Trips:       testTrips,
			Modes:       []routing.TransportMode{routing.ModeCar, routing.ModeTaxi},
			Concurrency: 3,
			Timeout:     time.Second,
		},
		Logger:  zerolog.Nop(),
		Routing: fake,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 4, result.TotalTasks)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	for _, e := range result.Errors {
		assert.Equal(t, routing.ModeTaxi, e.Mode)
		assert.NotEmpty(t, e.Trip)
		assert.Contains(t, e.Error, "provider unavailable")
	}
}

func TestWarmJob_Run_Timeout(t *testing.T) {
	fake := &fakeDirections{delay: time.Second}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Trips:       testTrips[:1],
			Modes:       []routing.TransportMode{routing.ModeCar},
			Concurrency: 1,
			Timeout:     20 * time.Millisecond,
		},
		Logger:  zerolog.Nop(),
		Routing: fake,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, context.DeadlineExceeded.Error())
}

func TestWarmJob_Run_ContextCancellation(t *testing.T) {
	fake := &fakeDirections{}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Trips:       testTrips,
			Modes:       []routing.TransportMode{routing.ModeCar},
			Concurrency: 1,
			Timeout:     time.Second,
		},
		Logger:  zerolog.Nop(),
		Routing: fake,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	assert.NotNil(t, result)
	assert.Equal(t, 2, result.TotalTasks)
	assert.Equal(t, 0, fake.count())
}

func TestWarmJob_Metrics(t *testing.T) {
	fake := &fakeDirections{}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Trips: testTrips[:1],
			Modes: []routing.TransportMode{routing.ModeCar},
		},
		Logger:  zerolog.Nop(),
		Routing: fake,
	})

	assert.Equal(t, int64(0), job.GetMetrics().TotalRuns)

	_ = job.Run(context.Background())
	_ = job.Run(context.Background())

	metrics := job.GetMetrics()
	assert.Equal(t, int64(2), metrics.TotalRuns)
	assert.Equal(t, int64(2), metrics.Successful)
	assert.Equal(t, int64(4), metrics.RoutesFetched)
	assert.NotZero(t, metrics.LastRunAt)

	snapshot := job.MetricsSnapshot()
	assert.Contains(t, snapshot, "total_runs")
	assert.Contains(t, snapshot, "failed_warms")
	assert.Contains(t, snapshot, "last_run_duration")
}

// countingProvider is a routing.Provider that counts upstream calls.
type countingProvider struct {
	calls atomic.Int32
}

func (p *countingProvider) GetDirections(context.Context, routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	p.calls.Add(1)
	return &routing.DirectionsResponse{
		Provider: "counting",
		Routes: []routing.Route{{
			GeometryPolyline: "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
			DistanceMeters:   3200,
			DurationSeconds:  600,
		}},
		FetchedAt: time.Now(),
	}, nil
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) SupportedModes() []routing.TransportMode {
	return []routing.TransportMode{routing.ModeCar, routing.ModeBike}
}

func TestWarmJob_WarmsRoutingCache(t *testing.T) {
	provider := &countingProvider{}
	svc := routing.NewService(routing.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: time.Hour,
	})

	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Trips:        testTrips,
			Alternatives: true,
			Concurrency:  2,
		},
		Logger:  zerolog.Nop(),
		Routing: svc,
	})

	result := job.Run(context.Background())
	require.Equal(t, 4, result.Successful)
	assert.Equal(t, int32(4), provider.calls.Load())
	assert.Equal(t, 4, svc.CacheStats().FreshEntries)

	// A user request for a warmed trip is served from cache.
	plan, err := svc.Plan(context.Background(), routing.PlanRequest{
		Origin:       testTrips[0].Origin,
		Destination:  testTrips[0].Destination,
		Mode:         routing.ModeBike,
		Alternatives: true,
	})
	require.NoError(t, err)
	require.Len(t, plan.Options, 1)
	assert.Equal(t, int32(4), provider.calls.Load())
}

func TestWarmJob_ClassifiesRetryableErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"provider outage", &routing.Error{Provider: "fake", Code: "HTTP_503", Err: routing.ErrProviderUnavailable}, true},
		{"quota", &routing.Error{Provider: "fake", Code: "OVER_QUERY_LIMIT", Err: routing.ErrRateLimitExceeded}, true},
		{"no route", &routing.Error{Provider: "fake", Code: "ZERO_RESULTS", Err: routing.ErrNoRouteFound}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDirections{failFor: map[routing.TransportMode]bool{routing.ModeCar: true}, failErr: tt.err}
			job := worker.NewWarmJob(worker.WarmJobConfig{
				Config: worker.WarmConfig{
					Trips:       testTrips[:1],
					Modes:       []routing.TransportMode{routing.ModeCar},
					Concurrency: 1,
					Timeout:     time.Second,
				},
				Logger:  zerolog.Nop(),
				Routing: fake,
			})

			result := job.Run(context.Background())
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.retryable, result.Errors[0].Retryable)
			assert.Equal(t, tt.retryable, result.HasRetryable())
			assert.Equal(t, tt.err.Error(), result.Errors[0].Error)
		})
	}
}

func TestWarmJob_TimeoutIsRetryable(t *testing.T) {
	fake := &fakeDirections{delay: time.Second}
	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config: worker.WarmConfig{
			Trips:       testTrips[:1],
			Modes:       []routing.TransportMode{routing.ModeCar},
			Concurrency: 1,
			Timeout:     20 * time.Millisecond,
		},
		Logger:  zerolog.Nop(),
		Routing: fake,
	})

	result := job.Run(context.Background())
	require.Len(t, result.Errors, 1)
	assert.True(t, result.Errors[0].Retryable)
}
