package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiemap/foodiemap/internal/provider/resilience"
)

type stubBreaker struct {
	state gobreaker.State
}

func (s stubBreaker) CircuitBreakerState() gobreaker.State   { return s.state }
func (s stubBreaker) CircuitBreakerCounts() gobreaker.Counts { return gobreaker.Counts{} }

func TestRegistry_ClientRegistersItself(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("goong")
	cfg.Registry = registry

	client := resilience.NewClient(cfg)
	assert.Equal(t, "goong", client.Name())
	assert.Equal(t, 1, registry.Len())

	health, ok := registry.Health("goong")
	require.True(t, ok)
	assert.Equal(t, "goong", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.Equal(t, resilience.StatusHealthy, health.Status())
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("goong", stubBreaker{})

	registry.RecordFailure("goong", errors.New("goong: 503 Service Unavailable"))
	registry.RecordFailure("goong", errors.New("goong: timeout"))

	health, ok := registry.Health("goong")
	require.True(t, ok)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, "goong: timeout", health.LastError)
	assert.Equal(t, 2, health.ConsecutiveFailures)

	registry.RecordSuccess("goong")

	health, _ = registry.Health("goong")
	require.NotNil(t, health.LastSuccessAt)
	assert.Zero(t, health.ConsecutiveFailures)
	// The last error stays visible after recovery.
	assert.Equal(t, "goong: timeout", health.LastError)
}

func TestRegistry_RecordFailureWithoutError(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("goong", stubBreaker{})

	registry.RecordFailure("goong", nil)

	health, _ := registry.Health("goong")
	assert.NotNil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)
	assert.Equal(t, 1, health.ConsecutiveFailures)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	// Recording against an unknown name is a no-op.
	registry.RecordSuccess("nonexistent")
	registry.RecordFailure("nonexistent", assert.AnError)

	_, ok := registry.Health("nonexistent")
	assert.False(t, ok)
	assert.Zero(t, registry.Len())
	assert.Empty(t, registry.Snapshot())
}

func TestRegistry_RegisterReplacesAndResets(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("goong", stubBreaker{})
	registry.RecordFailure("goong", assert.AnError)

	registry.Register("goong", stubBreaker{state: gobreaker.StateHalfOpen})

	health, ok := registry.Health("goong")
	require.True(t, ok)
	assert.Equal(t, 1, registry.Len())
	assert.Nil(t, health.LastFailureAt)
	assert.Equal(t, resilience.StatusDegraded, health.Status())
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"googlemaps", "goong", "osrm"} {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		_ = resilience.NewClient(cfg)
	}

	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "googlemaps", snapshot[0].Name)
	assert.Equal(t, "goong", snapshot[1].Name)
	assert.Equal(t, "osrm", snapshot[2].Name)
}

func TestStatusForState(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  string
	}{
		{gobreaker.StateClosed, resilience.StatusHealthy},
		{gobreaker.StateHalfOpen, resilience.StatusDegraded},
		{gobreaker.StateOpen, resilience.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.StatusForState(tt.state))
			assert.Equal(t, tt.want, resilience.ProviderHealth{CircuitState: tt.state}.Status())
		})
	}
}

func TestRegistry_OverallStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	assert.Equal(t, resilience.StatusHealthy, registry.OverallStatus())

	registry.Register("goong", stubBreaker{state: gobreaker.StateClosed})
	assert.Equal(t, resilience.StatusHealthy, registry.OverallStatus())

	registry.Register("googlemaps", stubBreaker{state: gobreaker.StateHalfOpen})
	assert.Equal(t, resilience.StatusDegraded, registry.OverallStatus())

	registry.Register("goong", stubBreaker{state: gobreaker.StateOpen})
	assert.Equal(t, resilience.StatusUnhealthy, registry.OverallStatus())
}
