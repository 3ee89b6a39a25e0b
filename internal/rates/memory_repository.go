package rates

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/foodiemap/foodiemap/internal/routing"
)

// InMemoryRepository is an in-memory implementation of Repository, used when
// no database is configured and in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	rates map[routing.TransportMode]Rate
}

// NewInMemoryRepository creates a new in-memory repository seeded with rates.
func NewInMemoryRepository(seed ...*Rate) *InMemoryRepository {
	repo := &InMemoryRepository{
		rates: make(map[routing.TransportMode]Rate, len(seed)),
	}
	now := time.Now()
	for _, r := range seed {
		stored := *r
		if stored.UpdatedAt.IsZero() {
			stored.UpdatedAt = now
		}
		repo.rates[stored.Mode] = stored
	}
	return repo
}

// GetRate retrieves the rate for a single transport mode.
func (r *InMemoryRepository) GetRate(_ context.Context, mode routing.TransportMode) (*Rate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rate, ok := r.rates[mode]
	if !ok {
		return nil, ErrRateNotFound
	}
	return &rate, nil
}

// ListRates retrieves all stored rates ordered by mode.
func (r *InMemoryRepository) ListRates(_ context.Context) ([]*Rate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Rate, 0, len(r.rates))
	for _, rate := range r.rates {
		rate := rate
		result = append(result, &rate)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Mode < result[j].Mode })
	return result, nil
}

// UpsertRates creates or updates multiple rates.
func (r *InMemoryRepository) UpsertRates(_ context.Context, rates []*Rate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, rate := range rates {
		stored := *rate
		stored.UpdatedAt = now
		r.rates[stored.Mode] = stored
	}
	return nil
}

// DeleteRate removes the stored rate for a mode.
func (r *InMemoryRepository) DeleteRate(_ context.Context, mode routing.TransportMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rates, mode)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
