package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/routing"
)

// ErrNoRates is returned when an update carries no rates.
var ErrNoRates = errors.New("no rates supplied")

// ServiceConfig holds configuration for the rates service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration     // How long a rate table snapshot is reused
	Defaults   routing.RateTable // Rates used for modes with nothing stored
	Currency   string
}

// Service provides rate table snapshots with caching and fallback to the
// built-in defaults. It implements routing.RateSource.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults routing.RateTable
	currency string

	mu        sync.RWMutex
	table     routing.RateTable
	loaded    bool
	expiresAt time.Time
}

// NewService creates a new rates service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	defaults := cfg.Defaults
	if defaults.Len() == 0 {
		defaults = routing.DefaultRateTable()
	}

	currency := cfg.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		defaults: defaults,
		currency: currency,
	}
}

// Table returns the current rate table: stored rates merged over the defaults.
// When the repository fails, the last loaded table (or the defaults) is returned.
func (s *Service) Table(ctx context.Context) routing.RateTable {
	s.mu.RLock()
	if s.loaded && time.Now().Before(s.expiresAt) {
		table := s.table
		s.mu.RUnlock()
		return table
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock
	if s.loaded && time.Now().Before(s.expiresAt) {
		return s.table
	}

	stored, err := s.repo.ListRates(ctx)
	if err != nil {
		if s.loaded {
			s.logger.Warn().Err(err).Msg("failed to load transport rates, serving last known table")
			return s.table
		}
		s.logger.Warn().Err(err).Msg("failed to load transport rates, using defaults")
		return s.defaults
	}

	table := s.defaults
	for _, r := range stored {
		next, err := table.WithRate(r.Mode, r.RatePerKm)
		if err != nil {
			s.logger.Error().Err(err).Str("mode", string(r.Mode)).Msg("ignoring invalid stored rate")
			continue
		}
		table = next
	}

	s.table = table
	s.loaded = true
	s.expiresAt = time.Now().Add(s.cacheTTL)

	s.logger.Debug().
		Int("stored_rates", len(stored)).
		Int("modes", table.Len()).
		Msg("loaded transport rate table")

	return table
}

// List returns the effective rates for every mode, marking which come from storage.
func (s *Service) List(ctx context.Context) ([]*Rate, error) {
	stored, err := s.repo.ListRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rates: %w", err)
	}

	byMode := make(map[routing.TransportMode]*Rate, len(stored))
	for _, r := range stored {
		byMode[r.Mode] = r
	}

	table := s.defaults
	for _, r := range stored {
		if next, err := table.WithRate(r.Mode, r.RatePerKm); err == nil {
			table = next
		}
	}

	result := make([]*Rate, 0, table.Len())
	for _, mode := range table.Modes() {
		if r, ok := byMode[mode]; ok {
			result = append(result, r)
			continue
		}
		result = append(result, &Rate{
			Mode:      mode,
			RatePerKm: table.Rate(mode),
			Currency:  s.currency,
		})
	}
	return result, nil
}

// SetRates validates and stores rates, then drops the cached table.
func (s *Service) SetRates(ctx context.Context, rates []*Rate) error {
	if len(rates) == 0 {
		return ErrNoRates
	}

	normalized := make([]*Rate, 0, len(rates))
	check := make(map[routing.TransportMode]float64, len(rates))
	for _, r := range rates {
		if r == nil {
			return fmt.Errorf("%w: nil rate", routing.ErrInvalidRate)
		}
		n := *r
		n.Mode = routing.ParseTransportMode(string(r.Mode))
		if n.Currency == "" {
			n.Currency = s.currency
		}
		check[n.Mode] = n.RatePerKm
		normalized = append(normalized, &n)
	}

	if _, err := routing.NewRateTable(check); err != nil {
		return err
	}

	if err := s.repo.UpsertRates(ctx, normalized); err != nil {
		return fmt.Errorf("storing rates: %w", err)
	}

	s.logger.Info().Int("count", len(normalized)).Msg("transport rates updated")
	s.InvalidateCache()
	return nil
}

// DeleteRate removes a stored rate so the mode falls back to its default.
func (s *Service) DeleteRate(ctx context.Context, mode routing.TransportMode) error {
	if err := s.repo.DeleteRate(ctx, mode); err != nil {
		return fmt.Errorf("deleting rate: %w", err)
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache forces the next Table call to reload from the repository.
// The previous table is kept as the fallback.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = time.Time{}
}

// Currency returns the currency rates are expressed in.
func (s *Service) Currency() string {
	return s.currency
}

// Ensure Service can price routing plans.
var _ routing.RateSource = (*Service)(nil)
