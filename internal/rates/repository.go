package rates

import (
	"context"
	"errors"

	"github.com/foodiemap/foodiemap/internal/routing"
)

// ErrRateNotFound is returned when no rate is stored for a transport mode.
var ErrRateNotFound = errors.New("transport rate not found")

// Repository defines the interface for transport rate storage.
type Repository interface {
	// GetRate retrieves the rate for a single transport mode.
	GetRate(ctx context.Context, mode routing.TransportMode) (*Rate, error)

	// ListRates retrieves all stored rates ordered by mode.
	ListRates(ctx context.Context) ([]*Rate, error)

	// UpsertRates creates or updates multiple rates atomically.
	UpsertRates(ctx context.Context, rates []*Rate) error

	// DeleteRate removes the stored rate for a mode.
	DeleteRate(ctx context.Context, mode routing.TransportMode) error
}
