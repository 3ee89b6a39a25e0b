// Package routing turns routing-provider answers into map-ready routes:
// decoded geometry, display strings and per-mode cost estimates.
package routing

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"
)

// Provider and validation failures. Provider clients wrap these in *Error.
var (
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	ErrNoRouteFound        = errors.New("no route found between the given points")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrUnsupportedMode     = errors.New("unsupported transport mode")
)

// Provider is a directions backend such as Goong or Google Maps.
type Provider interface {
	// GetDirections returns one route, or several when req.Alternatives is
	// set and the backend has them.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	Name() string
	SupportedModes() []TransportMode
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// String formats c as "lat,lon", the order provider query strings expect.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// ValidateCoordinate checks that c lies within WGS84 ranges.
func ValidateCoordinate(c Coordinate) error {
	switch {
	case math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90:
		return errors.New("latitude out of range [-90, 90]")
	case math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180:
		return errors.New("longitude out of range [-180, 180]")
	}
	return nil
}

// DirectionsRequest asks a provider for routes between two points.
type DirectionsRequest struct {
	Origin       Coordinate
	Destination  Coordinate
	Mode         TransportMode
	Alternatives bool
}

// DirectionsResponse holds the provider's route alternatives.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is one alternative as the provider returned it, before decoding.
type Route struct {
	GeometryPolyline string // precision 5
	DistanceMeters   int    // 0 when the provider omitted it
	DurationSeconds  int
	Summary          string // usually the main road, e.g. "Võ Văn Kiệt"
	BoundingBox      *BoundingBox
}

// BoundingBox is a lon/lat extent.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Error is a provider failure carrying the backend's status code.
type Error struct {
	Provider string
	Code     string // e.g. ZERO_RESULTS, OVER_QUERY_LIMIT, HTTP_502
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether retrying later may succeed.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
