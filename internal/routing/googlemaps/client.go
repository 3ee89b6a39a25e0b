// Package googlemaps adapts the Google Maps Directions API to the routing Provider interface.
package googlemaps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"

	"github.com/foodiemap/foodiemap/internal/provider/resilience"
	"github.com/foodiemap/foodiemap/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "googlemaps"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// ClientConfig holds configuration for the Google Maps client.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL overrides the API host, used in tests (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, requests go through a resilient transport.
	HTTPClient *http.Client

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Language for route summaries (optional, defaults to "vi").
	Language string

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Maps Directions client.
type Client struct {
	maps     *maps.Client
	language string
	logger   zerolog.Logger
}

// NewClient creates a new Google Maps client.
func NewClient(cfg ClientConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(cfg.Logger)
		httpClient = &http.Client{Transport: resilience.NewClient(clientCfg)}
	}

	opts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.BaseURL))
	}

	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating google maps client: %w", err)
	}

	language := cfg.Language
	if language == "" {
		language = "vi"
	}

	return &Client{
		maps:     mc,
		language: language,
		logger:   cfg.Logger,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SupportedModes returns the transport modes Google Maps can route.
func (c *Client) SupportedModes() []routing.TransportMode {
	return []routing.TransportMode{
		routing.ModeCar,
		routing.ModeMotorbike,
		routing.ModeBike,
		routing.ModeTaxi,
	}
}

// travelMode maps a transport mode to a Google travel mode. Google has no
// two-wheeler mode here, so motorbikes drive and stay off highways.
func travelMode(mode routing.TransportMode) (maps.Mode, []maps.Avoid, bool) {
	switch mode {
	case routing.ModeCar, routing.ModeTaxi:
		return maps.TravelModeDriving, nil, true
	case routing.ModeMotorbike:
		return maps.TravelModeDriving, []maps.Avoid{maps.AvoidHighways}, true
	case routing.ModeBike:
		return maps.TravelModeBicycling, nil, true
	default:
		return "", nil, false
	}
}

// GetDirections retrieves route directions between two points.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if err := routing.ValidateCoordinate(req.Origin); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}
	if err := routing.ValidateCoordinate(req.Destination); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}

	mode, avoid, ok := travelMode(req.Mode)
	if !ok {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "UNSUPPORTED_MODE",
			Message:  fmt.Sprintf("google maps cannot route %q", req.Mode),
			Err:      routing.ErrUnsupportedMode,
		}
	}

	dr := &maps.DirectionsRequest{
		Origin:       req.Origin.String(),
		Destination:  req.Destination.String(),
		Mode:         mode,
		Avoid:        avoid,
		Alternatives: req.Alternatives,
		Language:     c.language,
	}

	c.logger.Debug().
		Str("travel_mode", string(mode)).
		Str("origin", dr.Origin).
		Str("destination", dr.Destination).
		Msg("requesting directions from Google Maps")

	routes, _, err := c.maps.Directions(ctx, dr)
	if err != nil {
		return nil, mapError(err)
	}
	if len(routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	}

	result := toDirectionsResponse(routes)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from Google Maps")

	return result, nil
}

// mapError maps Google Maps client errors ("maps: STATUS - message") to domain errors.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "TIMEOUT",
			Message:  "routing provider did not answer in time",
			Err:      errors.Join(routing.ErrProviderUnavailable, err),
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "OVER_QUERY_LIMIT"), strings.Contains(msg, "OVER_DAILY_LIMIT"):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case strings.Contains(msg, "NOT_FOUND"):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case strings.Contains(msg, "INVALID_REQUEST"):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  msg,
			Err:      routing.ErrInvalidCoordinates,
		}
	case strings.Contains(msg, "REQUEST_DENIED"):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

func toDirectionsResponse(routes []maps.Route) *routing.DirectionsResponse {
	out := make([]routing.Route, 0, len(routes))

	for i := range routes {
		r := &routes[i]
		route := routing.Route{
			GeometryPolyline: r.OverviewPolyline.Points,
			Summary:          r.Summary,
		}

		var duration time.Duration
		for _, leg := range r.Legs {
			if leg == nil {
				continue
			}
			route.DistanceMeters += leg.Meters
			duration += leg.Duration
		}
		route.DurationSeconds = int(duration.Round(time.Second) / time.Second)

		b := r.Bounds
		if b != (maps.LatLngBounds{}) {
			route.BoundingBox = &routing.BoundingBox{
				MinLon: b.SouthWest.Lng,
				MinLat: b.SouthWest.Lat,
				MaxLon: b.NorthEast.Lng,
				MaxLat: b.NorthEast.Lat,
			}
		}

		out = append(out, route)
	}

	return &routing.DirectionsResponse{
		Routes:    out,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}
