// Package goong provides a client for the Goong Direction API, the Vietnamese
// map provider the mobile app draws its routes from.
package goong

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/provider/resilience"
	"github.com/foodiemap/foodiemap/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "goong"

	// DefaultBaseURL is the Goong REST API base URL.
	DefaultBaseURL = "https://rsapi.goong.io"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Goong client.
type ClientConfig struct {
	// APIKey is the Goong REST API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the Goong REST API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Goong Direction API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Goong client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

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
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SupportedModes returns the transport modes Goong can route.
func (c *Client) SupportedModes() []routing.TransportMode {
	return []routing.TransportMode{
		routing.ModeCar,
		routing.ModeMotorbike,
		routing.ModeBike,
		routing.ModeTaxi,
	}
}

// vehicle maps a transport mode to a Goong vehicle type. Goong routes
// motorbikes with its "bike" profile.
func vehicle(mode routing.TransportMode) (string, bool) {
	switch mode {
	case routing.ModeCar:
		return "car", true
	case routing.ModeTaxi:
		return "taxi", true
	case routing.ModeBike, routing.ModeMotorbike:
		return "bike", true
	default:
		return "", false
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

	veh, ok := vehicle(req.Mode)
	if !ok {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "UNSUPPORTED_MODE",
			Message:  fmt.Sprintf("goong cannot route %q", req.Mode),
			Err:      routing.ErrUnsupportedMode,
		}
	}

	// Goong uses lat,lng order in query parameters
	params := url.Values{}
	params.Set("origin", req.Origin.String())
	params.Set("destination", req.Destination.String())
	params.Set("vehicle", veh)
	params.Set("api_key", c.apiKey)
	if req.Alternatives {
		params.Set("alternatives", "true")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Direction?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("vehicle", veh).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting directions from Goong")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var dirResp directionResponse
	if err := json.Unmarshal(respBody, &dirResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch dirResp.Status {
	case "", statusOK:
	case statusZeroResults, statusNotFound:
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	default:
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     dirResp.Status,
			Message:  dirResp.ErrorMessage,
			Err:      routing.ErrProviderUnavailable,
		}
	}

	if len(dirResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	}

	result := toDirectionsResponse(&dirResp)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from Goong")

	return result, nil
}

// handleErrorResponse maps Goong error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var goongErr errorResponse
	message := fmt.Sprintf("routing provider returned status %d", statusCode)
	if err := json.Unmarshal(body, &goongErr); err == nil && goongErr.Error.Message != "" {
		message = goongErr.Error.Message
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      routing.ErrProviderUnavailable,
		}
	case statusCode == http.StatusNotFound:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case statusCode == http.StatusBadRequest:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  message,
			Err:      routing.ErrInvalidCoordinates,
		}
	case statusCode >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  message,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// toDirectionsResponse converts a Goong response to the domain model.
func toDirectionsResponse(resp *directionResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Routes))

	for i := range resp.Routes {
		r := &resp.Routes[i]
		route := routing.Route{
			GeometryPolyline: r.OverviewPolyline.Points,
			Summary:          r.Summary,
		}

		var distance, duration float64
		for _, l := range r.Legs {
			distance += l.Distance.Value
			duration += l.Duration.Value
		}
		route.DistanceMeters = int(distance + 0.5)
		route.DurationSeconds = int(duration + 0.5)

		if r.Bounds != nil {
			route.BoundingBox = &routing.BoundingBox{
				MinLon: r.Bounds.Southwest.Lng,
				MinLat: r.Bounds.Southwest.Lat,
				MaxLon: r.Bounds.Northeast.Lng,
				MaxLat: r.Bounds.Northeast.Lat,
			}
		}

		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}
