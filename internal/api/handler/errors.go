package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/api/response"
	"github.com/foodiemap/foodiemap/internal/routing"
	"github.com/foodiemap/foodiemap/pkg/polyline"
)

// writeRoutingError maps routing errors to RFC7807 problems.
func writeRoutingError(w http.ResponseWriter, r *http.Request, err error) {
	detail := err.Error()
	var routingErr *routing.Error
	if errors.As(err, &routingErr) {
		detail = routingErr.Message
	}

	switch {
	case errors.Is(err, routing.ErrInvalidCoordinates):
		response.BadRequest(w, r, detail, nil)
	case errors.Is(err, routing.ErrUnsupportedMode):
		response.BadRequest(w, r, detail, nil)
	case errors.Is(err, polyline.ErrMalformedPolyline):
		// Geometry came from the provider, so this is an upstream fault
		response.BadGateway(w, r, detail)
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NoRoute(w, r, detail)
	case errors.Is(err, routing.ErrRateLimitExceeded):
		w.Header().Set("Retry-After", "60")
		response.ServiceUnavailable(w, r, detail)
	case errors.Is(err, routing.ErrProviderUnavailable):
		response.BadGateway(w, r, detail)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unexpected routing error")
		response.InternalError(w, r, "failed to compute routes")
	}
}
