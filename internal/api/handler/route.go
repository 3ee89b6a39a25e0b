package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/foodiemap/foodiemap/internal/api/models"
	"github.com/foodiemap/foodiemap/internal/api/response"
	"github.com/foodiemap/foodiemap/internal/routing"
)

// Planner computes priced, display-ready route options.
type Planner interface {
	Plan(ctx context.Context, req routing.PlanRequest) (*routing.Plan, error)
}

// RouteHandler handles routing endpoints.
type RouteHandler struct {
	planner  Planner
	currency string
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(planner Planner, currency string) *RouteHandler {
	return &RouteHandler{planner: planner, currency: currency}
}

// ComputeRoutes handles POST /v1/routes:compute - compute route options.
func (h *RouteHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteComputeRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	if fieldErrors := validateRouteRequest(&input); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid route request", fieldErrors)
		return
	}

	plan, err := h.planner.Plan(r.Context(), routing.PlanRequest{
		Origin:       routing.Coordinate{Lat: input.Origin.Lat, Lon: input.Origin.Lon},
		Destination:  routing.Coordinate{Lat: input.Destination.Lat, Lon: input.Destination.Lon},
		Mode:         routing.ParseTransportMode(input.Mode),
		Alternatives: input.Alternatives,
		Locale:       routing.LocaleFor(input.Locale),
	})
	if err != nil {
		writeRoutingError(w, r, err)
		return
	}

	resp := models.RouteComputeResponse{
		GeneratedAt: models.Timestamp(plan.GeneratedAt),
		Provider:    plan.Provider,
		Mode:        string(plan.Mode),
		Currency:    h.currency,
		Options:     make([]models.RouteOption, 0, len(plan.Options)),
	}

	for _, opt := range plan.Options {
		resp.Options = append(resp.Options, toRouteOption(plan.Mode, opt))
	}

	if plan.Skipped > 0 {
		provider := plan.Provider
		resp.Warnings = append(resp.Warnings, models.Warning{
			Code:     "ROUTES_SKIPPED",
			Message:  "some alternatives had unreadable geometry and were left out",
			Provider: &provider,
		})
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, resp)
}

func validateRouteRequest(in *models.RouteComputeRequest) []models.FieldError {
	var errs []models.FieldError
	check := func(field string, p *models.Point) {
		if p == nil {
			errs = append(errs, models.FieldError{Field: field, Message: "is required", Code: "REQUIRED"})
			return
		}
		if err := routing.ValidateCoordinate(routing.Coordinate{Lat: p.Lat, Lon: p.Lon}); err != nil {
			errs = append(errs, models.FieldError{Field: field, Message: err.Error(), Code: "OUT_OF_RANGE"})
		}
	}
	check("origin", in.Origin)
	check("destination", in.Destination)
	return errs
}

func toRouteOption(mode routing.TransportMode, opt routing.PlanOption) models.RouteOption {
	s := opt.Summary
	costs := make(map[string]int64, len(s.Costs))
	for m, c := range s.Costs {
		costs[string(m)] = c
	}

	out := models.RouteOption{
		ID:               "opt_" + uuid.New().String()[:12],
		Mode:             string(mode),
		Summary:          opt.Route.Summary,
		DistanceMeters:   s.DistanceMeters,
		DurationSeconds:  s.DurationSeconds,
		DistanceText:     s.DistanceText,
		DurationText:     s.DurationText,
		GeometryPolyline: opt.Route.GeometryPolyline,
		Geometry:         s.Feature,
		Cost:             s.Cost,
		Costs:            costs,
	}

	bbox := opt.Route.BoundingBox
	if bbox == nil {
		bbox = routing.BoundsOf(s.Coordinates)
	}
	if bbox != nil {
		out.BoundingBox = &models.GeoBox{
			MinLat: bbox.MinLat,
			MinLon: bbox.MinLon,
			MaxLat: bbox.MaxLat,
			MaxLon: bbox.MaxLon,
		}
	}
	return out
}
