package routing

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/foodiemap/foodiemap/pkg/polyline"
)

// SummaryOptions controls how a route is summarized.
type SummaryOptions struct {
	Mode   TransportMode  // Mode whose cost fills RouteSummary.Cost
	Rates  RateTable      // Per-kilometer rates; zero value prices everything at 0
	Locale DurationLocale // Duration templates; zero value means English
}

// RouteSummary is the display-ready form of a single route.
type RouteSummary struct {
	DistanceMeters  float64
	DurationSeconds float64
	DistanceText    string
	DurationText    string
	Coordinates     []polyline.Coordinate
	Feature         *geojson.Feature
	Costs           map[TransportMode]int64
	Cost            int64
}

// Summarize decodes a route's geometry and derives its display strings and
// cost estimates. A route without a provider distance is measured along its
// decoded path.
func Summarize(route Route, opts SummaryOptions) (*RouteSummary, error) {
	coords, err := polyline.Decode(route.GeometryPolyline)
	if err != nil {
		return nil, fmt.Errorf("decoding route geometry: %w", err)
	}

	distance := float64(route.DistanceMeters)
	if distance <= 0 {
		distance = polyline.Length(coords)
	}
	duration := float64(route.DurationSeconds)
	if duration < 0 {
		duration = 0
	}

	costs := EstimateCosts(distance, opts.Rates)
	if opts.Mode != "" {
		costs[opts.Mode] = EstimateCost(distance, opts.Mode, opts.Rates)
	}

	return &RouteSummary{
		DistanceMeters:  distance,
		DurationSeconds: duration,
		DistanceText:    FormatDistance(distance),
		DurationText:    FormatDurationLocale(duration, opts.Locale),
		Coordinates:     coords,
		Feature:         ToGeometryFeature(coords),
		Costs:           costs,
		Cost:            costs[opts.Mode],
	}, nil
}
