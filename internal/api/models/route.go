package models

import "github.com/paulmach/orb/geojson"

// RouteComputeRequest is the request body for computing routes.
type RouteComputeRequest struct {
	Origin       *Point `json:"origin"`
	Destination  *Point `json:"destination"`
	Mode         string `json:"mode,omitempty"`
	Alternatives bool   `json:"alternatives,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

// RouteComputeResponse is the response for route computation.
type RouteComputeResponse struct {
	GeneratedAt Timestamp     `json:"generatedAt"`
	Provider    string        `json:"provider"`
	Mode        string        `json:"mode"`
	Currency    string        `json:"currency"`
	Options     []RouteOption `json:"options"`
	Warnings    []Warning     `json:"warnings,omitempty"`
}

// Warning represents a non-fatal issue in the response.
type Warning struct {
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	Provider *string `json:"provider,omitempty"`
}

// RouteOption represents a single route alternative.
type RouteOption struct {
	ID               string           `json:"id"`
	Mode             string           `json:"mode"`
	Summary          string           `json:"summary,omitempty"`
	DistanceMeters   float64          `json:"distanceMeters"`
	DurationSeconds  float64          `json:"durationSeconds"`
	DistanceText     string           `json:"distanceText"`
	DurationText     string           `json:"durationText"`
	GeometryPolyline string           `json:"geometryPolyline"`
	Geometry         *geojson.Feature `json:"geometry"`
	BoundingBox      *GeoBox          `json:"boundingBox,omitempty"`
	Cost             int64            `json:"cost"`
	Costs            map[string]int64 `json:"costs"`
}

// GeoBox represents a geographic bounding box.
type GeoBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}
