package goong

// directionResponse is the Goong Direction API response. It follows the
// Google Directions layout.
type directionResponse struct {
	GeocodedWaypoints []geocodedWaypoint `json:"geocoded_waypoints,omitempty"`
	Routes            []directionRoute   `json:"routes"`
	Status            string             `json:"status,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
}

type geocodedWaypoint struct {
	GeocoderStatus string `json:"geocoder_status,omitempty"`
	PlaceID        string `json:"place_id,omitempty"`
}

// directionRoute is a single route alternative.
type directionRoute struct {
	Bounds           *bounds          `json:"bounds,omitempty"`
	Legs             []leg            `json:"legs"`
	OverviewPolyline overviewPolyline `json:"overview_polyline"`
	Summary          string           `json:"summary,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
}

type bounds struct {
	Northeast latLng `json:"northeast"`
	Southwest latLng `json:"southwest"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// leg is the part of a route between two waypoints.
type leg struct {
	Distance     textValue `json:"distance"` // Value in meters
	Duration     textValue `json:"duration"` // Value in seconds
	StartAddress string    `json:"start_address,omitempty"`
	EndAddress   string    `json:"end_address,omitempty"`
}

type textValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type overviewPolyline struct {
	Points string `json:"points"`
}

// errorResponse is returned by Goong for rejected requests.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Goong response statuses.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
	statusNotFound    = "NOT_FOUND"
)
