package models

import "github.com/paulmach/orb/geojson"

// PolylineDecodeRequest is the request body for decoding a polyline.
type PolylineDecodeRequest struct {
	Encoded string `json:"encoded"`
}

// PolylineDecodeResponse carries decoded coordinates in [lon, lat] order.
type PolylineDecodeResponse struct {
	Coordinates  [][2]float64     `json:"coordinates"`
	PointCount   int              `json:"pointCount"`
	Geometry     *geojson.Feature `json:"geometry"`
	LengthMeters float64          `json:"lengthMeters"`
	LengthText   string           `json:"lengthText"`
}

// PolylineEncodeRequest is the request body for encoding [lon, lat] pairs.
type PolylineEncodeRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

// PolylineEncodeResponse carries the encoded polyline.
type PolylineEncodeResponse struct {
	Encoded string `json:"encoded"`
}
