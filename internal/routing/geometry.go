package routing

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/foodiemap/foodiemap/pkg/polyline"
)

// ToGeometryFeature wraps a decoded path as a GeoJSON LineString feature.
// Paths with fewer than two points are passed through unchanged.
func ToGeometryFeature(coords []polyline.Coordinate) *geojson.Feature {
	line := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		line = append(line, orb.Point{c.Lon, c.Lat})
	}
	return geojson.NewFeature(line)
}

// LineStringCoordinates returns the path as [lon, lat] pairs.
func LineStringCoordinates(coords []polyline.Coordinate) [][2]float64 {
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = c.LonLat()
	}
	return out
}

// BoundsOf computes the bounding box of a path. It returns nil for an empty path.
func BoundsOf(coords []polyline.Coordinate) *BoundingBox {
	if len(coords) == 0 {
		return nil
	}
	line := make(orb.LineString, len(coords))
	for i, c := range coords {
		line[i] = orb.Point{c.Lon, c.Lat}
	}
	b := line.Bound()
	return &BoundingBox{
		MinLon: b.Min.Lon(),
		MinLat: b.Min.Lat(),
		MaxLon: b.Max.Lon(),
		MaxLat: b.Max.Lat(),
	}
}
