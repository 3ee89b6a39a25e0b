// Package polyline provides encoding and decoding utilities for Google's polyline algorithm.
// The polyline algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedPolyline is the sentinel wrapped by every DecodeError.
var ErrMalformedPolyline = errors.New("malformed polyline")

const (
	// precision is the scale factor of the standard (Google, Goong) format.
	precision = 1e5

	minChar = 63  // '?'
	maxChar = 126 // '~'

	// maxValueChars bounds a single varint. Valid 1e-5 coordinates need at most 7.
	maxValueChars = 12
)

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lon float64
}

// LonLat returns the coordinate in provider/GeoJSON order.
func (c Coordinate) LonLat() [2]float64 {
	return [2]float64{c.Lon, c.Lat}
}

// DecodeError reports where and why an encoded polyline could not be decoded.
type DecodeError struct {
	Offset int    // Byte offset into the encoded string
	Reason string // Short human-readable cause
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed polyline at offset %d: %s", e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrMalformedPolyline
}

// Decode decodes a polyline-encoded string into a slice of coordinates.
// An empty string decodes to an empty slice. Truncated input, characters
// outside the encoding alphabet and oversized values return a *DecodeError
// and no coordinates.
func Decode(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	coords := make([]Coordinate, 0, len(encoded)/4)
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		if next >= len(encoded) {
			return nil, &DecodeError{Offset: next, Reason: "missing longitude"}
		}

		lonDelta, end, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = end

		lat += latDelta
		lon += lonDelta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}

	return coords, nil
}

// decodeValue decodes a single zigzag varint starting at index.
// Returns the decoded delta and the index of the next unread byte.
func decodeValue(encoded string, index int) (int, int, error) {
	start := index
	shift := 0
	result := 0

	for {
		if index >= len(encoded) {
			return 0, index, &DecodeError{Offset: start, Reason: "truncated value"}
		}
		if shift >= 5*maxValueChars {
			return 0, index, &DecodeError{Offset: start, Reason: "value overflow"}
		}

		c := encoded[index]
		if c < minChar || c > maxChar {
			return 0, index, &DecodeError{Offset: index, Reason: fmt.Sprintf("invalid character %q", c)}
		}

		b := int(c) - minChar
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode encodes a slice of coordinates into a polyline-encoded string.
// The polyline format uses precision of 5 decimal places.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(coords)*4)
	prevLat := 0
	prevLon := 0

	for _, coord := range coords {
		lat := int(math.Round(coord.Lat * precision))
		lon := int(math.Round(coord.Lon * precision))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+minChar)
		value >>= 5
	}
	return append(buf, byte(value)+minChar)
}

// Length calculates the total length of a path in meters using the haversine formula.
func Length(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversineDistance(coords[i-1], coords[i])
	}
	return total
}

// Sample returns coordinates sampled at approximately the specified interval along the path.
// The first and last coordinates are always included.
func Sample(coords []Coordinate, intervalMeters float64) []Coordinate {
	if len(coords) == 0 {
		return nil
	}
	if intervalMeters <= 0 {
		return coords
	}

	sampled := []Coordinate{coords[0]}
	accumulated := 0.0

	for i := 1; i < len(coords); i++ {
		segmentDist := haversineDistance(coords[i-1], coords[i])
		travelled := 0.0

		for accumulated+segmentDist-travelled >= intervalMeters {
			travelled += intervalMeters - accumulated
			fraction := travelled / segmentDist

			sampled = append(sampled, Coordinate{
				Lat: coords[i-1].Lat + fraction*(coords[i].Lat-coords[i-1].Lat),
				Lon: coords[i-1].Lon + fraction*(coords[i].Lon-coords[i-1].Lon),
			})
			accumulated = 0
		}

		accumulated += segmentDist - travelled
	}

	last := coords[len(coords)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}

	return sampled
}

const earthRadiusMeters = 6371000

// haversineDistance calculates the distance between two coordinates in meters.
func haversineDistance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
