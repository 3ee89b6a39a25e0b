package handler

import (
	"errors"
	"net/http"

	"github.com/foodiemap/foodiemap/internal/api/models"
	"github.com/foodiemap/foodiemap/internal/api/response"
	"github.com/foodiemap/foodiemap/internal/routing"
	"github.com/foodiemap/foodiemap/pkg/polyline"
)

// maxEncodePoints caps POST /v1/polylines:encode input.
const maxEncodePoints = 10000

// PolylineHandler handles polyline codec endpoints.
type PolylineHandler struct{}

// NewPolylineHandler creates a new PolylineHandler.
func NewPolylineHandler() *PolylineHandler {
	return &PolylineHandler{}
}

// Decode handles POST /v1/polylines:decode.
func (h *PolylineHandler) Decode(w http.ResponseWriter, r *http.Request) {
	var input models.PolylineDecodeRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	coords, err := polyline.Decode(input.Encoded)
	if err != nil {
		var decodeErr *polyline.DecodeError
		if errors.As(err, &decodeErr) {
			response.MalformedPolyline(w, r, decodeErr.Reason, decodeErr.Offset)
			return
		}
		response.InternalError(w, r, "failed to decode polyline")
		return
	}

	length := polyline.Length(coords)
	response.JSON(w, r, http.StatusOK, models.PolylineDecodeResponse{
		Coordinates:  routing.LineStringCoordinates(coords),
		PointCount:   len(coords),
		Geometry:     routing.ToGeometryFeature(coords),
		LengthMeters: length,
		LengthText:   routing.FormatDistance(length),
	})
}

// Encode handles POST /v1/polylines:encode.
func (h *PolylineHandler) Encode(w http.ResponseWriter, r *http.Request) {
	var input models.PolylineEncodeRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	if len(input.Coordinates) > maxEncodePoints {
		response.BadRequest(w, r, "too many coordinates", []models.FieldError{
			{Field: "coordinates", Message: "at most 10000 points are accepted", Code: "TOO_LONG"},
		})
		return
	}

	coords := make([]polyline.Coordinate, 0, len(input.Coordinates))
	for _, pair := range input.Coordinates {
		c := polyline.Coordinate{Lon: pair[0], Lat: pair[1]}
		if err := routing.ValidateCoordinate(routing.Coordinate{Lat: c.Lat, Lon: c.Lon}); err != nil {
			response.BadRequest(w, r, "invalid coordinate", []models.FieldError{
				{Field: "coordinates", Message: err.Error(), Code: "OUT_OF_RANGE"},
			})
			return
		}
		coords = append(coords, c)
	}

	response.JSON(w, r, http.StatusOK, models.PolylineEncodeResponse{
		Encoded: polyline.Encode(coords),
	})
}
