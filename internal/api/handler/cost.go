package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/foodiemap/foodiemap/internal/api/models"
	"github.com/foodiemap/foodiemap/internal/api/response"
	"github.com/foodiemap/foodiemap/internal/routing"
)

// maxEstimateDistanceMeters is 100,000 km, well past any road trip.
const maxEstimateDistanceMeters = 1e8

// CostHandler handles trip cost estimates.
type CostHandler struct {
	rates    routing.RateSource
	currency string
}

// NewCostHandler creates a new CostHandler.
func NewCostHandler(rates routing.RateSource, currency string) *CostHandler {
	return &CostHandler{rates: rates, currency: currency}
}

// Estimate handles GET /v1/costs:estimate?distanceMeters=&mode=.
// Mode defaults to car. Modes without a rate cost 0.
func (h *CostHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("distanceMeters")
	if raw == "" {
		response.BadRequest(w, r, "distanceMeters is required", []models.FieldError{
			{Field: "distanceMeters", Message: "is required", Code: "REQUIRED"},
		})
		return
	}

	distance, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(distance) || math.IsInf(distance, 0) {
		response.BadRequest(w, r, "distanceMeters must be a number", []models.FieldError{
			{Field: "distanceMeters", Message: "must be a number", Code: "INVALID"},
		})
		return
	}
	if distance < 0 {
		response.BadRequest(w, r, "distanceMeters must not be negative", []models.FieldError{
			{Field: "distanceMeters", Message: "must not be negative", Code: "OUT_OF_RANGE"},
		})
		return
	}
	if distance > maxEstimateDistanceMeters {
		response.BadRequest(w, r, "distanceMeters is too large", []models.FieldError{
			{Field: "distanceMeters", Message: "must not exceed 100000000", Code: "OUT_OF_RANGE"},
		})
		return
	}

	mode := routing.ParseTransportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = routing.ModeCar
	}

	table := h.rates.Table(r.Context())
	response.JSON(w, r, http.StatusOK, models.CostEstimate{
		Mode:           string(mode),
		DistanceMeters: distance,
		DistanceText:   routing.FormatDistance(distance),
		RatePerKm:      table.Rate(mode),
		Cost:           routing.EstimateCost(distance, mode, table),
		Currency:       h.currency,
	})
}
