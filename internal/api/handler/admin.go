package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodiemap/foodiemap/internal/api/models"
	"github.com/foodiemap/foodiemap/internal/api/response"
	"github.com/foodiemap/foodiemap/internal/rates"
	"github.com/foodiemap/foodiemap/internal/routing"
)

// RateStore is the subset of the rates service used by the admin dashboard.
type RateStore interface {
	List(ctx context.Context) ([]*rates.Rate, error)
	SetRates(ctx context.Context, rates []*rates.Rate) error
	DeleteRate(ctx context.Context, mode routing.TransportMode) error
	Currency() string
}

// CacheInvalidator drops cached routes.
type CacheInvalidator interface {
	InvalidateCache() int
}

// AdminHandler handles admin dashboard endpoints.
type AdminHandler struct {
	rates RateStore
	cache CacheInvalidator
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(rateStore RateStore, cache CacheInvalidator) *AdminHandler {
	return &AdminHandler{rates: rateStore, cache: cache}
}

// ListRates handles GET /v1/admin/rates.
func (h *AdminHandler) ListRates(w http.ResponseWriter, r *http.Request) {
	list, err := h.rates.List(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, r, "rates are temporarily unavailable")
		return
	}

	resp := models.RatesResponse{
		Currency: h.rates.Currency(),
		Rates:    make([]models.Rate, 0, len(list)),
	}
	for _, rate := range list {
		entry := models.Rate{
			Mode:      string(rate.Mode),
			RatePerKm: rate.RatePerKm,
			Currency:  rate.Currency,
			Source:    "default",
		}
		if !rate.UpdatedAt.IsZero() {
			entry.Source = "stored"
			entry.UpdatedAt = models.TimestampPtr(&rate.UpdatedAt)
		}
		resp.Rates = append(resp.Rates, entry)
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// UpsertRates handles PUT /v1/admin/rates.
func (h *AdminHandler) UpsertRates(w http.ResponseWriter, r *http.Request) {
	var input models.RatesUpdateRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	var fieldErrors []models.FieldError
	updates := make([]*rates.Rate, 0, len(input.Rates))
	for i, in := range input.Rates {
		if in.Mode == "" {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field: fmt.Sprintf("rates[%d].mode", i), Message: "is required", Code: "REQUIRED",
			})
		}
		if in.RatePerKm == nil {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field: fmt.Sprintf("rates[%d].ratePerKm", i), Message: "is required", Code: "REQUIRED",
			})
			continue
		}
		updates = append(updates, &rates.Rate{
			Mode:      routing.TransportMode(in.Mode),
			RatePerKm: *in.RatePerKm,
			Currency:  in.Currency,
		})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid rates", fieldErrors)
		return
	}

	log := auditLogger(r.Context())
	if err := h.rates.SetRates(r.Context(), updates); err != nil {
		if errors.Is(err, routing.ErrInvalidRate) || errors.Is(err, rates.ErrNoRates) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		log.Error().Err(err).Msg("failed to store rates")
		response.InternalError(w, r, "failed to store rates")
		return
	}
	log.Info().Int("count", len(updates)).Msg("rates updated")

	h.ListRates(w, r)
}

// DeleteRate handles DELETE /v1/admin/rates/{mode}.
func (h *AdminHandler) DeleteRate(w http.ResponseWriter, r *http.Request) {
	mode := routing.ParseTransportMode(chi.URLParam(r, "mode"))
	log := auditLogger(r.Context())
	if err := h.rates.DeleteRate(r.Context(), mode); err != nil {
		log.Error().Err(err).Str("mode", string(mode)).Msg("failed to delete rate")
		response.InternalError(w, r, "failed to delete rate")
		return
	}
	log.Info().Str("mode", string(mode)).Msg("rate reset to default")
	response.NoContent(w, r)
}

// InvalidateRouteCache handles POST /v1/admin/routes/cache:invalidate.
func (h *AdminHandler) InvalidateRouteCache(w http.ResponseWriter, r *http.Request) {
	removed := h.cache.InvalidateCache()
	log := auditLogger(r.Context())
	log.Info().Int("removed", removed).Msg("route cache invalidated")
	response.JSON(w, r, http.StatusOK, models.CacheInvalidateResponse{Removed: removed})
}
