// Package handler provides HTTP handlers for the FoodieMap routing API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/foodiemap/foodiemap/internal/api/models"
	"github.com/foodiemap/foodiemap/internal/api/response"
	"github.com/foodiemap/foodiemap/internal/provider/resilience"
	"github.com/foodiemap/foodiemap/internal/routing"
)

const pingTimeout = 2 * time.Second

// Pinger checks a backing store, typically *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStatsSource reports route cache occupancy.
type CacheStatsSource interface {
	CacheStats() routing.CacheStats
}

// OpsConfig holds dependencies for the ops endpoints. Everything but the
// version strings is optional.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Cache     CacheStatsSource
	Database  Pinger
}

// OpsHandler serves the health, readiness and status endpoints.
type OpsHandler struct {
	cfg OpsConfig
	now func() time.Time
}

func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, now: time.Now}
}

// HealthCheck handles GET /v1/ops/health. It only proves the process serves HTTP.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.now()),
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The instance is not ready when
// the database is unreachable or every provider circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Checks: map[string]string{},
	}

	if db := h.pingDatabase(r.Context()); db != nil {
		health.Checks["database"] = "ok"
		if db.Status != models.HealthStatusOK {
			health.Status = models.HealthStatusFail
			health.Checks["database"] = db.Error
		}
	}

	if h.cfg.Registry != nil && h.cfg.Registry.Len() > 0 {
		overall := h.cfg.Registry.OverallStatus()
		health.Checks["providers"] = overall
		if overall == resilience.StatusUnhealthy {
			health.Status = models.HealthStatusFail
		}
	}

	code := http.StatusOK
	if health.Status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status. Any unhealthy dependency
// degrades the overall status but the response is always 200.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.now()),
		Version:   h.cfg.Version,
		Providers: []models.ProviderStatus{},
	}
	degrade := func(s models.HealthStatus) {
		if s != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}

	if db := h.pingDatabase(r.Context()); db != nil {
		status.Database = db
		degrade(db.Status)
	}

	if h.cfg.Registry != nil {
		for _, ph := range h.cfg.Registry.Snapshot() {
			ps := providerStatus(ph)
			degrade(ps.Status)
			status.Providers = append(status.Providers, ps)
		}
	}

	if h.cfg.Cache != nil {
		stats := h.cfg.Cache.CacheStats()
		status.RouteCache = &models.RouteCacheStatus{
			Provider:     stats.Provider,
			TotalEntries: stats.TotalEntries,
			FreshEntries: stats.FreshEntries,
			StaleEntries: stats.StaleEntries,
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

// pingDatabase returns nil when no database is configured.
func (h *OpsHandler) pingDatabase(ctx context.Context) *models.DependencyStatus {
	if h.cfg.Database == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := h.cfg.Database.Ping(ctx)
	dep := &models.DependencyStatus{
		Status:    models.HealthStatusOK,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		dep.Status = models.HealthStatusFail
		dep.Error = err.Error()
	}
	return dep
}

func providerStatus(ph resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Name:                ph.Name,
		CircuitState:        ph.CircuitState.String(),
		ConsecutiveFailures: ph.ConsecutiveFailures,
		LastSuccessAt:       models.TimestampPtr(ph.LastSuccessAt),
		LastFailureAt:       models.TimestampPtr(ph.LastFailureAt),
		LastError:           ph.LastError,
	}
	switch ph.Status() {
	case resilience.StatusHealthy:
		ps.Status = models.HealthStatusOK
	case resilience.StatusDegraded:
		ps.Status = models.HealthStatusDegraded
	default:
		ps.Status = models.HealthStatusFail
	}
	return ps
}
