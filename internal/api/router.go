// Package api provides the HTTP API for the FoodieMap routing service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/api/handler"
	"github.com/foodiemap/foodiemap/internal/api/middleware"
	"github.com/foodiemap/foodiemap/internal/auth"
	"github.com/foodiemap/foodiemap/internal/provider/resilience"
	"github.com/foodiemap/foodiemap/internal/routing"
)

// RoutingService is what the route and admin handlers need from routing.Service.
type RoutingService interface {
	handler.Planner
	handler.CacheStatsSource
	handler.CacheInvalidator
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Currency    string
	RequireTLS  bool

	// ComputeRateLimit bounds provider-backed route computations per client IP.
	// Zero uses middleware.RouteRateLimit.
	ComputeRateLimit middleware.RateLimitConfig

	Routing   RoutingService
	Rates     routing.RateSource
	RateStore handler.RateStore
	Tokens    middleware.TokenValidator
	Registry  *resilience.Registry
	Database  handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "foodiemap-api"
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "VND"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON) // JSON content type
	r.Use(middleware.RequireJSON)     // Reject non-JSON request bodies

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Cache:     cfg.Routing,
		Database:  cfg.Database,
	})
	routeHandler := handler.NewRouteHandler(cfg.Routing, currency)
	polylineHandler := handler.NewPolylineHandler()
	costHandler := handler.NewCostHandler(cfg.Rates, currency)
	adminHandler := handler.NewAdminHandler(cfg.RateStore, cfg.Routing)

	authMiddleware := middleware.Auth(cfg.Tokens)
	adminOnly := middleware.RequireRole(auth.RoleAdmin)
	canRead := middleware.RequireRole(auth.RoleAdmin, auth.RoleViewer)

	adminRateLimit := middleware.RateLimitByUser(middleware.AdminRateLimit)
	expensiveRateLimit := middleware.RateLimitByIP(cfg.ComputeRateLimit.OrDefault(middleware.RouteRateLimit))
	standardRateLimit := middleware.RateLimitByIP(middleware.ToolRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Routes endpoint calls the provider, strict rate limiting
		r.With(expensiveRateLimit).Post("/routes:compute", routeHandler.ComputeRoutes)

		// Pure computation endpoints
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Post("/polylines:decode", polylineHandler.Decode)
			r.Post("/polylines:encode", polylineHandler.Encode)
			r.Get("/costs:estimate", costHandler.Estimate)
		})

		// Admin dashboard endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminRateLimit)

			r.Route("/rates", func(r chi.Router) {
				r.With(canRead).Get("/", adminHandler.ListRates)
				r.With(adminOnly).Put("/", adminHandler.UpsertRates)
				r.With(adminOnly).Delete("/{mode}", adminHandler.DeleteRate)
			})
			r.With(adminOnly).Post("/routes/cache:invalidate", adminHandler.InvalidateRouteCache)
		})
	})

	return r
}
