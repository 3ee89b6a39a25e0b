package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiemap/foodiemap/internal/api"
	"github.com/foodiemap/foodiemap/internal/api/models"
	"github.com/foodiemap/foodiemap/internal/auth"
	"github.com/foodiemap/foodiemap/internal/provider/resilience"
	"github.com/foodiemap/foodiemap/internal/rates"
	"github.com/foodiemap/foodiemap/internal/routing"
)

const (
	// Three points: (38.5,-120.2) (40.7,-120.95) (43.252,-126.453)
	validPolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"
	brokenPolyline = "_p~iF"
)

type stubProvider struct {
	resp *routing.DirectionsResponse
	err  error
}

func (p *stubProvider) GetDirections(_ context.Context, _ routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.resp, nil
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) SupportedModes() []routing.TransportMode {
	return routing.KnownModes()
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.foodiemap.vn",
		Audience:   "foodiemap-admin",
	})
}

func addAuthHeader(t *testing.T, req *http.Request, role string) {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken("adm_test", role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

type testEnv struct {
	router   http.Handler
	provider *stubProvider
	rates    *rates.Service
	routing  *routing.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLog(t, io.Discard)
}

func newTestEnvWithLog(t *testing.T, logOut io.Writer) *testEnv {
	t.Helper()
	logger := zerolog.New(logOut)

	provider := &stubProvider{resp: &routing.DirectionsResponse{
		Provider: "stub",
		Routes: []routing.Route{
			{GeometryPolyline: validPolyline, DistanceMeters: 7000, DurationSeconds: 1500, Summary: "Slow road"},
			{GeometryPolyline: validPolyline, DistanceMeters: 5000, DurationSeconds: 754, Summary: "Lê Lợi"},
		},
		FetchedAt: time.Now(),
	}}

	rateService := rates.NewService(rates.ServiceConfig{
		Repository: rates.NewInMemoryRepository(),
		Logger:     logger,
	})

	routingService := routing.NewService(routing.ServiceConfig{
		Provider: provider,
		Rates:    rateService,
		Logger:   logger,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2026-01-01T00:00:00Z",
		Logger:    logger,
		Routing:   routingService,
		Rates:     rateService,
		RateStore: rateService,
		Tokens:    testJWTService(),
		Registry:  resilience.NewRegistry(),
	})

	return &testEnv{router: router, provider: provider, rates: rateService, routing: routingService}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "2026-01-01T00:00:00Z", health.BuildTime)
	assert.Empty(t, health.Checks)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SystemStatus_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	addAuthHeader(t, req, auth.RoleAdmin)
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.NotNil(t, status.RouteCache)
	assert.Equal(t, "stub", status.RouteCache.Provider)
}

func TestRouter_ComputeRoutes(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, http.MethodPost, "/v1/routes:compute", map[string]interface{}{
		"origin":       map[string]float64{"lat": 21.0285, "lon": 105.8542},
		"destination":  map[string]float64{"lat": 21.0368, "lon": 105.8345},
		"mode":         "taxi",
		"alternatives": true,
		"locale":       "vi-VN",
	})
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.RouteComputeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "stub", resp.Provider)
	assert.Equal(t, "taxi", resp.Mode)
	assert.Equal(t, "VND", resp.Currency)
	assert.Empty(t, resp.Warnings)
	require.Len(t, resp.Options, 2)

	fastest := resp.Options[0]
	assert.Equal(t, "Lê Lợi", fastest.Summary)
	assert.Equal(t, "5.0km", fastest.DistanceText)
	assert.Equal(t, "12p", fastest.DurationText)
	assert.Equal(t, int64(60000), fastest.Cost)
	assert.Equal(t, int64(15000), fastest.Costs["car"])
	assert.Equal(t, int64(10000), fastest.Costs["motorbike"])
	assert.Equal(t, validPolyline, fastest.GeometryPolyline)
	require.NotNil(t, fastest.Geometry)
	require.NotNil(t, fastest.BoundingBox)
	assert.InDelta(t, 38.5, fastest.BoundingBox.MinLat, 1e-9)
	assert.InDelta(t, -126.453, fastest.BoundingBox.MinLon, 1e-9)
	assert.NotEqual(t, fastest.ID, resp.Options[1].ID)

	assert.Equal(t, "25p", resp.Options[1].DurationText)
}

func TestRouter_ComputeRoutes_SkippedRouteWarning(t *testing.T) {
	env := newTestEnv(t)
	env.provider.resp.Routes = append(env.provider.resp.Routes, routing.Route{
		GeometryPolyline: brokenPolyline, DistanceMeters: 100, DurationSeconds: 10,
	})

	w := env.do(jsonRequest(t, http.MethodPost, "/v1/routes:compute", map[string]interface{}{
		"origin":      map[string]float64{"lat": 21.0285, "lon": 105.8542},
		"destination": map[string]float64{"lat": 21.0368, "lon": 105.8345},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RouteComputeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "car", resp.Mode)
	assert.Len(t, resp.Options, 2)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "ROUTES_SKIPPED", resp.Warnings[0].Code)
}

func TestRouter_ComputeRoutes_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing points", map[string]interface{}{"mode": "car"}},
		{"latitude out of range", map[string]interface{}{
			"origin":      map[string]float64{"lat": 91, "lon": 105.8},
			"destination": map[string]float64{"lat": 21, "lon": 105.8},
		}},
		{"unknown field", map[string]interface{}{"objective": "FASTEST"}},
		{"unsupported mode", map[string]interface{}{
			"origin":      map[string]float64{"lat": 21.0285, "lon": 105.8542},
			"destination": map[string]float64{"lat": 21.0368, "lon": 105.8345},
			"mode":        "helicopter",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(jsonRequest(t, http.MethodPost, "/v1/routes:compute", tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRouter_ComputeRoutes_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no route", &routing.Error{Provider: "stub", Code: "NO_ROUTE", Message: "no route", Err: routing.ErrNoRouteFound}, http.StatusNotFound},
		{"unavailable", &routing.Error{Provider: "stub", Code: "SERVER_500", Message: "down", Err: routing.ErrProviderUnavailable}, http.StatusBadGateway},
		{"rate limited", &routing.Error{Provider: "stub", Code: "RATE_LIMIT", Message: "quota", Err: routing.ErrRateLimitExceeded}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.provider.err = tt.err

			w := env.do(jsonRequest(t, http.MethodPost, "/v1/routes:compute", map[string]interface{}{
				"origin":      map[string]float64{"lat": 21.0285, "lon": 105.8542},
				"destination": map[string]float64{"lat": 21.0368, "lon": 105.8345},
			}))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_DecodePolyline(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(jsonRequest(t, http.MethodPost, "/v1/polylines:decode", map[string]string{"encoded": validPolyline}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.PolylineDecodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Coordinates, 3)
	assert.Equal(t, 3, resp.PointCount)
	assert.InDelta(t, -120.2, resp.Coordinates[0][0], 1e-9)
	assert.InDelta(t, 38.5, resp.Coordinates[0][1], 1e-9)
	assert.Greater(t, resp.LengthMeters, 0.0)
	assert.Equal(t, "LineString", string(resp.Geometry.Geometry.GeoJSONType()))
}

func TestRouter_DecodePolyline_Malformed(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(jsonRequest(t, http.MethodPost, "/v1/polylines:decode", map[string]string{"encoded": brokenPolyline}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeMalformed, problem.Type)
	require.NotNil(t, problem.Offset)
	assert.Equal(t, 5, *problem.Offset)
}

func TestRouter_EncodePolyline(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(jsonRequest(t, http.MethodPost, "/v1/polylines:encode", map[string]interface{}{
		"coordinates": [][2]float64{{-120.2, 38.5}, {-120.95, 40.7}, {-126.453, 43.252}},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.PolylineEncodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, validPolyline, resp.Encoded)
}

func TestRouter_EstimateCost(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/costs:estimate?distanceMeters=2500&mode=Bike", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CostEstimate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bike", resp.Mode)
	assert.Equal(t, "2.5km", resp.DistanceText)
	assert.InDelta(t, 2000, resp.RatePerKm, 1e-9)
	assert.Equal(t, int64(5000), resp.Cost)
	assert.Equal(t, "VND", resp.Currency)
}

func TestRouter_EstimateCost_Invalid(t *testing.T) {
	env := newTestEnv(t)

	for _, query := range []string{"", "?distanceMeters=abc", "?distanceMeters=-1", "?distanceMeters=NaN"} {
		w := env.do(httptest.NewRequest(http.MethodGet, "/v1/costs:estimate"+query, http.NoBody))
		assert.Equal(t, http.StatusBadRequest, w.Code, "query %q", query)
	}
}

func TestRouter_EstimateCost_DistanceBound(t *testing.T) {
	env := newTestEnv(t)

	for _, query := range []string{"?distanceMeters=1e30&mode=taxi", "?distanceMeters=100000001", "?distanceMeters=1e308"} {
		w := env.do(httptest.NewRequest(http.MethodGet, "/v1/costs:estimate"+query, http.NoBody))
		assert.Equal(t, http.StatusBadRequest, w.Code, "query %q", query)
		assert.Contains(t, w.Body.String(), "OUT_OF_RANGE", "query %q", query)
	}

	// The bound itself still prices, and never wraps negative
	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/costs:estimate?distanceMeters=1e8&mode=taxi", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CostEstimate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1_200_000_000), resp.Cost)
}

func TestRouter_AdminRates(t *testing.T) {
	env := newTestEnv(t)

	// Viewers may read but not edit
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/rates", http.NoBody)
	addAuthHeader(t, req, auth.RoleViewer)
	assert.Equal(t, http.StatusOK, env.do(req).Code)

	req = jsonRequest(t, http.MethodPut, "/v1/admin/rates", map[string]interface{}{
		"rates": []map[string]interface{}{{"mode": "taxi", "ratePerKm": 15000}},
	})
	addAuthHeader(t, req, auth.RoleViewer)
	assert.Equal(t, http.StatusForbidden, env.do(req).Code)

	req = jsonRequest(t, http.MethodPut, "/v1/admin/rates", map[string]interface{}{
		"rates": []map[string]interface{}{{"mode": "taxi", "ratePerKm": 15000}},
	})
	addAuthHeader(t, req, auth.RoleAdmin)
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.RatesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	byMode := map[string]models.Rate{}
	for _, r := range resp.Rates {
		byMode[r.Mode] = r
	}
	assert.InDelta(t, 15000, byMode["taxi"].RatePerKm, 1e-9)
	assert.Equal(t, "stored", byMode["taxi"].Source)
	assert.Equal(t, "default", byMode["car"].Source)

	// New rate prices estimates immediately
	w = env.do(httptest.NewRequest(http.MethodGet, "/v1/costs:estimate?distanceMeters=1000&mode=taxi", http.NoBody))
	var estimate models.CostEstimate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &estimate))
	assert.Equal(t, int64(15000), estimate.Cost)

	// Negative rates are rejected
	req = jsonRequest(t, http.MethodPut, "/v1/admin/rates", map[string]interface{}{
		"rates": []map[string]interface{}{{"mode": "car", "ratePerKm": -5}},
	})
	addAuthHeader(t, req, auth.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)

	// Delete falls back to the default
	req = httptest.NewRequest(http.MethodDelete, "/v1/admin/rates/taxi", http.NoBody)
	addAuthHeader(t, req, auth.RoleAdmin)
	assert.Equal(t, http.StatusNoContent, env.do(req).Code)
	assert.InDelta(t, 12000, env.rates.Table(context.Background()).Rate(routing.ModeTaxi), 1e-9)
}

func TestRouter_AdminAuditLog(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnvWithLog(t, &buf)

	req := jsonRequest(t, http.MethodPut, "/v1/admin/rates", map[string]interface{}{
		"rates": []map[string]interface{}{{"mode": "bike", "ratePerKm": 2500}},
	})
	addAuthHeader(t, req, auth.RoleAdmin)
	require.Equal(t, http.StatusOK, env.do(req).Code)

	var audit map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] == "rates updated" {
			audit = entry
		}
	}
	require.NotNil(t, audit, "no audit line in %s", buf.String())
	assert.Equal(t, "adm_test", audit["subject"])
	assert.Equal(t, "admin", audit["component"])
	assert.EqualValues(t, 1, audit["count"])
	assert.NotEmpty(t, audit["request_id"])
}

func TestRouter_AdminInvalidateRouteCache(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.routing.GetDirections(context.Background(), routing.DirectionsRequest{
		Origin:      routing.Coordinate{Lat: 21.0285, Lon: 105.8542},
		Destination: routing.Coordinate{Lat: 21.0368, Lon: 105.8345},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/routes/cache:invalidate", http.NoBody)
	addAuthHeader(t, req, auth.RoleAdmin)
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CacheInvalidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Removed)
	assert.Zero(t, env.routing.CacheStats().TotalEntries)
}

func TestRouter_RequireJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/polylines:decode", bytes.NewBufferString("encoded=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	assert.Equal(t, http.StatusUnsupportedMediaType, env.do(req).Code)
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")

	assert.Equal(t, "custom_request_id", env.do(req).Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
