package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiemap/foodiemap/internal/api/middleware"
	"github.com/foodiemap/foodiemap/internal/auth"
)

func createTestJWTService(t *testing.T) *auth.JWTService {
	t.Helper()
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.foodiemap.vn",
		Audience:   "foodiemap-admin",
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingAuthorizationHeader(t *testing.T) {
	handler := middleware.Auth(createTestJWTService(t))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/rates", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAuth_InvalidAuthorizationFormat(t *testing.T) {
	handler := middleware.Auth(createTestJWTService(t))(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"just bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/rates", http.NoBody)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	handler := middleware.Auth(createTestJWTService(t))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/rates", http.NoBody)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid access token")
}

func TestAuth_ExpiredToken(t *testing.T) {
	expired := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.foodiemap.vn",
		Audience:   "foodiemap-admin",
		Expiry:     -time.Minute,
	})
	token, _, err := expired.GenerateAccessToken("adm_001", auth.RoleAdmin)
	require.NoError(t, err)

	handler := middleware.Auth(createTestJWTService(t))(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/rates", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token has expired")
}

func TestAuth_ValidToken(t *testing.T) {
	jwtService := createTestJWTService(t)
	token, _, err := jwtService.GenerateAccessToken("adm_001", auth.RoleAdmin)
	require.NoError(t, err)

	var subject, role string
	handler := middleware.Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = middleware.GetSubject(r.Context())
		role = middleware.GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/rates", http.NoBody)
		req.Header.Set("Authorization", prefix+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "prefix %q", prefix)
		assert.Equal(t, "adm_001", subject)
		assert.Equal(t, auth.RoleAdmin, role)
	}
}

func TestRequireRole(t *testing.T) {
	jwtService := createTestJWTService(t)
	handler := middleware.Auth(jwtService)(middleware.RequireRole(auth.RoleAdmin)(okHandler()))

	adminToken, _, err := jwtService.GenerateAccessToken("adm_001", auth.RoleAdmin)
	require.NoError(t, err)
	viewerToken, _, err := jwtService.GenerateAccessToken("usr_002", auth.RoleViewer)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"admin", adminToken, http.StatusOK},
		{"other role", viewerToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/v1/admin/rates", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireRole_AnyOf(t *testing.T) {
	jwtService := createTestJWTService(t)
	handler := middleware.Auth(jwtService)(middleware.RequireRole(auth.RoleAdmin, auth.RoleViewer)(okHandler()))

	for _, role := range []string{auth.RoleAdmin, auth.RoleViewer} {
		token, _, err := jwtService.GenerateAccessToken("usr_003", role)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/admin/rates", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "role %s", role)
	}
}

func TestRequireRole_ForbiddenDetail(t *testing.T) {
	jwtService := createTestJWTService(t)
	handler := middleware.Auth(jwtService)(middleware.RequireRole(auth.RoleAdmin)(okHandler()))

	token, _, err := jwtService.GenerateAccessToken("usr_004", auth.RoleViewer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/rates/taxi", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "requires the admin role")
	assert.Contains(t, rec.Body.String(), "/v1/admin/rates/taxi")
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	handler := middleware.RequireRole(auth.RoleAdmin)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/rates", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSubject_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetSubject(req.Context()))
	assert.Empty(t, middleware.GetRole(req.Context()))
}
