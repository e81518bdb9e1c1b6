package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"busdriver/internal/logging"
	"busdriver/internal/middleware"
	"busdriver/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogRouter(store Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/catalog/drivers/{id}", GetDriver(store, logging.Nop()))
	r.Get("/api/catalog/routes", GetRoutes(store, logging.Nop()))
	return r
}

func TestGetDriver(t *testing.T) {
	r := catalogRouter(newFakeStore(t))

	cases := []struct {
		name     string
		caller   string
		role     string
		target   string
		wantCode int
	}{
		{"own profile", "driver-001", middleware.RoleDriver, "driver-001", http.StatusOK},
		{"other driver", "driver-002", middleware.RoleDriver, "driver-001", http.StatusForbidden},
		{"dispatcher reads any", "dispatcher-001", middleware.RoleDispatcher, "driver-001", http.StatusOK},
		{"dispatcher unknown id", "dispatcher-001", middleware.RoleDispatcher, "driver-404", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := authed(httptest.NewRequest(http.MethodGet, "/api/catalog/drivers/"+tc.target, nil), tc.caller, tc.role)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestGetDriverHidesPinHash(t *testing.T) {
	r := catalogRouter(newFakeStore(t))
	req := authed(httptest.NewRequest(http.MethodGet, "/api/catalog/drivers/driver-001", nil), "driver-001", middleware.RoleDriver)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pin")

	var profile models.DriverProfile
	decode(t, rec, &profile)
	assert.Equal(t, models.DriverProfile{ID: "driver-001", Name: "Alex Driver"}, profile)
}

func TestGetDriverRequiresClaims(t *testing.T) {
	r := catalogRouter(newFakeStore(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog/drivers/driver-001", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetRoutes(t *testing.T) {
	store := newFakeStore(t)
	r := catalogRouter(store)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/catalog/routes", nil), "driver-001", middleware.RoleDriver)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var routes []models.RouteDTO
	decode(t, rec, &routes)
	require.Len(t, routes, 1)
	assert.Equal(t, "route-101", routes[0].ID)

	store.failAll = true
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
