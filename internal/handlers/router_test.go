package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

type routerStubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *routerStubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

func (s *routerStubSystemService) BuildInfo() services.BuildInfo {
	return services.BuildInfo{Version: "test"}
}

func TestNewRouter_DefaultMounts(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	healthHandlers := NewHealthHandlers(
		WithHealthSystemService(&routerStubSystemService{
			report: services.SystemHealthReport{
				Status:      domain.HealthStatusOK,
				Uptime:      5 * time.Second,
				GeneratedAt: now,
				Checks: map[string]domain.SystemHealthCheck{
					"store": {Status: domain.HealthStatusOK},
				},
			},
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	router := NewRouter(WithHealthHandlers(healthHandlers))

	t.Run("healthz", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected content-type application/json, got %s", ct)
		}
	})

	t.Run("readyz", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("unregistered groups are not implemented", func(t *testing.T) {
		for _, path := range []string{"/api/v1/cart", "/api/v1/checkout", "/api/v1/admin/products", "/api/v1/webhooks/stripe"} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
			if rr.Code != http.StatusNotImplemented {
				t.Fatalf("%s: expected status 501, got %d", path, rr.Code)
			}
		}
	})

	t.Run("unknown route is json 404", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		if body := decodeBody(t, rr); body["error"] != "route_not_found" {
			t.Fatalf("expected route_not_found, got %v", body["error"])
		}
	})
}

func TestNewRouter_RegistersGroups(t *testing.T) {
	var adminHits int
	adminGate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminHits++
			if r.Header.Get("X-Test-Admin") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }

	router := NewRouter(
		WithPublicRoutes(func(r chi.Router) { r.Get("/products", ok) }),
		WithAdminRoutes(func(r chi.Router) { r.Get("/orders", ok) }),
		WithAdminMiddlewares(adminGate),
		WithPageRoutes(func(r chi.Router) { r.Get("/", ok) }),
	)

	cases := []struct {
		name   string
		path   string
		admin  bool
		status int
	}{
		{name: "public", path: "/api/v1/products", status: http.StatusTeapot},
		{name: "admin without credentials", path: "/api/v1/admin/orders", status: http.StatusUnauthorized},
		{name: "admin with credentials", path: "/api/v1/admin/orders", admin: true, status: http.StatusTeapot},
		{name: "page", path: "/", status: http.StatusTeapot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.admin {
				req.Header.Set("X-Test-Admin", "1")
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
		})
	}
	if adminHits != 2 {
		t.Fatalf("expected admin middleware to run twice, got %d", adminHits)
	}
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	router := NewRouter(WithPublicRoutes(func(r chi.Router) {
		r.Get("/products", func(w http.ResponseWriter, r *http.Request) {})
	}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/products", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}
