package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
	build  services.BuildInfo
	now    func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthSystemService enables dependency checks on /readyz.
func WithHealthSystemService(svc services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = svc
		if svc != nil && h.build == (services.BuildInfo{}) {
			h.build = svc.BuildInfo()
		}
	}
}

// WithHealthBuildInfo sets the version metadata reported by /healthz.
func WithHealthBuildInfo(info services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthClock overrides the clock, for tests.
func WithHealthClock(now func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHealthHandlers constructs probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.now()
	}
	return h
}

type healthResponse struct {
	Status      string                              `json:"status"`
	Version     string                              `json:"version,omitempty"`
	CommitSHA   string                              `json:"commitSha,omitempty"`
	Environment string                              `json:"environment,omitempty"`
	Uptime      string                              `json:"uptime"`
	Timestamp   string                              `json:"timestamp"`
	Checks      map[string]domain.SystemHealthCheck `json:"checks,omitempty"`
	Details     []string                            `json:"details,omitempty"`
}

// Healthz reports liveness without touching dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:      domain.HealthStatusOK,
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
		Uptime:      now.Sub(h.build.StartedAt).Round(time.Second).String(),
		Timestamp:   now.Format(time.RFC3339),
	})
}

// Readyz probes dependencies and returns 503 unless every check is ok.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		h.Healthz(w, r)
		return
	}
	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("health_unavailable", err.Error(), http.StatusServiceUnavailable))
		return
	}

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	var details []string
	for _, name := range names {
		check := report.Checks[name]
		if check.Status == domain.HealthStatusOK {
			continue
		}
		reason := check.Error
		if reason == "" {
			reason = check.Detail
		}
		if reason == "" {
			reason = check.Status
		}
		details = append(details, fmt.Sprintf("%s: %s", name, reason))
	}

	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	timestamp := report.GeneratedAt
	if timestamp.IsZero() {
		timestamp = h.now()
	}
	httpx.WriteJSON(w, status, healthResponse{
		Status:      report.Status,
		Version:     report.Version,
		CommitSHA:   report.CommitSHA,
		Environment: report.Environment,
		Uptime:      report.Uptime.Round(time.Second).String(),
		Timestamp:   timestamp.UTC().Format(time.RFC3339),
		Checks:      report.Checks,
		Details:     details,
	})
}
