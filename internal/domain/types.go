package domain

import "time"

// Pagination defines cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// Address is a postal address captured at checkout.
type Address struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

// Destination returns the shipping destination implied by the address.
func (a Address) Destination() Destination {
	return Destination{Country: a.Country, State: a.State, Postcode: a.Postcode}
}

// Health status values reported by the system service.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusError    = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string        `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string                       `json:"status"`
	Checks      map[string]SystemHealthCheck `json:"checks"`
	Version     string                       `json:"version"`
	CommitSHA   string                       `json:"commitSha"`
	Environment string                       `json:"environment"`
	Uptime      time.Duration                `json:"uptime"`
	GeneratedAt time.Time                    `json:"generatedAt"`
}
