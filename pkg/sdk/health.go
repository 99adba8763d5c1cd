package compdex

import (
	"context"
	"sort"

	healthuc "github.com/kailas-cloud/compdex/internal/usecase/health"
)

// HealthStatus is the state of storage and of every provider, candidate
// source and interpreter that can report on itself.
type HealthStatus struct {
	Status string            `json:"status"` // ok, degraded or error
	Checks map[string]string `json:"checks"`
}

// OK reports whether every check passed.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Failing returns the names of the failed checks in sorted order.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Health runs the checks. A storage failure makes the status "error"; any
// other failure only degrades it.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	h := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
