package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional dependency is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates storage is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const databaseCheck = "database"

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	names    []string
	checkers map[string]Checker
}

// New creates a Service. checkers may be empty; nil entries are ignored.
func New(db DBPinger, checkers map[string]Checker) *Service {
	s := &Service{db: db, checkers: make(map[string]Checker, len(checkers))}
	for name, c := range checkers {
		if c == nil || name == databaseCheck {
			continue
		}
		s.checkers[name] = c
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Check runs every check. Storage failure makes the service unhealthy;
// any other failure only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.names)+1)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks[databaseCheck] = CheckError
		status = Unhealthy
	} else {
		checks[databaseCheck] = CheckOK
	}

	for _, name := range s.names {
		if err := s.checkers[name].HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
