// Package usage reports guideline interpreter token consumption.
package usage

import (
	"context"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil when no interpreter is configured.
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds a usage report for the current period.
func (s *Service) GetReport(_ context.Context, period usage.Period) usage.Report {
	start, end := period.Bounds(s.now())
	r := usage.Report{
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Budget:      usage.Budget{TokensRemaining: -1, ResetsAt: end},
	}
	if s.br == nil {
		return r
	}

	r.Tokens = s.br.Used(period)
	r.Budget.TokensLimit = s.br.Limit(period)
	r.Budget.TokensRemaining = s.br.Remaining(period)
	r.Budget.Exhausted = r.Budget.TokensLimit > 0 && r.Budget.TokensRemaining <= 0
	return r
}
