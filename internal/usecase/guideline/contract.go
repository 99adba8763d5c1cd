package guideline

import (
	"context"
	"time"

	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/usage"
)

// Store loads and saves the ordered guideline list as a whole.
// Load returns an empty slice when nothing was saved.
type Store interface {
	Load(ctx context.Context) ([]domgl.Guideline, error)
	Save(ctx context.Context, guidelines []domgl.Guideline) error
}

// Interpreter turns free text the rule table did not understand into criteria.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (domgl.Criteria, error)
}

// UsageInterpreter is an interpreter that reports the tokens a call consumed.
type UsageInterpreter interface {
	InterpretWithUsage(ctx context.Context, text string) (domgl.Criteria, int, error)
}

// BudgetStore persists token counters per calendar period.
// Implementations must tolerate repeated Add calls.
type BudgetStore interface {
	Add(ctx context.Context, period usage.Period, at time.Time, tokens int64) error
	Used(ctx context.Context, period usage.Period, at time.Time) (int64, error)
}

// BudgetChecker is the budget enforcement used by MeteredInterpreter.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	Remaining(period usage.Period) int64
}
