package usage

import "github.com/kailas-cloud/compdex/internal/domain/usage"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Limit(period usage.Period) int64
	Used(period usage.Period) int64
	Remaining(period usage.Period) int64
}
