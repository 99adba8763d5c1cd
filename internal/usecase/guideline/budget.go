package guideline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/usage"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetTracker counts interpreter tokens against daily and monthly caps.
// Check is in-memory only; Record updates memory first, then writes behind
// to the store when one is attached.
type BudgetTracker struct {
	mu           sync.Mutex
	dailyUsed    int64
	monthlyUsed  int64
	dailyLimit   int64
	monthlyLimit int64
	action       BudgetAction
	day          time.Time
	month        time.Time
	store        BudgetStore
	logger       *zap.Logger
	now          func() time.Time
}

// NewBudgetTracker creates a tracker. A zero limit is unlimited.
func NewBudgetTracker(dailyLimit, monthlyLimit int64, action BudgetAction, logger *zap.Logger) *BudgetTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BudgetTracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		logger:       logger,
		now:          time.Now,
	}
	b.day, _ = usage.PeriodDay.Bounds(b.now())
	b.month, _ = usage.PeriodMonth.Bounds(b.now())
	return b
}

// WithStore attaches a persistence store and loads the current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	if v, err := store.Used(ctx, usage.PeriodDay, now); err == nil {
		b.dailyUsed = v
	} else {
		b.logger.Warn("Failed to load daily interpreter budget", zap.Error(err))
	}
	if v, err := store.Used(ctx, usage.PeriodMonth, now); err == nil {
		b.monthlyUsed = v
	} else {
		b.logger.Warn("Failed to load monthly interpreter budget", zap.Error(err))
	}

	b.logger.Info("Interpreter budget loaded",
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
	return b
}

// Check reports whether a new request fits the budget.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()

	dailyExceeded := b.dailyLimit > 0 && b.dailyUsed >= b.dailyLimit
	monthlyExceeded := b.monthlyLimit > 0 && b.monthlyUsed >= b.monthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrInterpreterBudgetExceeded
	}

	b.logger.Warn("Interpreter token budget exceeded",
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.dailyLimit),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.monthlyLimit),
	)
	return nil
}

// Record adds consumed tokens.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.resetIfNeeded()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	store := b.store
	now := b.now()
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Detached from the request so a cancelled caller still gets counted.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, p := range []usage.Period{usage.PeriodDay, usage.PeriodMonth} {
		if err := store.Add(ctx, p, now, tokens); err != nil {
			b.logger.Warn("Failed to persist interpreter budget", zap.String("period", string(p)), zap.Error(err))
		}
	}
}

// Limit returns the cap for period, 0 if unlimited.
func (b *BudgetTracker) Limit(period usage.Period) int64 {
	if period == usage.PeriodDay {
		return b.dailyLimit
	}
	return b.monthlyLimit
}

// Used returns tokens consumed in the current period.
func (b *BudgetTracker) Used(period usage.Period) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	if period == usage.PeriodDay {
		return b.dailyUsed
	}
	return b.monthlyUsed
}

// Remaining returns tokens left in the current period, -1 if unlimited.
func (b *BudgetTracker) Remaining(period usage.Period) int64 {
	limit := b.Limit(period)
	if limit == 0 {
		return -1
	}
	return max(limit-b.Used(period), 0)
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (b *BudgetTracker) resetIfNeeded() {
	now := b.now()
	if day, _ := usage.PeriodDay.Bounds(now); day.After(b.day) {
		b.dailyUsed = 0
		b.day = day
	}
	if month, _ := usage.PeriodMonth.Bounds(now); month.After(b.month) {
		b.monthlyUsed = 0
		b.month = month
	}
}
