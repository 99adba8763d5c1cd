package guideline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/usage"
	"github.com/kailas-cloud/compdex/internal/metrics"
)

// MeteredInterpreter wraps an interpreter with token budget enforcement.
// Transport metrics (requests, duration) are recorded by the inner client.
type MeteredInterpreter struct {
	inner  UsageInterpreter
	budget BudgetChecker
	logger *zap.Logger
}

// NewMeteredInterpreter wraps inner. budget may be nil (tokens are still counted).
func NewMeteredInterpreter(inner UsageInterpreter, budget BudgetChecker, logger *zap.Logger) *MeteredInterpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeteredInterpreter{inner: inner, budget: budget, logger: logger}
}

// Interpret implements Interpreter.
func (m *MeteredInterpreter) Interpret(ctx context.Context, text string) (domgl.Criteria, error) {
	if m.budget != nil {
		if err := m.budget.Check(ctx); err != nil {
			m.logger.Warn("Interpreter budget exceeded", zap.Error(err))
			return nil, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	criteria, tokens, err := m.inner.InterpretWithUsage(ctx, text)
	duration := time.Since(start)
	if tokens > 0 {
		metrics.InterpreterTokensTotal.Add(float64(tokens))
	}
	if err != nil {
		m.logger.Error("Interpreter request failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, fmt.Errorf("interpret: %w", err)
	}

	if m.budget != nil && tokens > 0 {
		m.budget.Record(int64(tokens))
		remaining := metrics.InterpreterBudgetTokensRemaining
		remaining.WithLabelValues(string(usage.PeriodDay)).Set(float64(m.budget.Remaining(usage.PeriodDay)))
		remaining.WithLabelValues(string(usage.PeriodMonth)).Set(float64(m.budget.Remaining(usage.PeriodMonth)))
	}

	m.logger.Debug("Interpreter request completed",
		zap.Duration("duration", duration),
		zap.Int("total_tokens", tokens),
		zap.Int("criteria", len(criteria)),
	)
	return criteria, nil
}
