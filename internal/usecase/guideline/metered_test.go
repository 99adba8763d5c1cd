package guideline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/domain"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/usage"
)

type mockUsageInterpreter struct {
	criteria domgl.Criteria
	tokens   int
	err      error
	calls    int
}

func (m *mockUsageInterpreter) InterpretWithUsage(context.Context, string) (domgl.Criteria, int, error) {
	m.calls++
	return m.criteria, m.tokens, m.err
}

func TestMeteredInterpreter_RecordsTokens(t *testing.T) {
	inner := &mockUsageInterpreter{
		criteria: domgl.Criteria{domgl.KeyMaxDistanceMiles: 1},
		tokens:   120,
	}
	budget := NewBudgetTracker(1000, 0, BudgetActionReject, zap.NewNop())
	m := NewMeteredInterpreter(inner, budget, zap.NewNop())

	got, err := m.Interpret(context.Background(), "within a mile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[domgl.KeyMaxDistanceMiles] != 1 {
		t.Errorf("criteria = %v", got)
	}
	if budget.Used(usage.PeriodDay) != 120 {
		t.Errorf("expected 120 tokens recorded, got %d", budget.Used(usage.PeriodDay))
	}
}

func TestMeteredInterpreter_RejectsOverBudget(t *testing.T) {
	inner := &mockUsageInterpreter{tokens: 10}
	budget := NewBudgetTracker(10, 0, BudgetActionReject, zap.NewNop())
	budget.Record(10)
	m := NewMeteredInterpreter(inner, budget, zap.NewNop())

	_, err := m.Interpret(context.Background(), "anything")
	if !errors.Is(err, domain.ErrInterpreterBudgetExceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("inner interpreter should not be called, got %d calls", inner.calls)
	}
}

func TestMeteredInterpreter_InnerError(t *testing.T) {
	inner := &mockUsageInterpreter{err: domain.ErrProviderUnavailable}
	budget := NewBudgetTracker(1000, 0, BudgetActionReject, zap.NewNop())
	m := NewMeteredInterpreter(inner, budget, zap.NewNop())

	if _, err := m.Interpret(context.Background(), "x"); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if budget.Used(usage.PeriodDay) != 0 {
		t.Error("failed calls should not be charged")
	}
}

func TestMeteredInterpreter_NilBudget(t *testing.T) {
	inner := &mockUsageInterpreter{tokens: 5}
	m := NewMeteredInterpreter(inner, nil, nil)

	if _, err := m.Interpret(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddInstruction_BudgetExhaustedStoresInert(t *testing.T) {
	inner := &mockUsageInterpreter{criteria: domgl.Criteria{domgl.KeyMaxDistanceMiles: 1}, tokens: 10}
	budget := NewBudgetTracker(10, 0, BudgetActionReject, zap.NewNop())
	budget.Record(10)
	svc := New(&mockStore{}, NewMeteredInterpreter(inner, budget, nil), nil, 0, zap.NewNop())

	g, err := svc.AddInstruction(context.Background(), "comps should feel similar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.IsInert() {
		t.Errorf("expected inert guideline, got %+v", g.Criteria)
	}
}
