package compdex

import (
	"context"

	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	compsuc "github.com/kailas-cloud/compdex/internal/usecase/comps"
	healthuc "github.com/kailas-cloud/compdex/internal/usecase/health"
	"github.com/kailas-cloud/compdex/internal/usecase/learn"
)

// --- compsUseCase mock ---

type mockComps struct {
	findFn     func(ctx context.Context, q property.Query, opts compsuc.Options) (compsuc.Result, error)
	feedbackFn func(ctx context.Context, id string, q float64, ids []string) (FeedbackRecord, error)
	trainFn    func(ctx context.Context) (learn.TrainSummary, error)
	weightsFn  func(ctx context.Context) (scoring.Weights, error)
	listFn     func(ctx context.Context) ([]domgl.Guideline, error)
	addFn      func(ctx context.Context, d string, c domgl.Criteria, p float64) (domgl.Guideline, error)
	instructFn func(ctx context.Context, text string) (domgl.Guideline, error)
	removeFn   func(ctx context.Context, index int) (domgl.Guideline, error)
}

func (m *mockComps) FindComparables(ctx context.Context, q property.Query, opts compsuc.Options) (compsuc.Result, error) {
	return m.findFn(ctx, q, opts)
}

func (m *mockComps) RecordFeedback(ctx context.Context, id string, q float64, ids []string) (FeedbackRecord, error) {
	return m.feedbackFn(ctx, id, q, ids)
}

func (m *mockComps) Train(ctx context.Context) (learn.TrainSummary, error) { return m.trainFn(ctx) }

func (m *mockComps) Weights(ctx context.Context) (scoring.Weights, error) { return m.weightsFn(ctx) }

func (m *mockComps) EstimateValue(_ *property.Property, comps []compsuc.Comparable) Valuation {
	return Valuation{CompCount: len(comps)}
}

func (m *mockComps) ListGuidelines(ctx context.Context) ([]domgl.Guideline, error) {
	return m.listFn(ctx)
}

func (m *mockComps) AddGuideline(ctx context.Context, d string, c domgl.Criteria, p float64) (domgl.Guideline, error) {
	return m.addFn(ctx, d, c, p)
}

func (m *mockComps) AddInstruction(ctx context.Context, text string) (domgl.Guideline, error) {
	return m.instructFn(ctx, text)
}

func (m *mockComps) RemoveGuideline(ctx context.Context, index int) (domgl.Guideline, error) {
	return m.removeFn(ctx, index)
}

// --- healthUseCase mock ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- usageUseCase mock ---

type mockUsage struct {
	report UsageReport
	got    UsagePeriod
}

func (m *mockUsage) GetReport(_ context.Context, p UsagePeriod) UsageReport {
	m.got = p
	return m.report
}
