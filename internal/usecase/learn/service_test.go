package learn

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/feedback"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

// --- Mocks ---

type mockWeights struct {
	stored  scoring.Weights
	saves   int
	loadErr error
	saveErr error
}

func (m *mockWeights) Load(_ context.Context) (scoring.Weights, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.stored == nil {
		return nil, domain.ErrNotFound
	}
	return m.stored.Clone(), nil
}

func (m *mockWeights) Save(_ context.Context, w scoring.Weights) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored = w.Clone()
	m.saves++
	return nil
}

type mockLog struct {
	records []feedback.Record
	err     error
}

func (m *mockLog) List(_ context.Context) ([]feedback.Record, error) {
	return m.records, m.err
}

// record builds feedback where distance scored well and everything else poorly.
func record(quality float64) feedback.Record {
	snap := map[scoring.Feature]float64{}
	for _, f := range scoring.Features {
		snap[f] = 0.2
	}
	snap[scoring.FeatureDistance] = 0.95
	return feedback.Record{ID: "r", Quality: quality, SubScores: []map[scoring.Feature]float64{snap, snap}}
}

// --- Tests ---

func TestWeights_DefaultsToBaseline(t *testing.T) {
	svc := New(&mockWeights{}, &mockLog{}, DefaultConfig(), nil)

	w, err := svc.Weights(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w[scoring.FeatureSqft] != 0.25 {
		t.Errorf("sqft = %f, want baseline 0.25", w[scoring.FeatureSqft])
	}
}

func TestWeights_LoadError(t *testing.T) {
	svc := New(&mockWeights{loadErr: errors.New("disk gone")}, &mockLog{}, DefaultConfig(), nil)
	if _, err := svc.Weights(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestApplyFeedback_OppositeSigns(t *testing.T) {
	base := scoring.DefaultWeights()[scoring.FeatureDistance]

	good := New(&mockWeights{}, &mockLog{}, DefaultConfig(), nil)
	wGood, err := good.ApplyFeedback(context.Background(), record(0.9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := New(&mockWeights{}, &mockLog{}, DefaultConfig(), nil)
	wBad, err := bad.ApplyFeedback(context.Background(), record(0.1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wGood[scoring.FeatureDistance] <= base {
		t.Errorf("quality 0.9: distance %f, want > %f", wGood[scoring.FeatureDistance], base)
	}
	if wBad[scoring.FeatureDistance] >= base {
		t.Errorf("quality 0.1: distance %f, want < %f", wBad[scoring.FeatureDistance], base)
	}
	for _, w := range []scoring.Weights{wGood, wBad} {
		if err := w.Validate(); err != nil {
			t.Errorf("result not normalized: %v", err)
		}
	}
}

// highScores is a realistic selection: every feature matched well, distance best.
func highScores(quality float64) feedback.Record {
	snap := map[scoring.Feature]float64{
		scoring.FeatureDistance:  0.95,
		scoring.FeatureSqft:      0.90,
		scoring.FeaturePrice:     0.88,
		scoring.FeatureBedrooms:  0.90,
		scoring.FeatureBathrooms: 0.85,
		scoring.FeatureYearBuilt: 0.80,
		scoring.FeatureType:      0.90,
	}
	return feedback.Record{ID: "r", Quality: quality, SubScores: []map[scoring.Feature]float64{snap, snap, snap}}
}

func TestApplyFeedback_SignSurvivesRenormalization(t *testing.T) {
	base := scoring.DefaultWeights()
	tests := []struct {
		name    string
		quality float64
		rises   bool
	}{
		{"well rated", 0.9, true},
		{"poorly rated", 0.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockWeights{}, &mockLog{}, DefaultConfig(), nil)
			w, err := svc.ApplyFeedback(context.Background(), highScores(tt.quality))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			d, b := w[scoring.FeatureDistance], base[scoring.FeatureDistance]
			if tt.rises && d <= b {
				t.Errorf("distance %f, want > %f", d, b)
			}
			if !tt.rises && d >= b {
				t.Errorf("distance %f, want < %f", d, b)
			}
			// year built scored worst, so it moves the other way.
			y, by := w[scoring.FeatureYearBuilt], base[scoring.FeatureYearBuilt]
			if tt.rises == (y >= by) {
				t.Errorf("year_built %f moved the same way as distance (base %f)", y, by)
			}
			if err := w.Validate(); err != nil {
				t.Errorf("result not normalized: %v", err)
			}
		})
	}
}

func TestStep_UniformScoresKeepWeights(t *testing.T) {
	svc := New(&mockWeights{}, &mockLog{}, DefaultConfig(), nil)
	snap := map[scoring.Feature]float64{}
	for _, f := range scoring.Features {
		snap[f] = 0.95
	}
	base := scoring.DefaultWeights()

	for _, q := range []float64{0.1, 0.9} {
		w := svc.Step(base, feedback.Record{Quality: q, SubScores: []map[scoring.Feature]float64{snap}})
		for _, f := range scoring.Features {
			if math.Abs(w[f]-base[f]) > 1e-12 {
				t.Errorf("quality %v: %s = %f, want %f", q, f, w[f], base[f])
			}
		}
	}
}

func TestApplyFeedback_PersistsAndAccumulates(t *testing.T) {
	store := &mockWeights{}
	svc := New(store, &mockLog{}, DefaultConfig(), nil)

	first, _ := svc.ApplyFeedback(context.Background(), record(1.0))
	second, _ := svc.ApplyFeedback(context.Background(), record(1.0))
	if store.saves != 2 {
		t.Errorf("saves = %d, want 2", store.saves)
	}
	if second[scoring.FeatureDistance] <= first[scoring.FeatureDistance] {
		t.Error("second step should build on the first")
	}
	if store.stored[scoring.FeatureDistance] != second[scoring.FeatureDistance] {
		t.Error("stored vector differs from returned vector")
	}
}

func TestApplyFeedback_RejectsInvalidQuality(t *testing.T) {
	store := &mockWeights{}
	svc := New(store, &mockLog{}, DefaultConfig(), nil)

	for _, q := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := svc.ApplyFeedback(context.Background(), record(q))
		if !errors.Is(err, domain.ErrInvalidFeedbackScore) {
			t.Errorf("quality %v: expected ErrInvalidFeedbackScore, got %v", q, err)
		}
	}
	if store.saves != 0 {
		t.Error("store must not be touched")
	}
}

func TestApplyFeedback_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	svc := New(&mockWeights{}, &mockLog{}, cfg, nil)

	if _, err := svc.ApplyFeedback(context.Background(), record(0.9)); !errors.Is(err, domain.ErrLearningDisabled) {
		t.Errorf("expected ErrLearningDisabled, got %v", err)
	}
	if _, err := svc.Train(context.Background()); !errors.Is(err, domain.ErrLearningDisabled) {
		t.Errorf("expected ErrLearningDisabled, got %v", err)
	}
}

func TestApplyFeedback_SaveError(t *testing.T) {
	store := &mockWeights{saveErr: errors.New("read-only")}
	svc := New(store, &mockLog{}, DefaultConfig(), nil)

	if _, err := svc.ApplyFeedback(context.Background(), record(0.9)); err == nil {
		t.Fatal("expected error")
	}
	w, _ := svc.Weights(context.Background())
	if w[scoring.FeatureDistance] != scoring.DefaultWeights()[scoring.FeatureDistance] {
		t.Error("failed save must not change the in-memory vector")
	}
}

func TestTrain_Deterministic(t *testing.T) {
	log := &mockLog{records: []feedback.Record{record(0.9), record(0.3), record(0.7), record(0.1), record(1.0)}}

	a := New(&mockWeights{}, log, DefaultConfig(), nil)
	b := New(&mockWeights{}, log, DefaultConfig(), nil)
	sa, err := a.Train(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sb, err := b.Train(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, f := range scoring.Features {
		if math.Float64bits(sa.After[f]) != math.Float64bits(sb.After[f]) {
			t.Errorf("%s: %v != %v", f, sa.After[f], sb.After[f])
		}
	}
	if sa.Records != 5 {
		t.Errorf("records = %d, want 5", sa.Records)
	}
}

func TestTrain_ReplaysFromBaseline(t *testing.T) {
	// Сохранённые веса не должны влиять на результат обучения.
	drifted := scoring.Weights{scoring.FeatureDistance: 0.5, scoring.FeatureSqft: 0.5}.Normalized()
	store := &mockWeights{stored: drifted}
	log := &mockLog{records: []feedback.Record{record(0.9)}}
	svc := New(store, log, DefaultConfig(), nil)

	sum, err := svc.Train(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Before[scoring.FeatureDistance] != drifted[scoring.FeatureDistance] {
		t.Error("Before should report the stored vector")
	}
	want := svc.Step(scoring.DefaultWeights(), record(0.9))
	for _, f := range scoring.Features {
		if sum.After[f] != want[f] {
			t.Errorf("%s = %v, want %v", f, sum.After[f], want[f])
		}
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
}

func TestTrain_EmptyLogKeepsWeights(t *testing.T) {
	store := &mockWeights{}
	svc := New(store, &mockLog{}, DefaultConfig(), nil)

	sum, err := svc.Train(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Records != 0 || store.saves != 0 {
		t.Errorf("records=%d saves=%d, want 0/0", sum.Records, store.saves)
	}
}

func TestStep_ClampsToBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LearningRate = 10
	svc := New(&mockWeights{}, &mockLog{}, cfg, nil)

	w := scoring.DefaultWeights()
	for range 20 {
		w = svc.Step(w, record(0.0))
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("not normalized: %v", err)
	}
	for _, f := range scoring.Features {
		if w[f] <= 0 {
			t.Errorf("%s collapsed to %f", f, w[f])
		}
	}
}
