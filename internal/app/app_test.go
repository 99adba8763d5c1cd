package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/compdex/internal/config"
	"github.com/kailas-cloud/compdex/internal/domain"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/usage"
	compsuc "github.com/kailas-cloud/compdex/internal/usecase/comps"
	healthuc "github.com/kailas-cloud/compdex/internal/usecase/health"
)

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	sold := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	data := fmt.Sprintf(`
properties:
  - parcel_id: SUBJ-1
    address: {street: 1 Oak St, city: Austin, state: TX, zip: "78701"}
    location: {lat: 30.2672, lon: -97.7431}
    square_feet: 1800
    bedrooms: 3
    bathrooms: 2
    year_built: 2000
    property_type: single family
    list_price: 400000
  - id: comp-a
    address: {street: 3 Oak St, city: Austin, state: TX}
    location: {lat: 30.2680, lon: -97.7431}
    square_feet: 1790
    bedrooms: 3
    bathrooms: 2
    year_built: 2001
    property_type: single family
    sale_price: 402000
    sale_date: %[1]s
  - id: comp-b
    address: {street: 9 Oak St, city: Austin, state: TX}
    location: {lat: 30.2690, lon: -97.7440}
    square_feet: 1820
    bedrooms: 3
    bathrooms: 2
    year_built: 1999
    property_type: single family
    sale_price: 398000
    sale_date: %[1]s
`, sold)
	path := filepath.Join(dir, "mls.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		HTTP:     config.HTTPConfig{Port: 8080},
		Database: config.DatabaseConfig{Driver: config.DriverFile, Dir: filepath.Join(dir, "data")},
		Providers: []config.ProviderConfig{
			{Name: "mls", Kind: config.KindFixture, Path: writeFixture(t, dir)},
		},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return cfg
}

func TestNewStore_UnknownDriver(t *testing.T) {
	if _, err := NewStore(config.DatabaseConfig{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	res, err := a.Comps.FindComparables(ctx, property.Query{ParcelID: "SUBJ-1"}, compsuc.Options{})
	if err != nil {
		t.Fatalf("FindComparables: %v", err)
	}
	if res.Subject.SquareFeet == nil || *res.Subject.SquareFeet != 1800 {
		t.Errorf("subject not resolved: %+v", res.Subject)
	}
	if res.SelectionID == "" {
		t.Fatal("selection id is empty")
	}
	if len(res.Comparables) != 2 {
		t.Fatalf("got %d comparables, want 2", len(res.Comparables))
	}
	for _, c := range res.Comparables {
		if c.Property.ID == res.Subject.ID {
			t.Error("subject returned as its own comparable")
		}
	}

	if _, err := a.Comps.RecordFeedback(ctx, res.SelectionID, 1.5, nil); !errors.Is(err, domain.ErrInvalidFeedbackScore) {
		t.Errorf("expected ErrInvalidFeedbackScore, got %v", err)
	}
	if _, err := a.Comps.RecordFeedback(ctx, res.SelectionID, 0.9, nil); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}

	sum, err := a.Comps.Train(ctx)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if sum.Records != 1 {
		t.Errorf("trained on %d records, want 1", sum.Records)
	}

	est := a.Comps.EstimateValue(&res.Subject, res.Comparables)
	if est.CompCount != 2 || est.Estimate <= 0 {
		t.Errorf("estimate = %+v", est)
	}

	if report := a.Health.Check(ctx); report.Status != healthuc.Healthy {
		t.Errorf("health = %+v", report)
	}
}

func TestBuild_GuidelinesPersistAcrossInstances(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := a.Comps.AddGuideline(ctx, "same beds", domgl.Criteria{domgl.KeyBedroomsExactMatch: 1}, domgl.PriorityHard); err != nil {
		t.Fatalf("AddGuideline: %v", err)
	}
	a.Close()

	b, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer b.Close()
	list, err := b.Comps.ListGuidelines(ctx)
	if err != nil || len(list) != 1 || !list[0].IsHard() {
		t.Errorf("guidelines after restart = %+v, %v", list, err)
	}
}

func TestWire_InvalidWeights(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scoring.Weights = map[string]float64{"garage": 1}

	store, err := NewStore(cfg.Database)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Wire(context.Background(), store, cfg, nil); err == nil {
		t.Fatal("expected error for unknown feature weight")
	}
}

func TestWire_ExplicitCandidates(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Candidates = []config.ProviderConfig{
		{Name: "archive", Kind: config.KindFixture, Path: cfg.Providers[0].Path},
		{Name: "disabled", Kind: config.KindFixture, Path: "missing.yaml", Enabled: &off},
	}

	store, err := NewStore(cfg.Database)
	if err != nil {
		t.Fatal(err)
	}
	a, err := Wire(context.Background(), store, cfg, nil)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	res, err := a.Comps.FindComparables(context.Background(), property.Query{ParcelID: "SUBJ-1"}, compsuc.Options{})
	if err != nil || len(res.Comparables) != 2 {
		t.Errorf("got %d comparables, %v", len(res.Comparables), err)
	}
}

func TestWire_UsageWithoutInterpreter(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	r := a.Usage.GetReport(context.Background(), usage.PeriodMonth)
	if r.Tokens != 0 || r.Budget.TokensRemaining != -1 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestWire_InterpreterBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"index":   0,
				"message": map[string]any{"role": "assistant", "content": `{"max_distance_miles": 2}`},
			}},
			"usage": map[string]any{"total_tokens": 200},
		})
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Guidelines.Interpreter = config.InterpreterConfig{
		Enabled:         true,
		APIKey:          "test-key",
		BaseURL:         srv.URL,
		Model:           "test-model",
		TimeoutSec:      5,
		DailyTokenLimit: 250,
		BudgetAction:    config.BudgetActionReject,
	}
	ctx := context.Background()

	a, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g, err := a.Comps.AddInstruction(ctx, "keep it walkable")
	if err != nil || g.IsInert() {
		t.Fatalf("interpreted guideline = %+v, %v", g, err)
	}
	r := a.Usage.GetReport(ctx, usage.PeriodDay)
	if r.Tokens != 200 || r.Budget.TokensRemaining != 50 || r.Budget.Exhausted {
		t.Errorf("after one call: %+v", r)
	}
	a.Close()

	// Counters survive a restart; the second call spends past the cap.
	b, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer b.Close()
	if r := b.Usage.GetReport(ctx, usage.PeriodDay); r.Tokens != 200 {
		t.Fatalf("tokens after restart = %d, want 200", r.Tokens)
	}
	if _, err := b.Comps.AddInstruction(ctx, "keep it walkable"); err != nil {
		t.Fatal(err)
	}
	g, err = b.Comps.AddInstruction(ctx, "keep it walkable")
	if err != nil || !g.IsInert() {
		t.Errorf("over-budget instruction should be stored inert, got %+v, %v", g, err)
	}
	if r := b.Usage.GetReport(ctx, usage.PeriodDay); !r.Budget.Exhausted {
		t.Errorf("expected exhausted budget, got %+v", r.Budget)
	}
}
