package rank

import (
	"testing"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func cand(id string, score float64, dist *float64, sold *time.Time) Candidate {
	return Candidate{
		Property: &property.Property{ID: id, SaleDate: sold},
		Result:   scoring.Result{CandidateID: id, Score: score, DistanceMiles: dist},
	}
}

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Result.CandidateID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelect_OrderAndTieBreaks(t *testing.T) {
	recent := now.AddDate(0, -1, 0)
	older := now.AddDate(0, -3, 0)
	in := []Candidate{
		cand("e", 0.80, nil, &recent),
		cand("d", 0.80, ptr(1.0), nil),
		cand("c", 0.80, ptr(1.0), &older),
		cand("b", 0.80, ptr(1.0), &recent),
		cand("a", 0.90, ptr(3.0), &older),
		cand("f", 0.80, ptr(0.5), &older),
		cand("g", 0.80, ptr(1.0), &recent),
	}
	got := New(nil).Select(&property.Property{ID: "subject"}, in, nil, Options{}, now)
	want := []string{"a", "f", "b", "g", "c", "d", "e"}
	if !equal(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestSelect_Truncates(t *testing.T) {
	var in []Candidate
	for _, id := range []string{"a", "b", "c", "d"} {
		in = append(in, cand(id, 0.9, ptr(1.0), nil))
	}
	got := New(nil).Select(&property.Property{}, in, nil, Options{MaxComps: 2}, now)
	if !equal(ids(got), []string{"a", "b"}) {
		t.Errorf("got %v", ids(got))
	}
}

func TestSelect_Ceilings(t *testing.T) {
	stale := now.AddDate(0, 0, -200)
	fresh := now.AddDate(0, 0, -30)
	in := []Candidate{
		cand("far", 0.95, ptr(6.0), &fresh),
		cand("stale", 0.95, ptr(1.0), &stale),
		cand("weak", 0.50, ptr(1.0), &fresh),
		cand("subject", 1.0, ptr(0.0), &fresh),
		cand("ok", 0.75, ptr(1.0), &fresh),
		cand("unknown", 0.75, nil, nil),
	}
	opts := Options{MaxDistanceMiles: 5, MaxAgeDays: 180, MinScore: 0.7, MaxComps: 10}
	got := New(nil).Select(&property.Property{ID: "subject"}, in, nil, opts, now)
	if !equal(ids(got), []string{"ok", "unknown"}) {
		t.Errorf("got %v, want [ok unknown]", ids(got))
	}
}

func TestSelect_EmptyIsNotAnError(t *testing.T) {
	got := New(nil).Select(&property.Property{}, nil, nil, Options{MinScore: 0.7}, now)
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
	got = New(nil).Select(&property.Property{}, []Candidate{cand("x", 0.1, nil, nil)}, nil, Options{MinScore: 0.7}, now)
	if len(got) != 0 {
		t.Errorf("got %v, want empty", ids(got))
	}
}

func TestSelect_HardGuidelineBeatsScore(t *testing.T) {
	subject := &property.Property{ID: "s", Location: &property.Coordinates{Lat: 33.5, Lon: -112.0}}
	g, err := guideline.New("within 1 mile", guideline.Criteria{guideline.KeyMaxDistanceMiles: 1.0}, guideline.PriorityHard, now)
	if err != nil {
		t.Fatal(err)
	}
	compiled := guideline.Compile([]guideline.Guideline{g}, subject, now, guideline.DefaultBiasScale)

	near := Candidate{
		Property: &property.Property{ID: "near", Location: &property.Coordinates{Lat: 33.505, Lon: -112.0}},
		Result:   scoring.Result{CandidateID: "near", Score: 0.5},
	}
	far := Candidate{
		Property: &property.Property{ID: "far", Location: &property.Coordinates{Lat: 33.52, Lon: -112.0}},
		Result:   scoring.Result{CandidateID: "far", Score: 1.0},
	}
	got := New(nil).Select(subject, []Candidate{far, near}, compiled.Filters, Options{}, now)
	if !equal(ids(got), []string{"near"}) {
		t.Errorf("got %v, want [near]", ids(got))
	}
}
