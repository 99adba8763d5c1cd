package guideline

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestParse(t *testing.T) {
	p := NewParser(nil)
	tests := []struct {
		text     string
		want     Criteria
		priority float64
	}{
		{
			"Comparables should be within 1 mile and sold within 6 months",
			Criteria{KeyMaxDistanceMiles: 1, KeyMaxAgeMonths: 6},
			PriorityPreferred,
		},
		{
			"Prefer properties with similar lot sizes (within 20%)",
			Criteria{KeyLotSizeTolerancePercent: 20},
			PriorityPreferred,
		},
		{
			"Bedrooms must match exactly, bathrooms can vary by 0.5",
			Criteria{KeyBedroomsExactMatch: 1, KeyBathroomsTolerance: 0.5},
			PriorityHard,
		},
		{
			"Price should be within 15% of subject property",
			Criteria{KeyPriceTolerancePercent: 15},
			PriorityPreferred,
		},
		{
			"Comps within 2.5 miles are required",
			Criteria{KeyMaxDistanceMiles: 2.5},
			PriorityHard,
		},
		{
			"Bedrooms within 1 of the subject",
			Criteria{KeyBedroomsTolerance: 1},
			PriorityNormal,
		},
		{
			"Use sales from the past 1 year",
			Criteria{KeyMaxAgeMonths: 12},
			PriorityNormal,
		},
		{
			"3 bedrooms within 1 mile",
			Criteria{KeyMaxDistanceMiles: 1},
			PriorityNormal,
		},
		{
			"Only the same number of bathrooms",
			Criteria{KeyBathroomsExactMatch: 1},
			PriorityHard,
		},
		{
			"Look at nice houses with pools",
			Criteria{},
			PriorityNormal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, prio := p.Parse(tt.text)
			if prio != tt.priority {
				t.Errorf("priority = %.1f, want %.1f", prio, tt.priority)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("criteria = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestParse_FirstRuleInGroupWins(t *testing.T) {
	rules := []Rule{
		{Name: "a", Group: "g", Trigger: DefaultRules()[6].Trigger, Key: KeyMaxDistanceMiles, Extract: firstNumber},
		{Name: "b", Group: "g", Trigger: DefaultRules()[6].Trigger, Key: KeyMaxDistanceMiles,
			Extract: func([]string) (float64, bool) { return 99, true }},
	}
	got, _ := NewParser(rules).Parse("within 3 miles")
	if got[KeyMaxDistanceMiles] != 3 {
		t.Errorf("got %v, want first rule's value", got)
	}
}

func TestNew(t *testing.T) {
	g, err := New("  within 1 mile ", Criteria{KeyMaxDistanceMiles: 1}, 0, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Description != "within 1 mile" || g.Priority != PriorityNormal || !g.CreatedAt.Equal(now) {
		t.Errorf("g = %+v", g)
	}
	if g.IsHard() || g.IsInert() {
		t.Errorf("IsHard=%v IsInert=%v", g.IsHard(), g.IsInert())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		desc     string
		criteria Criteria
		priority float64
	}{
		{"empty", "", nil, 1},
		{"unknown key", "x", Criteria{"color": 1}, 1},
		{"negative value", "x", Criteria{KeyMaxDistanceMiles: -1}, 1},
		{"priority too high", "x", nil, 3},
		{"priority negative", "x", nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.desc, tt.criteria, tt.priority, now)
			if !errors.Is(err, domain.ErrInvalidGuideline) {
				t.Errorf("expected ErrInvalidGuideline, got %v", err)
			}
		})
	}
}

func TestNew_InertKeepsDescription(t *testing.T) {
	g, err := New("nice houses", nil, 0, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.IsInert() || g.Criteria == nil {
		t.Errorf("expected inert guideline with empty criteria, got %+v", g)
	}
}

func TestCriteria_JSON(t *testing.T) {
	in := Criteria{KeyBedroomsExactMatch: 1, KeyMaxDistanceMiles: 1.5}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"bedrooms_exact_match":true,"max_distance_miles":1.5}` {
		t.Errorf("json = %s", b)
	}
	var out Criteria
	if err := json.Unmarshal([]byte(`{"bedrooms_exact_match":true,"bathrooms_exact_match":false,"max_age_months":6}`), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Flag(KeyBedroomsExactMatch) || out.Flag(KeyBathroomsExactMatch) || out[KeyMaxAgeMonths] != 6 {
		t.Errorf("out = %v", out)
	}
	if err := json.Unmarshal([]byte(`{"max_age_months":"six"}`), &out); err == nil {
		t.Error("expected error for string value")
	}
}

func subject() *property.Property {
	return &property.Property{
		ID:          "subject",
		Location:    &property.Coordinates{Lat: 33.5, Lon: -112.0},
		Bedrooms:    ptr(3),
		Bathrooms:   ptr(2.0),
		LotSizeSqft: ptr(6000.0),
		ListPrice:   ptr(300_000.0),
	}
}

func TestCompile_HardDistance(t *testing.T) {
	g, _ := New("within 1 mile", Criteria{KeyMaxDistanceMiles: 1}, PriorityHard, now)
	c := Compile([]Guideline{g}, subject(), now, DefaultBiasScale)
	if len(c.Filters) != 1 || len(c.Bias) != 0 {
		t.Fatalf("filters=%d bias=%v", len(c.Filters), c.Bias)
	}
	near := &property.Property{Location: &property.Coordinates{Lat: 33.505, Lon: -112.0}}
	far := &property.Property{Location: &property.Coordinates{Lat: 33.6, Lon: -112.0}}
	unknown := &property.Property{}
	if ok, _ := c.Filters.Pass(near); !ok {
		t.Error("near candidate should pass")
	}
	if ok, f := c.Filters.Pass(far); ok || f == nil || f.Key != KeyMaxDistanceMiles {
		t.Errorf("far candidate should fail on distance, got ok=%v f=%v", ok, f)
	}
	if ok, _ := c.Filters.Pass(unknown); !ok {
		t.Error("candidate without location should pass")
	}
}

func TestCompile_HardFilters(t *testing.T) {
	crit := Criteria{
		KeyMaxAgeMonths:            6,
		KeyLotSizeTolerancePercent: 20,
		KeyBedroomsExactMatch:      1,
		KeyBathroomsTolerance:      0.5,
		KeyPriceTolerancePercent:   10,
	}
	g, _ := New("strict", crit, PriorityHard, now)
	c := Compile([]Guideline{g}, subject(), now, DefaultBiasScale)

	good := func() *property.Property {
		return &property.Property{
			SaleDate:    ptr(now.AddDate(0, -2, 0)),
			LotSizeSqft: ptr(6500.0),
			Bedrooms:    ptr(3),
			Bathrooms:   ptr(2.5),
			SalePrice:   ptr(290_000.0),
		}
	}
	if ok, f := c.Filters.Pass(good()); !ok {
		t.Fatalf("good candidate failed %v", f)
	}

	tests := []struct {
		name   string
		mutate func(p *property.Property)
		key    Key
	}{
		{"stale", func(p *property.Property) { p.SaleDate = ptr(now.AddDate(0, -8, 0)) }, KeyMaxAgeMonths},
		{"lot", func(p *property.Property) { p.LotSizeSqft = ptr(9000.0) }, KeyLotSizeTolerancePercent},
		{"beds", func(p *property.Property) { p.Bedrooms = ptr(4) }, KeyBedroomsExactMatch},
		{"baths", func(p *property.Property) { p.Bathrooms = ptr(3.0) }, KeyBathroomsTolerance},
		{"price", func(p *property.Property) { p.SalePrice = ptr(350_000.0) }, KeyPriceTolerancePercent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good()
			tt.mutate(p)
			ok, f := c.Filters.Pass(p)
			if ok || f.Key != tt.key {
				t.Errorf("ok=%v failing=%v, want %s", ok, f, tt.key)
			}
		})
	}
}

func TestCompile_SoftBiasIsAdditive(t *testing.T) {
	g1, _ := New("prefer close", Criteria{KeyMaxDistanceMiles: 1}, PriorityPreferred, now)
	g2, _ := New("close-ish", Criteria{KeyMaxDistanceMiles: 2, KeyBedroomsTolerance: 1}, PriorityNormal, now)
	g3, _ := New("recent", Criteria{KeyMaxAgeMonths: 3}, PriorityNormal, now)
	c := Compile([]Guideline{g1, g2, g3}, subject(), now, DefaultBiasScale)
	if len(c.Filters) != 0 {
		t.Fatalf("soft guidelines must not filter, got %d", len(c.Filters))
	}
	if math.Abs(c.Bias[scoring.FeatureDistance]-0.25) > 1e-12 {
		t.Errorf("distance bias = %f, want 0.25", c.Bias[scoring.FeatureDistance])
	}
	if math.Abs(c.Bias[scoring.FeatureBedrooms]-0.1) > 1e-12 {
		t.Errorf("bedroom bias = %f, want 0.1", c.Bias[scoring.FeatureBedrooms])
	}
	if len(c.Bias) != 2 {
		t.Errorf("age criteria must not bias any feature: %v", c.Bias)
	}
}

func TestCompile_ClearedFlagImposesNothing(t *testing.T) {
	g, _ := New("x", Criteria{KeyBedroomsExactMatch: 0}, PriorityHard, now)
	if c := Compile([]Guideline{g}, subject(), now, DefaultBiasScale); len(c.Filters) != 0 {
		t.Errorf("filters = %d", len(c.Filters))
	}
}
