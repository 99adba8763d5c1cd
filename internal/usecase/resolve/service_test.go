package resolve

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/property"
)

// --- Mocks ---

type mockProvider struct {
	name  string
	data  *property.Property
	err   error
	panic bool
	delay time.Duration
	calls atomic.Int32
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Fetch(ctx context.Context, _ property.Query) (*property.Property, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.panic {
		panic("boom")
	}
	if m.data == nil {
		return nil, m.err
	}
	c := m.data.Clone()
	return &c, m.err
}

func ptr[T any](v T) *T { return &v }

func src(p Provider) Source { return Source{Provider: p, Enabled: true} }

var query = property.Query{Address: property.Address{Street: "1 Main St", City: "Phoenix", State: "AZ"}}

func newService(t *testing.T, sources []Source, cfg Config) *Service {
	t.Helper()
	s, err := New(sources, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// --- Tests ---

func TestNew_NoEnabledProviders(t *testing.T) {
	_, err := New([]Source{{Provider: &mockProvider{name: "a"}}}, Config{}, nil)
	if !errors.Is(err, domain.ErrNoProviders) {
		t.Fatalf("expected ErrNoProviders, got %v", err)
	}
	if _, err := New(nil, Config{}, nil); !errors.Is(err, domain.ErrNoProviders) {
		t.Fatalf("expected ErrNoProviders for empty list, got %v", err)
	}
}

func TestNew_UnknownMode(t *testing.T) {
	if _, err := New([]Source{src(&mockProvider{name: "a"})}, Config{Mode: "parallel"}, nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestResolve_InvalidQuery(t *testing.T) {
	s := newService(t, []Source{src(&mockProvider{name: "a"})}, Config{})
	if _, err := s.Resolve(context.Background(), property.Query{}); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestResolve_HigherTrustWins(t *testing.T) {
	a := &mockProvider{name: "attom", data: &property.Property{SquareFeet: ptr(1500)}}
	b := &mockProvider{name: "estated", data: &property.Property{SquareFeet: ptr(2000), Bedrooms: ptr(3)}}
	s := newService(t, []Source{src(a), src(b)}, Config{})

	p, err := s.Resolve(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *p.SquareFeet != 1500 || p.SourceOf(property.FieldSquareFeet) != "attom" {
		t.Errorf("sqft = %d from %s, want 1500 from attom", *p.SquareFeet, p.SourceOf(property.FieldSquareFeet))
	}
	if *p.Bedrooms != 3 || p.SourceOf(property.FieldBedrooms) != "estated" {
		t.Errorf("bedrooms = %d from %s, want 3 from estated", *p.Bedrooms, p.SourceOf(property.FieldBedrooms))
	}
	if p.SourceOf(property.FieldStreet) != property.SourceQuery {
		t.Errorf("street provenance = %s, want query", p.SourceOf(property.FieldStreet))
	}
	if p.SourceOf(property.FieldYearBuilt) != property.SourceUnset {
		t.Errorf("year built provenance = %s, want unset", p.SourceOf(property.FieldYearBuilt))
	}
}

func TestResolve_InvalidValuesFallThrough(t *testing.T) {
	a := &mockProvider{name: "a", data: &property.Property{
		SquareFeet: ptr(0),
		YearBuilt:  ptr(1066),
		Address:    property.Address{Zip: "N/A"},
		Features:   []string{"", "none"},
	}}
	b := &mockProvider{name: "b", data: &property.Property{
		SquareFeet: ptr(1600),
		YearBuilt:  ptr(1998),
		Address:    property.Address{Zip: "85004"},
		Features:   []string{"pool"},
	}}
	s := newService(t, []Source{src(a), src(b)}, Config{})

	p, _ := s.Resolve(context.Background(), query)
	for _, f := range []property.Field{property.FieldSquareFeet, property.FieldYearBuilt, property.FieldZip, property.FieldFeatures} {
		if got := p.SourceOf(f); got != "b" {
			t.Errorf("%s from %q, want b", f, got)
		}
	}
}

func TestResolve_FailuresAreAbsentData(t *testing.T) {
	failing := &mockProvider{name: "down", err: errors.New("503")}
	panicking := &mockProvider{name: "panics", panic: true}
	good := &mockProvider{name: "good", data: &property.Property{SquareFeet: ptr(1400)}}
	s := newService(t, []Source{src(failing), src(panicking), src(good)}, Config{})

	p, err := s.Resolve(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SourceOf(property.FieldSquareFeet) != "good" {
		t.Errorf("sqft from %s, want good", p.SourceOf(property.FieldSquareFeet))
	}
	if failing.calls.Load() != 1 || panicking.calls.Load() != 1 {
		t.Error("failing providers should still be called once")
	}
}

func TestResolve_NothingFoundEstimationDisabled(t *testing.T) {
	empty := &mockProvider{name: "empty"}
	down := &mockProvider{name: "down", err: errors.New("timeout")}
	s := newService(t, []Source{src(empty), src(down)}, Config{})

	p, err := s.Resolve(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range property.OptionalFields {
		if property.IsSet(&p, f) {
			t.Errorf("%s should be unset", f)
		}
		if p.SourceOf(f) != property.SourceUnset {
			t.Errorf("%s provenance = %s, want unset", f, p.SourceOf(f))
		}
	}
}

func TestResolve_Gating(t *testing.T) {
	full := &property.Property{SquareFeet: ptr(1500), Bedrooms: ptr(3)}

	t.Run("disabled", func(t *testing.T) {
		off := &mockProvider{name: "off", data: full}
		on := &mockProvider{name: "on"}
		s := newService(t, []Source{{Provider: off}, src(on)}, Config{})
		_, _ = s.Resolve(context.Background(), query)
		if off.calls.Load() != 0 {
			t.Error("disabled provider was called")
		}
	})

	t.Run("region", func(t *testing.T) {
		az := &mockProvider{name: "maricopa", data: full}
		base := &mockProvider{name: "base"}
		s := newService(t, []Source{src(base), {Provider: az, Enabled: true, Regions: []string{"az"}}}, Config{})

		ca := query
		ca.Address.State = "CA"
		_, _ = s.Resolve(context.Background(), ca)
		if az.calls.Load() != 0 {
			t.Error("region-restricted provider called outside its region")
		}
		_, _ = s.Resolve(context.Background(), query)
		if az.calls.Load() != 1 {
			t.Errorf("region-restricted provider calls = %d, want 1", az.calls.Load())
		}
	})

	t.Run("targets filled", func(t *testing.T) {
		first := &mockProvider{name: "first", data: full}
		beds := &mockProvider{name: "beds", data: &property.Property{Bedrooms: ptr(4)}}
		s := newService(t, []Source{
			src(first),
			{Provider: beds, Enabled: true, Targets: []property.Field{property.FieldBedrooms}},
		}, Config{})
		_, _ = s.Resolve(context.Background(), query)
		if beds.calls.Load() != 0 {
			t.Error("provider called although its targets were already filled")
		}
	})

	t.Run("required short-circuit", func(t *testing.T) {
		first := &mockProvider{name: "first", data: full}
		second := &mockProvider{name: "second", data: &property.Property{YearBuilt: ptr(1990)}}
		s := newService(t, []Source{src(first), src(second)}, Config{
			Required: []property.Field{property.FieldSquareFeet, property.FieldBedrooms},
		})
		p, _ := s.Resolve(context.Background(), query)
		if second.calls.Load() != 0 || p.YearBuilt != nil {
			t.Error("chain should stop once required fields are filled")
		}
	})
}

func TestResolve_Estimation(t *testing.T) {
	a := &mockProvider{name: "a", data: &property.Property{SquareFeet: ptr(1800), Bathrooms: ptr(2.5)}}
	s := newService(t, []Source{src(a)}, Config{Estimation: EstimationConfig{Enabled: true}})

	p, _ := s.Resolve(context.Background(), query)
	if p.Bedrooms == nil || *p.Bedrooms != 3 {
		t.Fatalf("bedrooms = %v, want estimated 3", p.Bedrooms)
	}
	if p.SourceOf(property.FieldBedrooms) != property.SourceEstimated {
		t.Errorf("bedrooms provenance = %s", p.SourceOf(property.FieldBedrooms))
	}
	if *p.Bathrooms != 2.5 || p.SourceOf(property.FieldBathrooms) != "a" {
		t.Errorf("provider bathrooms must not be replaced by the estimate")
	}
}

func TestResolve_EstimationWithoutSqft(t *testing.T) {
	a := &mockProvider{name: "a"}
	s := newService(t, []Source{src(a)}, Config{Estimation: EstimationConfig{Enabled: true}})
	p, _ := s.Resolve(context.Background(), query)
	if p.Bedrooms != nil || p.Bathrooms != nil {
		t.Error("estimator must not run without square footage")
	}
}

// For every provider ordering, each field's provenance names the first
// provider in that order with a valid value.
func TestResolve_ProvenanceForAllOrderings(t *testing.T) {
	data := map[string]*property.Property{
		"x": {SquareFeet: ptr(0), Bedrooms: ptr(3)},
		"y": {SquareFeet: ptr(1500), YearBuilt: ptr(2001)},
		"z": {SquareFeet: ptr(1700), Bedrooms: ptr(4), YearBuilt: ptr(1990)},
	}
	orders := [][]string{
		{"x", "y", "z"}, {"x", "z", "y"}, {"y", "x", "z"},
		{"y", "z", "x"}, {"z", "x", "y"}, {"z", "y", "x"},
	}
	fields := []property.Field{property.FieldSquareFeet, property.FieldBedrooms, property.FieldYearBuilt}

	for _, mode := range []Mode{ModeSequential, ModeConcurrent} {
		for _, order := range orders {
			var sources []Source
			for _, name := range order {
				sources = append(sources, src(&mockProvider{name: name, data: data[name]}))
			}
			s := newService(t, sources, Config{Mode: mode})
			p, _ := s.Resolve(context.Background(), query)

			for _, f := range fields {
				var want string
				for _, name := range order {
					if property.IsValid(data[name], f) {
						want = name
						break
					}
				}
				if got := string(p.SourceOf(f)); got != want {
					t.Errorf("%s %v: %s from %q, want %q", mode, order, f, got, want)
				}
			}
		}
	}
}

func TestResolve_ConcurrentIgnoresArrivalOrder(t *testing.T) {
	slow := &mockProvider{name: "slow", delay: 30 * time.Millisecond, data: &property.Property{SquareFeet: ptr(1500)}}
	fast := &mockProvider{name: "fast", data: &property.Property{SquareFeet: ptr(9999), Bedrooms: ptr(2)}}
	s := newService(t, []Source{src(slow), src(fast)}, Config{Mode: ModeConcurrent})

	p, _ := s.Resolve(context.Background(), query)
	if *p.SquareFeet != 1500 || p.SourceOf(property.FieldSquareFeet) != "slow" {
		t.Errorf("sqft = %d from %s, want slow provider's value", *p.SquareFeet, p.SourceOf(property.FieldSquareFeet))
	}
	if p.SourceOf(property.FieldBedrooms) != "fast" {
		t.Errorf("bedrooms from %s, want fast", p.SourceOf(property.FieldBedrooms))
	}
}

func TestResolve_ConcurrentRegionFromHigherTrust(t *testing.T) {
	// state is unknown in the query but filled by the first provider
	first := &mockProvider{name: "first", data: &property.Property{Address: property.Address{State: "AZ"}}}
	az := &mockProvider{name: "maricopa", data: &property.Property{SquareFeet: ptr(1500)}}
	s := newService(t, []Source{src(first), {Provider: az, Enabled: true, Regions: []string{"AZ"}}},
		Config{Mode: ModeConcurrent})

	p, _ := s.Resolve(context.Background(), property.Query{ParcelID: "123-45-678"})
	if p.SourceOf(property.FieldSquareFeet) != "maricopa" {
		t.Errorf("sqft from %s, want maricopa", p.SourceOf(property.FieldSquareFeet))
	}
}

func TestMerge(t *testing.T) {
	s := newService(t, []Source{src(&mockProvider{name: "a"})}, Config{Estimation: EstimationConfig{Enabled: true}})
	p := s.Merge("cand-1", []Payload{
		{Source: "mls", Data: &property.Property{SquareFeet: ptr(1450), SalePrice: ptr(0.0)}},
		{Source: "records", Data: &property.Property{SquareFeet: ptr(1500), SalePrice: ptr(300_000.0)}},
		{Source: "nil"},
	})
	if p.ID != "cand-1" {
		t.Errorf("ID = %q", p.ID)
	}
	if *p.SquareFeet != 1450 || p.SourceOf(property.FieldSquareFeet) != "mls" {
		t.Errorf("sqft = %d from %s", *p.SquareFeet, p.SourceOf(property.FieldSquareFeet))
	}
	if *p.SalePrice != 300_000 || p.SourceOf(property.FieldSalePrice) != "records" {
		t.Errorf("sale price = %v from %s", *p.SalePrice, p.SourceOf(property.FieldSalePrice))
	}
	if p.Bedrooms != nil {
		t.Error("Merge must not estimate")
	}
}
