package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/compdex/internal/domain/property"
)

// fixtureFile is the on-disk layout of a fixture provider.
type fixtureFile struct {
	Properties []property.Property `yaml:"properties"`
}

// Fixture serves properties from a YAML file. It backs local development
// and tests, and stands in for a provider that exports periodic dumps.
type Fixture struct {
	name    string
	regions []string
	records []property.Property
	byID    map[string]int
}

// LoadFixture reads a fixture file.
func LoadFixture(name, path string, regions []string) (*Fixture, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return ParseFixture(name, data, regions)
}

// ParseFixture decodes fixture YAML. Records without an id get one
// derived from their parcel id or address.
func ParseFixture(name string, data []byte, regions []string) (*Fixture, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", name, err)
	}
	f := &Fixture{name: name, byID: make(map[string]int, len(file.Properties))}
	for _, r := range regions {
		f.regions = append(f.regions, strings.ToUpper(r))
	}
	for _, p := range file.Properties {
		p.ID = identity(&p)
		if p.ID == "" {
			return nil, fmt.Errorf("fixture %s: record without parcel id or address", name)
		}
		if _, dup := f.byID[p.ID]; dup {
			return nil, fmt.Errorf("fixture %s: duplicate record %q", name, p.ID)
		}
		p.Provenance = nil
		f.byID[p.ID] = len(f.records)
		for _, alt := range []string{
			(property.Query{ParcelID: p.ParcelID}).Identity(),
			(property.Query{Address: p.Address}).Identity(),
		} {
			if _, taken := f.byID[alt]; alt != "" && !taken {
				f.byID[alt] = len(f.records)
			}
		}
		f.records = append(f.records, p)
	}
	return f, nil
}

// Name implements resolve.Provider.
func (f *Fixture) Name() string { return f.name }

// Fetch implements resolve.Provider. A record matches by its id, its
// parcel id or its normalized address.
func (f *Fixture) Fetch(_ context.Context, q property.Query) (*property.Property, error) {
	i, ok := f.byID[q.Identity()]
	if !ok {
		return nil, nil
	}
	p := f.records[i].Clone()
	return &p, nil
}

// Candidates implements comps.CandidateSource. Records with a known
// location outside the radius are skipped; records without one are kept
// for the ranker to judge.
func (f *Fixture) Candidates(_ context.Context, subject *property.Property, radiusMiles float64) ([]property.Property, error) {
	if !f.inRegion(subject.Address.State) {
		return nil, nil
	}
	var out []property.Property
	for i := range f.records {
		rec := &f.records[i]
		if rec.ID == subject.ID || rec.SalePrice == nil {
			continue
		}
		if d, ok := subject.DistanceMiles(rec); ok && radiusMiles > 0 && d > radiusMiles {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Len returns the number of records.
func (f *Fixture) Len() int { return len(f.records) }

func (f *Fixture) inRegion(state string) bool {
	if len(f.regions) == 0 || state == "" {
		return true
	}
	state = strings.ToUpper(state)
	for _, r := range f.regions {
		if r == state {
			return true
		}
	}
	return false
}
