// Package resolve merges property data from ranked providers without ever
// overwriting a value supplied by a higher-trust source.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/metrics"
)

// Mode selects how providers are called.
type Mode string

// Resolution modes.
const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// Source is one provider in trust order plus its enrichment preconditions.
type Source struct {
	Provider Provider
	Enabled  bool
	// Regions restricts the provider to these state codes; empty means everywhere.
	Regions []string
	// Targets are the fields the provider is consulted for; empty means any optional field.
	Targets []property.Field
}

// EstimationConfig controls the square-footage room estimator.
type EstimationConfig struct {
	Enabled bool
	Tiers   []property.RoomTier
}

// Config holds resolver settings.
type Config struct {
	Mode Mode
	// Required fields stop a sequential chain early once all are filled.
	Required   []property.Field
	Estimation EstimationConfig
}

// Payload is one provider's contribution to a merge.
type Payload struct {
	Source string
	Data   *property.Property
}

// Service resolves properties across ranked providers.
type Service struct {
	sources []Source
	cfg     Config
	logger  *zap.Logger
}

// New creates a resolver. Sources must be in descending trust order.
// At least one source must be enabled.
func New(sources []Source, cfg Config, logger *zap.Logger) (*Service, error) {
	enabled := 0
	for _, s := range sources {
		if s.Provider == nil {
			return nil, fmt.Errorf("resolver source without provider")
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return nil, domain.ErrNoProviders
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSequential
	}
	if cfg.Mode != ModeSequential && cfg.Mode != ModeConcurrent {
		return nil, fmt.Errorf("unknown resolver mode %q", cfg.Mode)
	}
	if cfg.Estimation.Enabled && len(cfg.Estimation.Tiers) == 0 {
		cfg.Estimation.Tiers = property.DefaultRoomTiers()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sources: sources, cfg: cfg, logger: logger}, nil
}

// Resolve fetches the query from every eligible provider and merges the
// results in trust order. Provider failures are treated as absent data; the
// only error is an unusable query.
func (s *Service) Resolve(ctx context.Context, q property.Query) (property.Property, error) {
	if err := q.Validate(); err != nil {
		return property.Property{}, err
	}

	merged := property.NewFromQuery(q)
	switch s.cfg.Mode {
	case ModeConcurrent:
		s.resolveConcurrent(ctx, q, &merged)
	default:
		s.resolveSequential(ctx, q, &merged)
	}
	s.Estimate(&merged)
	return merged, nil
}

func (s *Service) resolveSequential(ctx context.Context, q property.Query, merged *property.Property) {
	for _, src := range s.sources {
		if s.requiredFilled(merged) {
			return
		}
		if !s.eligible(src, merged) {
			metrics.ProviderFetchTotal.WithLabelValues(src.Provider.Name(), "skipped").Inc()
			continue
		}
		if data := s.fetch(ctx, src, q); data != nil {
			s.mergeInto(merged, data, src.Provider.Name())
		}
	}
}

// resolveConcurrent fetches all possibly-eligible providers at once, then
// replays the sequential gating over the results in trust order, so arrival
// order never affects the outcome.
func (s *Service) resolveConcurrent(ctx context.Context, q property.Query, merged *property.Property) {
	results := make([]*property.Property, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		if !src.Enabled || !regionMayMatch(src, q.Address.State) {
			continue
		}
		g.Go(func() error {
			results[i] = s.fetch(gctx, src, q)
			return nil
		})
	}
	_ = g.Wait() // fetch never returns errors

	for i, src := range s.sources {
		if s.requiredFilled(merged) {
			return
		}
		if !s.eligible(src, merged) {
			metrics.ProviderFetchTotal.WithLabelValues(src.Provider.Name(), "skipped").Inc()
			continue
		}
		if results[i] != nil {
			s.mergeInto(merged, results[i], src.Provider.Name())
		}
	}
}

// Merge combines payloads in the given (trust) order without fetching.
func (s *Service) Merge(id string, payloads []Payload) property.Property {
	merged := property.Property{ID: id}
	for _, p := range payloads {
		if p.Data != nil {
			s.mergeInto(&merged, p.Data, p.Source)
		}
	}
	return merged
}

// Estimate fills unset bedrooms/bathrooms from square footage when
// estimation is enabled. Filled values carry SourceEstimated.
func (s *Service) Estimate(p *property.Property) {
	if !s.cfg.Estimation.Enabled || p.SquareFeet == nil {
		return
	}
	if p.Bedrooms != nil && p.Bathrooms != nil {
		return
	}
	beds, baths, ok := property.EstimateRooms(*p.SquareFeet, p.Type, s.cfg.Estimation.Tiers)
	if !ok {
		return
	}
	if p.Bedrooms == nil {
		p.Bedrooms = &beds
		p.SetSource(property.FieldBedrooms, property.SourceEstimated)
		metrics.FieldsResolvedTotal.WithLabelValues(string(property.SourceEstimated)).Inc()
	}
	if p.Bathrooms == nil {
		p.Bathrooms = &baths
		p.SetSource(property.FieldBathrooms, property.SourceEstimated)
		metrics.FieldsResolvedTotal.WithLabelValues(string(property.SourceEstimated)).Inc()
	}
}

// mergeInto adopts every valid value of src whose field dst has not filled yet.
func (s *Service) mergeInto(dst, src *property.Property, source string) {
	for _, f := range property.Fields {
		if property.IsSet(dst, f) {
			continue
		}
		if !property.IsValid(src, f) {
			if property.IsSet(src, f) {
				s.logger.Debug("Rejected invalid field value",
					zap.String("provider", source),
					zap.String("field", string(f)),
				)
			}
			continue
		}
		property.Copy(dst, src, f)
		dst.SetSource(f, property.Source(source))
		metrics.FieldsResolvedTotal.WithLabelValues(source).Inc()
	}
}

// fetch calls one provider and converts every failure, panics included,
// into absent data.
func (s *Service) fetch(ctx context.Context, src Source, q property.Query) (data *property.Property) {
	name := src.Provider.Name()
	start := time.Now()
	defer func() {
		metrics.ProviderFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			s.logger.Error("Provider panicked",
				zap.String("provider", name),
				zap.Any("panic", r),
			)
			metrics.ProviderFetchTotal.WithLabelValues(name, "error").Inc()
			data = nil
		}
	}()

	p, err := src.Provider.Fetch(ctx, q)
	if err != nil {
		s.logger.Warn("Provider unavailable",
			zap.String("provider", name),
			zap.Error(domain.NewProviderError(name, err)),
		)
		metrics.ProviderFetchTotal.WithLabelValues(name, "error").Inc()
		return nil
	}
	if p == nil {
		metrics.ProviderFetchTotal.WithLabelValues(name, "empty").Inc()
		return nil
	}
	metrics.ProviderFetchTotal.WithLabelValues(name, "data").Inc()
	return p
}

// eligible applies the enrichment preconditions against the current merge state.
func (s *Service) eligible(src Source, merged *property.Property) bool {
	if !src.Enabled {
		return false
	}
	if !regionMatches(src, merged.Address.State) {
		return false
	}
	targets := src.Targets
	if len(targets) == 0 {
		targets = property.OptionalFields
	}
	return len(property.Missing(merged, targets)) > 0
}

func (s *Service) requiredFilled(merged *property.Property) bool {
	return len(s.cfg.Required) > 0 && len(property.Missing(merged, s.cfg.Required)) == 0
}

func regionMatches(src Source, state string) bool {
	if len(src.Regions) == 0 {
		return true
	}
	for _, r := range src.Regions {
		if strings.EqualFold(strings.TrimSpace(r), strings.TrimSpace(state)) {
			return true
		}
	}
	return false
}

// regionMayMatch is the pre-fetch check: an unknown state may still be filled
// by a higher-trust provider before the gate is evaluated.
func regionMayMatch(src Source, state string) bool {
	return strings.TrimSpace(state) == "" || regionMatches(src, state)
}
