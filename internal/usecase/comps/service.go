// Package comps finds comparable sales for a subject and closes the feedback loop.
package comps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/feedback"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	domval "github.com/kailas-cloud/compdex/internal/domain/valuation"
	"github.com/kailas-cloud/compdex/internal/metrics"
	"github.com/kailas-cloud/compdex/internal/usecase/learn"
	"github.com/kailas-cloud/compdex/internal/usecase/rank"
	"github.com/kailas-cloud/compdex/internal/usecase/resolve"
	"github.com/kailas-cloud/compdex/internal/usecase/valuation"
)

// Options bound one search. Zero fields take the service defaults; a nil
// MinScore does too, so an explicit 0 keeps every candidate.
type Options struct {
	MaxDistanceMiles float64  `json:"max_distance_miles,omitempty"`
	MaxAgeDays       int      `json:"max_age_days,omitempty"`
	MinScore         *float64 `json:"min_score,omitempty"`
	MaxComps         int      `json:"max_comps,omitempty"`
	// LenientFactor scales MinScore when the subject lacks bedrooms,
	// bathrooms or list price.
	LenientFactor float64 `json:"lenient_factor,omitempty"`
}

// DefaultOptions returns the stock search bounds.
func DefaultOptions() Options {
	minScore := 0.7
	return Options{
		MaxDistanceMiles: 5,
		MaxAgeDays:       180,
		MinScore:         &minScore,
		MaxComps:         10,
		LenientFactor:    0.8,
	}
}

func (o Options) withDefaults(def Options) Options {
	if o.MaxDistanceMiles <= 0 {
		o.MaxDistanceMiles = def.MaxDistanceMiles
	}
	if o.MaxAgeDays <= 0 {
		o.MaxAgeDays = def.MaxAgeDays
	}
	if o.MinScore == nil {
		o.MinScore = def.MinScore
	}
	if o.MaxComps <= 0 {
		o.MaxComps = def.MaxComps
	}
	if o.LenientFactor <= 0 || o.LenientFactor > 1 {
		o.LenientFactor = def.LenientFactor
	}
	return o
}

// Comparable is a ranked candidate.
type Comparable struct {
	Property property.Property `json:"property"`
	Result   scoring.Result    `json:"result"`
}

// Result is the outcome of FindComparables. An empty Comparables is a
// valid outcome, not an error.
type Result struct {
	Subject     property.Property `json:"subject"`
	Comparables []Comparable      `json:"comparables"`
	SelectionID string            `json:"selection_id"`
	MinScore    float64           `json:"min_score"`
}

// Deps are the collaborators of the service.
type Deps struct {
	Resolver   Resolver
	Candidates []CandidateSource
	Guidelines Guidelines
	Scorer     Scorer
	Ranker     Ranker
	Learner    Learner
	Valuer     Valuer
	Selections SelectionStore
	Feedback   FeedbackStore
}

// Service orchestrates comparable searches.
type Service struct {
	deps     Deps
	defaults Options
	logger   *zap.Logger
	now      func() time.Time
}

// New creates the orchestrator.
func New(deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{deps: deps, defaults: DefaultOptions(), logger: logger, now: time.Now}
}

// WithDefaults overrides the search defaults. Zero fields keep the stock values.
func (s *Service) WithDefaults(opts Options) *Service {
	s.defaults = opts.withDefaults(DefaultOptions())
	return s
}

// FindComparables resolves the subject, gathers and merges candidates, drops
// hard-guideline violations, scores and ranks the rest and records the
// selection for later feedback.
func (s *Service) FindComparables(ctx context.Context, q property.Query, opts Options) (Result, error) {
	opts = opts.withDefaults(s.defaults)
	now := s.now()

	subject, err := s.deps.Resolver.Resolve(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("resolve subject: %w", err)
	}

	compiled, err := s.deps.Guidelines.Compile(ctx, &subject, now)
	if err != nil {
		return Result{}, fmt.Errorf("compile guidelines: %w", err)
	}
	weights, err := s.deps.Learner.Weights(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load weights: %w", err)
	}

	minScore := *opts.MinScore
	if lenient(&subject) {
		minScore *= opts.LenientFactor
	}

	candidates := s.gather(ctx, &subject, opts.MaxDistanceMiles)
	scored := make([]rank.Candidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if ok, f := compiled.Filters.Pass(c); !ok {
			metrics.CandidatesTotal.WithLabelValues(rank.StageGuideline).Inc()
			s.logger.Debug("Candidate violates guideline",
				zap.String("candidate", c.ID), zap.Stringer("filter", f))
			continue
		}
		scored = append(scored, rank.Candidate{
			Property: c,
			Result:   s.deps.Scorer.ScoreWithin(&subject, c, weights, compiled.Bias, opts.MaxDistanceMiles),
		})
	}

	ranked := s.deps.Ranker.Select(&subject, scored, compiled.Filters, rank.Options{
		MaxDistanceMiles: opts.MaxDistanceMiles,
		MaxAgeDays:       opts.MaxAgeDays,
		MinScore:         minScore,
		MaxComps:         opts.MaxComps,
	}, now)

	out := Result{Subject: subject, Comparables: make([]Comparable, 0, len(ranked)), MinScore: minScore}
	results := make([]scoring.Result, 0, len(ranked))
	for _, r := range ranked {
		out.Comparables = append(out.Comparables, Comparable{Property: *r.Property, Result: r.Result})
		results = append(results, r.Result)
	}

	sel := feedback.NewSelection(subject.ID, results, now)
	if err := s.deps.Selections.Save(ctx, sel); err != nil {
		return Result{}, fmt.Errorf("save selection: %w", err)
	}
	out.SelectionID = sel.ID

	s.logger.Info("Comparables selected",
		zap.String("subject", subject.ID),
		zap.String("selection", sel.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(out.Comparables)),
		zap.Float64("min_score", minScore),
	)
	return out, nil
}

// gather pulls candidates from every source and merges records sharing an
// id in source order. A failing source counts as no data.
func (s *Service) gather(ctx context.Context, subject *property.Property, radius float64) []property.Property {
	payloads := make(map[string][]resolve.Payload)
	var order []string
	for _, src := range s.deps.Candidates {
		recs, err := src.Candidates(ctx, subject, radius)
		if err != nil {
			s.logger.Warn("Candidate source failed",
				zap.String("source", src.Name()),
				zap.Error(domain.NewProviderError(src.Name(), err)),
			)
			continue
		}
		for i := range recs {
			id := candidateID(&recs[i])
			if id == "" {
				continue
			}
			if _, seen := payloads[id]; !seen {
				order = append(order, id)
			}
			payloads[id] = append(payloads[id], resolve.Payload{Source: src.Name(), Data: &recs[i]})
		}
	}

	out := make([]property.Property, 0, len(order))
	for _, id := range order {
		out = append(out, s.deps.Resolver.Merge(id, payloads[id]))
	}
	metrics.CandidatesTotal.WithLabelValues("fetched").Add(float64(len(out)))
	return out
}

func candidateID(p *property.Property) string {
	if p.ID != "" {
		return p.ID
	}
	q := property.Query{ParcelID: p.ParcelID, Address: p.Address}
	if q.Validate() != nil {
		return ""
	}
	return q.Identity()
}

// lenient reports whether the subject lacks data the scorer leans on.
func lenient(p *property.Property) bool {
	return p.Bedrooms == nil || p.Bathrooms == nil || p.ListPrice == nil
}

// RecordFeedback stores the user's quality judgement of a selection and, when
// learning is enabled, applies one online weight update. Quality outside
// [0,1] is rejected before any store is touched.
func (s *Service) RecordFeedback(
	ctx context.Context, selectionID string, quality float64, candidateIDs []string,
) (feedback.Record, error) {
	if err := feedback.ValidateQuality(quality); err != nil {
		return feedback.Record{}, err
	}

	sel, err := s.deps.Selections.Get(ctx, selectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return feedback.Record{}, fmt.Errorf("%w: %s", domain.ErrSelectionNotFound, selectionID)
		}
		return feedback.Record{}, fmt.Errorf("get selection: %w", err)
	}

	rec, err := feedback.NewRecord(sel, candidateIDs, quality, s.now())
	if err != nil {
		return feedback.Record{}, err
	}
	if err := s.deps.Feedback.Append(ctx, rec); err != nil {
		return feedback.Record{}, fmt.Errorf("append feedback: %w", err)
	}
	metrics.FeedbackRecordsTotal.Inc()

	if _, err := s.deps.Learner.ApplyFeedback(ctx, rec); err != nil && !errors.Is(err, domain.ErrLearningDisabled) {
		return feedback.Record{}, fmt.Errorf("apply feedback: %w", err)
	}
	return rec, nil
}

// Train retrains the weights from the full feedback log.
func (s *Service) Train(ctx context.Context) (learn.TrainSummary, error) {
	sum, err := s.deps.Learner.Train(ctx)
	if err != nil {
		return learn.TrainSummary{}, fmt.Errorf("train: %w", err)
	}
	return sum, nil
}

// Weights returns the current weight vector.
func (s *Service) Weights(ctx context.Context) (scoring.Weights, error) {
	return s.deps.Learner.Weights(ctx)
}

// EstimateValue derives a value estimate for subject from comps.
func (s *Service) EstimateValue(subject *property.Property, comps []Comparable) domval.Result {
	in := make([]valuation.Comparable, 0, len(comps))
	for i := range comps {
		in = append(in, valuation.Comparable{Property: &comps[i].Property, Score: comps[i].Result.Score})
	}
	return s.deps.Valuer.Estimate(subject, in)
}

// ListGuidelines returns the guidelines in insertion order.
func (s *Service) ListGuidelines(ctx context.Context) ([]domgl.Guideline, error) {
	return s.deps.Guidelines.List(ctx)
}

// AddGuideline appends a structured guideline.
func (s *Service) AddGuideline(
	ctx context.Context, description string, criteria domgl.Criteria, priority float64,
) (domgl.Guideline, error) {
	return s.deps.Guidelines.Add(ctx, description, criteria, priority)
}

// AddInstruction appends a guideline parsed from free text.
func (s *Service) AddInstruction(ctx context.Context, text string) (domgl.Guideline, error) {
	return s.deps.Guidelines.AddInstruction(ctx, text)
}

// RemoveGuideline deletes the guideline at index.
func (s *Service) RemoveGuideline(ctx context.Context, index int) (domgl.Guideline, error) {
	return s.deps.Guidelines.Remove(ctx, index)
}
