// Package rank filters scored candidates and orders the survivors.
package rank

import (
	"cmp"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	"github.com/kailas-cloud/compdex/internal/metrics"
)

// Options are the global selection ceilings.
type Options struct {
	MaxDistanceMiles float64 // 0 disables the ceiling
	MaxAgeDays       int     // 0 disables the ceiling
	MinScore         float64
	MaxComps         int // 0 means unlimited
}

// Candidate pairs a property with its score.
type Candidate struct {
	Property *property.Property
	Result   scoring.Result
}

// Drop stages.
const (
	StageSelf      = "self"
	StageGuideline = "guideline"
	StageDistance  = "distance"
	StageAge       = "age"
	StageScore     = "score"
	StageRanked    = "ranked"
)

// Service ranks candidates.
type Service struct {
	logger *zap.Logger
}

// New creates a ranker.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Select drops candidates that fail a hard filter, a global ceiling or the
// minimum score, then sorts by score desc, distance asc, sale date desc and
// candidate id, and truncates to MaxComps. An empty result is valid.
func (s *Service) Select(
	subject *property.Property, scored []Candidate, filters guideline.Filters, opts Options, now time.Time,
) []Candidate {
	out := make([]Candidate, 0, len(scored))
	for _, c := range scored {
		if stage, ok := s.admit(subject, c, filters, opts, now); !ok {
			metrics.CandidatesTotal.WithLabelValues(stage).Inc()
			continue
		}
		out = append(out, c)
	}

	slices.SortStableFunc(out, compare)
	if opts.MaxComps > 0 && len(out) > opts.MaxComps {
		out = out[:opts.MaxComps]
	}
	metrics.CandidatesTotal.WithLabelValues(StageRanked).Add(float64(len(out)))
	return out
}

// admit reports whether c survives, or the stage that dropped it.
func (s *Service) admit(
	subject *property.Property, c Candidate, filters guideline.Filters, opts Options, now time.Time,
) (string, bool) {
	if c.Property.ID != "" && c.Property.ID == subject.ID {
		return StageSelf, false
	}
	if ok, f := filters.Pass(c.Property); !ok {
		s.logger.Debug("Candidate excluded by guideline",
			zap.String("candidate", c.Property.ID),
			zap.Stringer("filter", f),
		)
		return StageGuideline, false
	}
	if opts.MaxDistanceMiles > 0 && c.Result.DistanceMiles != nil && *c.Result.DistanceMiles > opts.MaxDistanceMiles {
		return StageDistance, false
	}
	if opts.MaxAgeDays > 0 && c.Property.SaleDate != nil &&
		now.Sub(*c.Property.SaleDate) > time.Duration(opts.MaxAgeDays)*24*time.Hour {
		return StageAge, false
	}
	if c.Result.Score < opts.MinScore {
		return StageScore, false
	}
	return "", true
}

func compare(a, b Candidate) int {
	if c := cmp.Compare(b.Result.Score, a.Result.Score); c != 0 {
		return c
	}
	if c := compareMissingLast(a.Result.DistanceMiles, b.Result.DistanceMiles, func(x, y float64) int {
		return cmp.Compare(x, y)
	}); c != 0 {
		return c
	}
	if c := compareMissingLast(a.Property.SaleDate, b.Property.SaleDate, func(x, y time.Time) int {
		return y.Compare(x)
	}); c != 0 {
		return c
	}
	return cmp.Compare(a.Result.CandidateID, b.Result.CandidateID)
}

// compareMissingLast orders nil after any value and defers to fn otherwise.
func compareMissingLast[T any](a, b *T, fn func(x, y T) int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return fn(*a, *b)
	}
}
