package comps

import (
	"context"
	"time"

	"github.com/kailas-cloud/compdex/internal/domain/feedback"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
	"github.com/kailas-cloud/compdex/internal/domain/property"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
	domval "github.com/kailas-cloud/compdex/internal/domain/valuation"
	"github.com/kailas-cloud/compdex/internal/usecase/learn"
	"github.com/kailas-cloud/compdex/internal/usecase/rank"
	"github.com/kailas-cloud/compdex/internal/usecase/resolve"
	"github.com/kailas-cloud/compdex/internal/usecase/valuation"
)

// CandidateSource lists sold properties near a subject. Records may be
// partial; records with the same id from several sources are merged in
// source order.
type CandidateSource interface {
	Name() string
	Candidates(ctx context.Context, subject *property.Property, radiusMiles float64) ([]property.Property, error)
}

// Resolver fills the subject and merges candidate payloads.
type Resolver interface {
	Resolve(ctx context.Context, q property.Query) (property.Property, error)
	Merge(id string, payloads []resolve.Payload) property.Property
}

// Guidelines is the guideline engine.
type Guidelines interface {
	List(ctx context.Context) ([]domgl.Guideline, error)
	Add(ctx context.Context, description string, criteria domgl.Criteria, priority float64) (domgl.Guideline, error)
	AddInstruction(ctx context.Context, text string) (domgl.Guideline, error)
	Remove(ctx context.Context, index int) (domgl.Guideline, error)
	Compile(ctx context.Context, subject *property.Property, now time.Time) (domgl.Compiled, error)
}

// Scorer computes similarity. Distance decays to 0 at radius miles.
type Scorer interface {
	ScoreWithin(subject, candidate *property.Property, weights scoring.Weights, bias scoring.Bias, radius float64) scoring.Result
}

// Ranker filters and orders scored candidates.
type Ranker interface {
	Select(subject *property.Property, scored []rank.Candidate, filters domgl.Filters, opts rank.Options, now time.Time) []rank.Candidate
}

// Learner owns the weight vector.
type Learner interface {
	Weights(ctx context.Context) (scoring.Weights, error)
	ApplyFeedback(ctx context.Context, rec feedback.Record) (scoring.Weights, error)
	Train(ctx context.Context) (learn.TrainSummary, error)
}

// Valuer estimates a value from comps.
type Valuer interface {
	Estimate(subject *property.Property, comps []valuation.Comparable) domval.Result
}

// SelectionStore keeps ranked selections so feedback can refer to them.
// Get returns domain.ErrNotFound for unknown ids.
type SelectionStore interface {
	Save(ctx context.Context, sel feedback.Selection) error
	Get(ctx context.Context, id string) (feedback.Selection, error)
}

// FeedbackStore is the append-only feedback log.
type FeedbackStore interface {
	Append(ctx context.Context, rec feedback.Record) error
}
