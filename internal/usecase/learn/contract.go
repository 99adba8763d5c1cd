package learn

import (
	"context"

	"github.com/kailas-cloud/compdex/internal/domain/feedback"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

// WeightStore persists the current weight vector.
// Load returns domain.ErrNotFound when nothing was saved yet.
type WeightStore interface {
	Load(ctx context.Context) (scoring.Weights, error)
	Save(ctx context.Context, w scoring.Weights) error
}

// FeedbackLog reads the append-only feedback log in insertion order.
type FeedbackLog interface {
	List(ctx context.Context) ([]feedback.Record, error)
}
