// Package weights persists the similarity weight vector as one JSON value.
package weights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/compdex/internal/db"
	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

// store is the consumer interface for weights (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type record struct {
	Weights   scoring.Weights `json:"weights"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Repo implements usecase/learn.WeightStore.
type Repo struct {
	store store
	key   string
	now   func() time.Time
}

// New creates a weights repository under prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, key: prefix + ":weights", now: time.Now}
}

// Load returns the saved vector or domain.ErrNotFound.
func (r *Repo) Load(ctx context.Context) (scoring.Weights, error) {
	data, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get weights: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	if len(rec.Weights) == 0 {
		return nil, domain.ErrNotFound
	}
	return rec.Weights, nil
}

// Save replaces the stored vector.
func (r *Repo) Save(ctx context.Context, w scoring.Weights) error {
	data, err := json.Marshal(record{Weights: w, UpdatedAt: r.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("set weights: %w", err)
	}
	return nil
}
