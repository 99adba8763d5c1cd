// Package guideline persists the ordered guideline list as one JSON value.
package guideline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/compdex/internal/db"
	domgl "github.com/kailas-cloud/compdex/internal/domain/guideline"
)

// store is the consumer interface for guidelines (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements usecase/guideline.Store.
type Repo struct {
	store store
	key   string
}

// New creates a guideline repository under prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, key: prefix + ":guidelines"}
}

// Load returns the saved guidelines, or an empty list when none were saved.
func (r *Repo) Load(ctx context.Context) ([]domgl.Guideline, error) {
	data, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return []domgl.Guideline{}, nil
		}
		return nil, fmt.Errorf("get guidelines: %w", err)
	}
	var out []domgl.Guideline
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode guidelines: %w", err)
	}
	for i := range out {
		if out[i].Criteria == nil {
			out[i].Criteria = domgl.Criteria{}
		}
	}
	return out, nil
}

// Save replaces the whole list.
func (r *Repo) Save(ctx context.Context, guidelines []domgl.Guideline) error {
	if guidelines == nil {
		guidelines = []domgl.Guideline{}
	}
	data, err := json.Marshal(guidelines)
	if err != nil {
		return fmt.Errorf("encode guidelines: %w", err)
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("set guidelines: %w", err)
	}
	return nil
}
