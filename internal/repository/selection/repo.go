// Package selection persists ranked selections so feedback can refer to them.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/compdex/internal/db"
	"github.com/kailas-cloud/compdex/internal/domain"
	domfb "github.com/kailas-cloud/compdex/internal/domain/feedback"
)

// store is the consumer interface for selections (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo implements usecase/comps.SelectionStore.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a selection repository. A zero ttl keeps selections forever.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix + ":selection:", ttl: ttl}
}

// Save stores sel under its id.
func (r *Repo) Save(ctx context.Context, sel domfb.Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, r.prefix+sel.ID, data, r.ttl); err != nil {
		return fmt.Errorf("set selection %s: %w", sel.ID, err)
	}
	return nil
}

// Get returns the selection or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domfb.Selection, error) {
	data, err := r.store.Get(ctx, r.prefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domfb.Selection{}, domain.ErrNotFound
		}
		return domfb.Selection{}, fmt.Errorf("get selection %s: %w", id, err)
	}
	var sel domfb.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return domfb.Selection{}, fmt.Errorf("decode selection %s: %w", id, err)
	}
	return sel, nil
}
