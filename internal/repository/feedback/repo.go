// Package feedback persists the append-only feedback log.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	domfb "github.com/kailas-cloud/compdex/internal/domain/feedback"
)

// store is the consumer interface for the feedback log (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// Repo implements usecase/comps.FeedbackStore and usecase/learn.FeedbackLog.
type Repo struct {
	store store
	key   string
}

// New creates a feedback repository under prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, key: prefix + ":feedback"}
}

// Append adds rec to the tail of the log.
func (r *Repo) Append(ctx context.Context, rec domfb.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	if err := r.store.RPush(ctx, r.key, data); err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

// List returns every record in insertion order.
func (r *Repo) List(ctx context.Context) ([]domfb.Record, error) {
	raw, err := r.store.LRange(ctx, r.key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	out := make([]domfb.Record, 0, len(raw))
	for i, b := range raw {
		var rec domfb.Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("decode feedback entry %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
