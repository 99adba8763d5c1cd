// Package budget persists interpreter token counters per calendar period.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/compdex/internal/db"
	"github.com/kailas-cloud/compdex/internal/domain/usage"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Counter TTLs outlive their period so a late reader still sees the total.
const (
	dailyTTL   = 48 * time.Hour
	monthlyTTL = 62 * 24 * time.Hour
)

// Store implements usecase/guideline.BudgetStore (INCRBY + GET with TTL).
type Store struct {
	store  store
	prefix string
}

// New creates a budget store for the named consumer, e.g. "interpreter".
func New(s store, keyPrefix, consumer string) *Store {
	return &Store{store: s, prefix: keyPrefix + ":budget:" + consumer}
}

// Add increments the counter of the period containing at.
func (s *Store) Add(ctx context.Context, period usage.Period, at time.Time, tokens int64) error {
	key := s.key(period, at)
	if err := s.store.IncrBy(ctx, key, tokens); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	// NX keeps the first TTL so repeated writes do not extend it.
	ttl := monthlyTTL
	if period == usage.PeriodDay {
		ttl = dailyTTL
	}
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return nil
}

// Used returns the counter of the period containing at, 0 if none.
func (s *Store) Used(ctx context.Context, period usage.Period, at time.Time) (int64, error) {
	key := s.key(period, at)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

func (s *Store) key(period usage.Period, at time.Time) string {
	name := "monthly"
	if period == usage.PeriodDay {
		name = "daily"
	}
	return s.prefix + ":" + name + ":" + period.Stamp(at)
}
