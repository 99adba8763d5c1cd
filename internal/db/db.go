package db

import (
	"context"
	"time"
)

// Store is the storage facade shared by every backend.
type Store interface {
	Pinger
	KVStore
	ListStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides whole-value key operations. Set replaces the value
// atomically: readers see either the old or the new value, never a mix.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// ListStore provides append-only ordered lists.
type ListStore interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// CounterStore provides integer counters. Counter values read back through
// Get as decimal text.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	// Expire sets a TTL on key. With nx it only applies when key has none.
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
