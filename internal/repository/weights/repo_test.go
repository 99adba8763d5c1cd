package weights

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/compdex/internal/db"
	"github.com/kailas-cloud/compdex/internal/db/file"
	"github.com/kailas-cloud/compdex/internal/domain"
	"github.com/kailas-cloud/compdex/internal/domain/scoring"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func TestLoad_NotFound(t *testing.T) {
	repo := New(&mockStore{}, "compdex")
	if _, err := repo.Load(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	repo := New(&mockStore{getFn: func(context.Context, string) ([]byte, error) {
		return []byte("{not json"), nil
	}}, "compdex")
	if _, err := repo.Load(context.Background()); err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestSave_UsesPrefixedKey(t *testing.T) {
	var gotKey string
	repo := New(&mockStore{setFn: func(_ context.Context, key string, _ []byte) error {
		gotKey = key
		return nil
	}}, "test")
	if err := repo.Save(context.Background(), scoring.DefaultWeights()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "test:weights" {
		t.Errorf("key = %q", gotKey)
	}
}

func TestRoundTrip_FileStore(t *testing.T) {
	s, err := file.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo := New(s, "compdex")
	ctx := context.Background()

	want := scoring.Weights{scoring.FeatureDistance: 0.7, scoring.FeatureSqft: 0.3}.Normalized()
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, f := range scoring.Features {
		if got[f] != want[f] {
			t.Errorf("%s = %v, want %v", f, got[f], want[f])
		}
	}
}
