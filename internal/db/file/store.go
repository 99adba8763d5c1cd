// Package file implements db.Store on a local directory. Values are written
// with an atomic replace so readers never observe a partial write. Lists are
// newline-delimited files; list values must not contain a newline.
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/compdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store keeps one file per key under Dir.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Ping checks that the directory is still there.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately for a local directory.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get reads the value of key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set replaces the value of key atomically.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replace(s.path(key), value); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// SetWithTTL stores the value; expiry is not supported by this backend.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return s.Set(ctx, key, value)
}

// Del removes key. Removing a missing key is not an error.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// RPush appends values to the list at key. The whole list is rewritten via
// atomic replace, so a crash mid-append leaves the previous list intact.
func (s *Store) RPush(_ context.Context, key string, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}
	for _, v := range values {
		if bytes.ContainsAny(v, "\r\n") {
			return &db.Error{Op: db.OpRPush, Err: fmt.Errorf("list value contains a newline")}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.path(key)
	cur, err := os.ReadFile(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &db.Error{Op: db.OpRPush, Err: err}
	}
	var buf bytes.Buffer
	buf.Write(cur)
	for _, v := range values {
		buf.Write(v)
		buf.WriteByte('\n')
	}
	if err := s.replace(p, buf.Bytes()); err != nil {
		return &db.Error{Op: db.OpRPush, Err: err}
	}
	return nil
}

// LRange returns list elements between start and stop inclusive, with
// Redis index semantics. A missing key is an empty list.
func (s *Store) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	defer f.Close()

	var all [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		all = append(all, bytes.Clone(sc.Bytes()))
	}
	if err := sc.Err(); err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}

	from, to, ok := bounds(int64(len(all)), start, stop)
	if !ok {
		return nil, nil
	}
	return all[from : to+1], nil
}

// IncrBy adds val to the decimal counter at key. A missing key counts from 0.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.path(key)
	var cur int64
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return &db.Error{Op: db.OpIncrBy, Err: err}
	default:
		cur, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: fmt.Errorf("value is not an integer: %w", err)}
		}
	}
	if err := s.replace(p, []byte(strconv.FormatInt(cur+val, 10))); err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

// Expire is a no-op; this backend keeps keys until they are deleted.
func (s *Store) Expire(context.Context, string, time.Duration, bool) error { return nil }

// bounds resolves Redis-style inclusive indexes against n elements.
func bounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	start = max(start, 0)
	stop = min(stop, n-1)
	if n == 0 || start > stop {
		return 0, 0, false
	}
	return start, stop, true
}

func (s *Store) replace(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// path maps a key such as "compdex:selection:42" to a file name.
func (s *Store) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(s.dir, name)
}
