package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/layered-memory/internal/model"
	"github.com/rcliao/layered-memory/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seed writes v as the metadata of id.
func seed(t *testing.T, s store.Store, id string, v any) {
	t.Helper()
	doc, err := model.EncodeDocument(v)
	if err != nil {
		t.Fatalf("encode %s: %v", id, err)
	}
	if _, err := s.UpdateResource(context.Background(), store.UpdateParams{ID: id, Metadata: doc}); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

// scopeDoc reads back a stored scope document without expiry filtering.
func scopeDoc(t *testing.T, s store.Store, scope model.ScopeType, id string) *model.ScopeMemory {
	t.Helper()
	res, err := s.GetResource(context.Background(), ScopeResourceID(scope, id))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res == nil {
		t.Fatalf("expected %s %s to exist", scope, id)
	}
	m, ok := model.DecodeScopeMemory(res.Metadata, scope)
	if !ok {
		t.Fatalf("expected %s document, got %v", scope, res.Metadata)
	}
	return m
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func newFakeClock() *fakeClock               { return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }
func clockOpt(c *fakeClock) Option           { return WithClock(c.Now) }

var errBroken = errors.New("store unavailable")

// brokenStore fails every call.
type brokenStore struct{ writes int }

func (b *brokenStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	return nil, errBroken
}

func (b *brokenStore) UpdateResource(ctx context.Context, p store.UpdateParams) (*model.Resource, error) {
	b.writes++
	return nil, errBroken
}

func (b *brokenStore) Close() error { return nil }
