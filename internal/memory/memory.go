// Package memory implements layered conversational memory for a chat
// assistant: a per-user profile plus rolling, expiring summaries for the
// guild, channel and reply-thread scopes a message belongs to.
//
// Memory is a side channel. Reads that fail degrade to "no memory" and
// writes that fail are logged, so a turn is never blocked by storage.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/layered-memory/internal/model"
	"github.com/rcliao/layered-memory/internal/store"
)

// ErrInvalidInput is returned for empty ids, aliases or incomplete bindings.
var ErrInvalidInput = errors.New("invalid input")

// Option configures Profiles, Scopes and Assembler.
type Option func(*settings)

type settings struct {
	now   func() time.Time
	log   *slog.Logger
	locks *keyedMutex
}

// WithClock overrides the time source used for expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.log = l }
}

func newSettings(cfg Config, opts []Option) *settings {
	s := &settings{
		now: func() time.Time { return time.Now().UTC() },
		log: slog.Default(),
	}
	if cfg.SerializeWrites {
		s.locks = newKeyedMutex()
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// loadResource reads a resource, treating any store failure as absence.
func (s *settings) loadResource(ctx context.Context, st store.Store, id string) *model.Resource {
	res, err := st.GetResource(ctx, id)
	if err != nil {
		s.log.Debug("memory read failed, continuing without it", "resource", id, "err", err)
		return nil
	}
	return res
}

// keyedMutex serializes read-modify-write cycles per resource id.
// A nil *keyedMutex never blocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock acquires the lock for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	if k == nil {
		return func() {}
	}
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func dedupe[T any](items []T, key func(T) string) []T {
	out := make([]T, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		k := key(it)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

func identity(s string) string { return s }
