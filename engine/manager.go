// Package engine is the manager: the single object exposing the §6.3
// grouped operations (create, update, get, find, reset, delete) over a
// shared engine state, per spec §9's design note. It owns one storage
// handle (the §6.2 contract) passed at construction, exactly as the
// teacher's services take a *sql.DB/repositories at construction
// rather than reaching for package globals, and a *slog.Logger thread
// through every operation the way the teacher threads `log.Printf`
// call sites through its services package.
package engine

import (
	"context"
	"log/slog"

	"github.com/Dosada05/bracketengine/storage"
)

// Manager is the engine's single entry point. Construct one per
// storage backend; it is safe for concurrent use only to the extent
// the underlying Store is (see spec §5 — external locking, if needed
// across manager instances sharing a backend, is the caller's job).
type Manager struct {
	store  storage.Store
	logger *slog.Logger
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithLogger overrides the default logger, slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func New(store storage.Store, opts ...Option) *Manager {
	m := &Manager{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// stageLocker is implemented by storage backends that can keep
// concurrent writers on the same stage from interleaving (storage/postgres.Store's
// per-stage advisory lock). Manager detects it with a type assertion
// rather than adding it to the §6.2 Store contract, since the
// in-memory backend has no concurrent callers to serialize against.
type stageLocker interface {
	WithStageLock(ctx context.Context, stageID int, fn func(ctx context.Context) error) error
}

// withStageLock runs fn under the backing store's per-stage lock when
// the store supports one, otherwise runs fn directly. This is what the
// doc comment above means by "external locking ... is the caller's
// job": Manager is that caller, opportunistically, for every operation
// that reads a stage's matches and then writes more than one of them.
func (m *Manager) withStageLock(ctx context.Context, stageID int, fn func(ctx context.Context) error) error {
	if locker, ok := m.store.(stageLocker); ok {
		return locker.WithStageLock(ctx, stageID, fn)
	}
	return fn(ctx)
}
