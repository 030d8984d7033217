// Package sqlite provides the public API for the SQLite lookup store.
// It exposes the factory and its options while keeping the implementation
// internal.
package sqlite

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/lookup/internal/sqlite"
	"github.com/mesh-intelligence/lookup/pkg/types"
)

// Option configures a store created by NewStore.
type Option = sqlite.Option

// WithLogger sets the logger used for statement logging.
func WithLogger(l *zap.Logger) Option { return sqlite.WithLogger(l) }

// WithRegisterer registers the store metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option { return sqlite.WithRegisterer(reg) }

// NewStore creates a new SQLite store. The store is not attached; call
// Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewStore()
//	err := store.Attach(types.Config{
//	    Backend:     types.BackendSQLite,
//	    DatabaseURL: "sqlite3::memory:",
//	})
//	defer store.Detach()
func NewStore(opts ...Option) types.Store {
	return sqlite.NewBackend(opts...)
}
