// Package sqlite implements the SQLite storage backend for the lookup store.
// Tables are created from types.Schema definitions and every statement is
// instrumented: subscribers receive start and finish events, statements are
// logged at debug level, and lookup outcomes are counted.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// Backend implements the types.Store interface on SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]*table
	order    []string

	notifier notifier
	logger   *zap.Logger
	metrics  *metrics
	gatherer prometheus.Gatherer
}

var _ types.Store = (*Backend)(nil)

// Option configures a Backend.
type Option func(*backendOptions)

type backendOptions struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
}

// WithLogger sets the logger used for statement logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *backendOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer registers the backend metrics on reg instead of a private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *backendOptions) {
		if reg != nil {
			o.registerer = reg
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	o := backendOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Backend{
		tables: make(map[string]*table),
		logger: o.logger,
	}
	if o.registerer == nil {
		reg := prometheus.NewRegistry()
		o.registerer = reg
		b.gatherer = reg
	} else if g, ok := o.registerer.(prometheus.Gatherer); ok {
		b.gatherer = g
	}
	b.metrics = newMetrics(o.registerer)
	return b
}

// Gatherer returns the registry holding the backend metrics, or nil when
// the registerer passed to WithRegisterer cannot gather.
func (b *Backend) Gatherer() prometheus.Gatherer {
	return b.gatherer
}

// Attach opens the database described by config, creates the schema
// catalog, and restores the tables defined in earlier sessions.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	o := b.begin()
	defer o.end()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}
	dsn, err := config.DSN()
	if err != nil {
		return err
	}

	if config.DatabaseURL == "" && config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
			return err
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	// An in-memory database exists per connection, and SQLite has a single
	// writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	b.db = db

	if _, err := o.exec(db, types.EventSchema, "PRAGMA foreign_keys = ON"); err != nil {
		b.closeLocked()
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := o.exec(db, types.EventSchema, createSchemas); err != nil {
		b.closeLocked()
		return fmt.Errorf("creating schema catalog: %w", err)
	}
	if err := b.loadSchemasLocked(o); err != nil {
		b.closeLocked()
		return fmt.Errorf("loading schema catalog: %w", err)
	}

	b.config = config
	b.attached = true
	b.logger.Debug("store attached", zap.String("dsn", dsn), zap.Int("tables", len(b.order)))
	return nil
}

// loadSchemasLocked restores table accessors from lookup_schemas.
func (b *Backend) loadSchemasLocked(o *op) error {
	rows, err := o.query(b.db, types.EventSchema, selectSchemas)
	if err != nil {
		return err
	}
	var defs []string
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			rows.Close()
			return err
		}
		defs = append(defs, def)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, def := range defs {
		var s types.Schema
		if err := json.Unmarshal([]byte(def), &s); err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidSchema, err)
		}
		b.addTableLocked(s)
	}
	return nil
}

// Detach releases all resources held by the backend.
// After Detach, all operations return ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	return b.closeLocked()
}

func (b *Backend) closeLocked() error {
	b.tables = make(map[string]*table)
	b.order = nil
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Define creates the tables described by schemas. An existing table of the
// same name is dropped first, along with its records.
func (b *Backend) Define(schemas ...types.Schema) error {
	o := b.begin()
	defer o.end()
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	for _, s := range schemas {
		def, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encoding schema %s: %w", s.Table, err)
		}
		if _, err := o.exec(b.db, types.EventSchema, dropTableSQL(s)); err != nil {
			return fmt.Errorf("dropping %s: %w", s.Table, err)
		}
		if _, err := o.exec(b.db, types.EventSchema, createTableSQL(s)); err != nil {
			return fmt.Errorf("creating %s: %w", s.Table, err)
		}
		position := len(b.order)
		if _, ok := b.tables[s.Table]; ok {
			position = b.position(s.Table)
		}
		if _, err := o.exec(b.db, types.EventSchema, upsertSchema, s.Table, string(def), position); err != nil {
			return fmt.Errorf("recording schema %s: %w", s.Table, err)
		}
		b.addTableLocked(s)
		b.logger.Info("table defined",
			zap.String("table", s.Table),
			zap.Strings("primary_key", s.KeyColumns()),
			zap.Int("columns", len(s.AllColumns())))
	}
	return nil
}

func (b *Backend) position(name string) int {
	for i, n := range b.order {
		if n == name {
			return i
		}
	}
	return len(b.order)
}

func (b *Backend) addTableLocked(s types.Schema) {
	if _, ok := b.tables[s.Table]; !ok {
		b.order = append(b.order, s.Table)
	}
	b.tables[s.Table] = newTable(b, s)
}

// GetTable returns a Table interface for the specified table name.
// Returns ErrTableNotFound if the table has not been defined.
// Returns ErrStoreDetached if the backend is not attached.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	t, ok := b.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrTableNotFound, name)
	}
	return t, nil
}

// TableNames lists the defined tables in definition order.
func (b *Backend) TableNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Schema returns the definition of a table.
func (b *Backend) Schema(name string) (types.Schema, error) {
	t, err := b.GetTable(name)
	if err != nil {
		return types.Schema{}, err
	}
	return t.Schema(), nil
}

// Subscribe registers sub for statement notifications. Events are delivered
// on the goroutine that issued the statements, in statement order, when the
// issuing operation returns. By then the store lock and connection are
// released, so sub may call back into the store.
func (b *Backend) Subscribe(sub types.Subscriber) (unsubscribe func()) {
	return b.notifier.subscribe(sub)
}

// readLock takes the read lock and checks that the backend is attached.
// On success the caller must call b.mu.RUnlock.
func (b *Backend) readLock() error {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return types.ErrStoreDetached
	}
	return nil
}
