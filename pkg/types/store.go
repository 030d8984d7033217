package types

import "errors"

// Store defines the interface for backend-agnostic record storage.
// Callers attach to a backend, define tables, access them by name, and
// detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrStoreDetached.
	Detach() error

	// Define creates the tables described by schemas, replacing any
	// existing table of the same name.
	Define(schemas ...Schema) error

	// GetTable returns the Table for the given name.
	// Returns ErrTableNotFound if no such table has been defined.
	GetTable(name string) (Table, error)

	// TableNames lists the defined tables in definition order.
	TableNames() []string

	// Subscribe registers sub for statement notifications and returns a
	// function that removes it.
	Subscribe(sub Subscriber) (unsubscribe func())
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrTableNotFound   = errors.New("table not found")
)
