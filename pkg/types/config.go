package types

import (
	"errors"
	"path/filepath"
	"strings"
)

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend     string `json:"backend" yaml:"backend"`
	DataDir     string `json:"data_dir" yaml:"data_dir"`
	DatabaseURL string `json:"database_url" yaml:"database_url"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// MemoryDSN is the SQLite data source name of a private in-memory database.
const MemoryDSN = ":memory:"

// DatabaseFileName is the database file created inside DataDir.
const DatabaseFileName = "lookup.db"

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrDatabaseURLInvalid = errors.New("unsupported database URL")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if _, err := c.DSN(); err != nil {
		return err
	}
	return nil
}

// InMemory reports whether the resolved database lives in memory.
func (c Config) InMemory() bool {
	dsn, err := c.DSN()
	return err == nil && dsn == MemoryDSN
}

// DSN resolves the SQLite data source name.
//
// DatabaseURL wins when set and accepts "sqlite3::memory:",
// "sqlite3:<path>", "sqlite:<path>", "file:<...>" or a bare path.
// Otherwise a non-empty DataDir yields DataDir/lookup.db, and an empty
// config yields a private in-memory database.
func (c Config) DSN() (string, error) {
	if c.DatabaseURL != "" {
		return parseDatabaseURL(c.DatabaseURL)
	}
	if c.DataDir != "" {
		return filepath.Join(c.DataDir, DatabaseFileName), nil
	}
	return MemoryDSN, nil
}

func parseDatabaseURL(raw string) (string, error) {
	switch {
	case raw == MemoryDSN:
		return MemoryDSN, nil
	case strings.HasPrefix(raw, "file:"):
		return raw, nil
	case strings.HasPrefix(raw, "sqlite3:"):
		return sqlitePath(strings.TrimPrefix(raw, "sqlite3:"))
	case strings.HasPrefix(raw, "sqlite:"):
		return sqlitePath(strings.TrimPrefix(raw, "sqlite:"))
	case strings.Contains(raw, "://"):
		return "", ErrDatabaseURLInvalid
	default:
		return raw, nil
	}
}

func sqlitePath(rest string) (string, error) {
	rest = strings.TrimPrefix(rest, "//")
	if rest == "" {
		return "", ErrDatabaseURLInvalid
	}
	return rest, nil
}
