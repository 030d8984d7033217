// Shared helpers for lookup CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/lookup/internal/sqlite"
	"github.com/mesh-intelligence/lookup/pkg/types"
)

// newLogger builds a production zap logger writing JSON to w. verbose
// lowers the level to debug, which logs every SQL statement.
func newLogger(levelName string, verbose bool, w io.Writer) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, usageError{fmt.Errorf("log_level: %w", err)}
	}
	config.Level = zap.NewAtomicLevelAt(level)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(config.EncoderConfig), zapcore.AddSync(w), config.Level)
	return zap.New(core), nil
}

// attachBackend opens the configured store, then applies --schema and
// --fixtures when given. The caller must defer backend.Detach().
//
// The database is chosen by --database-url, then database_url from
// config.yaml or $DATABASE_URL, then the data directory.
func (a *app) attachBackend() (*sqlite.Backend, error) {
	cfg := types.Config{
		Backend:     a.cfg.GetString(cfgKeyBackend),
		DatabaseURL: a.databaseURL,
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = a.cfg.GetString(cfgKeyDatabaseURL)
	}
	if cfg.DatabaseURL == "" {
		dataDir, err := a.resolveDataDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = dataDir
	}

	backend := sqlite.NewBackend(sqlite.WithLogger(a.logger), sqlite.WithRegisterer(a.registry))
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}

	if a.schemaFile != "" {
		if _, err := applySchemaFile(backend, a.schemaFile, false); err != nil {
			backend.Detach()
			return nil, err
		}
	}
	if a.fixturesDir != "" {
		if _, err := backend.Seed(a.fixturesDir); err != nil {
			backend.Detach()
			return nil, err
		}
	}
	return backend, nil
}

// applySchemaFile parses a YAML schema file and defines its tables. Unless
// force is set, tables the store already knows are kept with their records.
// Returns the schemas that were defined.
func applySchemaFile(backend *sqlite.Backend, path string, force bool) ([]types.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	schemas, err := types.ParseSchemas(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !force {
		var missing []types.Schema
		for _, sc := range schemas {
			if _, err := backend.GetTable(sc.Table); err != nil {
				missing = append(missing, sc)
			}
		}
		schemas = missing
	}
	if err := backend.Define(schemas...); err != nil {
		return nil, err
	}
	return schemas, nil
}

// parseValue converts a command-line string to the Go type of col.
func parseValue(col types.Column, s string) (any, error) {
	var v any
	var err error
	switch col.Type {
	case types.TypeInteger:
		v, err = strconv.ParseInt(s, 10, 64)
	case types.TypeFloat:
		v, err = strconv.ParseFloat(s, 64)
	case types.TypeBoolean:
		v, err = strconv.ParseBool(s)
	case types.TypeDatetime:
		v, err = parseTime(s)
	case types.TypeBlob:
		v = []byte(s)
	default:
		v = s
	}
	if err != nil {
		return nil, usageError{fmt.Errorf("%w: %s: %q is not a valid %s", types.ErrInvalidArgument, col.Name, s, col.Type)}
	}
	return v, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// parseKey converts one key argument. Composite keys are written as
// comma-separated values in key column order, e.g. "1,abc".
func parseKey(s types.Schema, arg string) (any, error) {
	keys := s.KeyColumns()
	if len(keys) == 1 {
		col, _ := s.Column(keys[0])
		return parseValue(col, arg)
	}
	parts := strings.Split(arg, ",")
	if len(parts) != len(keys) {
		return nil, usageError{fmt.Errorf("%w: %s has key (%s); got %q",
			types.ErrInvalidArgument, s.Table, strings.Join(keys, ","), arg)}
	}
	tuple := make([]any, len(parts))
	for i, p := range parts {
		col, _ := s.Column(keys[i])
		v, err := parseValue(col, p)
		if err != nil {
			return nil, err
		}
		tuple[i] = v
	}
	return tuple, nil
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
