package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// fixtureSuffix names the file holding a table's fixtures: <table>.jsonl.
const fixtureSuffix = ".jsonl"

// Seed loads <table>.jsonl from dir into every defined table that is still
// empty. Tables that already hold records and tables without a fixture file
// are left alone, so seeding is idempotent. Returns the number of records
// loaded per table.
func (b *Backend) Seed(dir string) (map[string]int, error) {
	loaded := make(map[string]int)
	for _, name := range b.TableNames() {
		path := filepath.Join(dir, name+fixtureSuffix)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("checking %s: %w", path, err)
		}

		t, err := b.GetTable(name)
		if err != nil {
			return loaded, err
		}
		existing, err := t.FindBy(nil)
		if err != nil {
			return loaded, fmt.Errorf("checking %s for records: %w", name, err)
		}
		if existing != nil {
			b.logger.Debug("seed skipped, table not empty", zap.String("table", name))
			continue
		}

		n, err := b.LoadJSONL(name, path)
		if err != nil {
			return loaded, fmt.Errorf("seeding %s: %w", name, err)
		}
		loaded[name] = n
	}
	return loaded, nil
}
