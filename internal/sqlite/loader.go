package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// errMalformedLine marks a fixture line that is not one JSON object.
var errMalformedLine = errors.New("malformed line")

// LoadJSONL reads a JSONL file and inserts each line as a record of table.
// Loading is transactional: all records are inserted or none are. Malformed
// lines are skipped and logged with their line numbers. Fields that name no
// column are ignored so files written by newer schemas still load. Returns
// the number of records inserted.
func (b *Backend) LoadJSONL(tableName, path string) (int, error) {
	tt, err := b.GetTable(tableName)
	if err != nil {
		return 0, err
	}
	t := tt.(*table)

	var recs []*types.Record
	var malformed []int
	err = scanJSONL(path, func(n int, line []byte) error {
		rec, unknown, err := t.decodeJSON(line)
		switch {
		case errors.Is(err, errMalformedLine):
			malformed = append(malformed, n)
			return nil
		case err != nil:
			return fmt.Errorf("%s line %d: %w", path, n, err)
		}
		if len(unknown) > 0 {
			b.logger.Debug("ignoring unknown fields",
				zap.String("table", tableName),
				zap.Int("line", n),
				zap.Strings("fields", unknown))
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(malformed) > 0 {
		b.logger.Warn("skipping malformed lines",
			zap.String("path", path),
			zap.Ints("lines", malformed))
	}

	o := b.begin()
	defer o.end()
	if err := b.readLock(); err != nil {
		return 0, err
	}
	defer b.mu.RUnlock()

	ids := make([]int64, len(recs))
	err = o.transaction(func(tx *sql.Tx) error {
		for i, rec := range recs {
			if err := t.checkRecord(rec); err != nil {
				return err
			}
			id, err := t.insert(o, tx, rec)
			if err != nil {
				return fmt.Errorf("loading %s into %s: %w", path, tableName, err)
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for i, rec := range recs {
		t.finishCreate(rec, ids[i])
	}
	b.logger.Info("fixtures loaded",
		zap.String("table", tableName),
		zap.Int("records", len(recs)),
		zap.Int("skipped", len(malformed)))
	return len(recs), nil
}

// decodeJSON builds a record from one line holding a JSON object. Values
// are converted to the Go type of their column and fields naming no column
// are returned in unknown. Anything other than a single object is
// errMalformedLine.
func (t *table) decodeJSON(line []byte) (rec *types.Record, unknown []string, err error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, nil, errMalformedLine
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errMalformedLine
	}

	rec = types.NewRecord(t.name)
	for _, c := range t.cols {
		v, ok := obj[c.Name]
		if !ok {
			continue
		}
		val, err := jsonValue(c, v)
		if err != nil {
			return nil, nil, err
		}
		rec.Set(c.Name, val)
		delete(obj, c.Name)
	}
	for name := range obj {
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)
	return rec, unknown, nil
}

// DumpJSONL writes every record of table, in natural order, to path as
// JSONL. The file is replaced atomically. Returns the number of records.
func (b *Backend) DumpJSONL(tableName, path string) (int, error) {
	t, err := b.GetTable(tableName)
	if err != nil {
		return 0, err
	}
	recs, err := t.Where(nil)
	if err != nil {
		return 0, err
	}
	if err := encodeJSONL(path, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}
