package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// table implements types.Table for one defined schema.
type table struct {
	name    string
	schema  types.Schema
	cols    []types.Column
	backend *Backend
}

var _ types.Table = (*table)(nil)

func newTable(b *Backend, s types.Schema) *table {
	return &table{
		name:    s.Table,
		schema:  s,
		cols:    s.AllColumns(),
		backend: b,
	}
}

// Name returns the table name.
func (t *table) Name() string {
	return t.name
}

// Schema returns the table definition.
func (t *table) Schema() types.Schema {
	return t.schema
}

func (t *table) event(op string) string {
	return types.TableEvent(t.name, op)
}

// Create inserts rec inside a transaction. Columns the record does not hold
// are filled with nil after the insert, and an implicit id is set from the
// generated rowid.
func (t *table) Create(rec *types.Record) error {
	if err := t.checkRecord(rec); err != nil {
		return err
	}
	o := t.backend.begin()
	defer o.end()
	if err := t.backend.readLock(); err != nil {
		return err
	}
	defer t.backend.mu.RUnlock()

	var id int64
	err := o.transaction(func(tx *sql.Tx) error {
		var err error
		id, err = t.insert(o, tx, rec)
		return err
	})
	if err != nil {
		return err
	}
	t.finishCreate(rec, id)
	return nil
}

// checkRecord validates that rec belongs to this table and names only
// known columns.
func (t *table) checkRecord(rec *types.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", types.ErrInvalidData)
	}
	if rec.Table() != "" && rec.Table() != t.name {
		return fmt.Errorf("%w: record for %q given to %q", types.ErrInvalidData, rec.Table(), t.name)
	}
	for _, name := range rec.Names() {
		if _, ok := t.schema.Column(name); !ok {
			return fmt.Errorf("%w: %w: %s.%s", types.ErrInvalidData, types.ErrUnknownColumn, t.name, name)
		}
	}
	if !t.schema.AutoID() {
		for _, k := range t.schema.KeyColumns() {
			if rec.Value(k) == nil {
				return fmt.Errorf("%w: key column %s.%s is required", types.ErrInvalidData, t.name, k)
			}
		}
	}
	return nil
}

// insert writes rec with tx and returns the generated rowid.
func (t *table) insert(o *op, tx *sql.Tx, rec *types.Record) (int64, error) {
	var cols []string
	var args []any
	for _, c := range t.cols {
		v, ok := rec.Get(c.Name)
		if !ok {
			continue
		}
		if c.Name == types.DefaultKey && t.schema.AutoID() && v == nil {
			continue
		}
		cols = append(cols, quoteIdent(c.Name))
		args = append(args, bindValue(v))
	}

	query := "INSERT INTO " + quoteIdent(t.name)
	if len(cols) == 0 {
		query += " DEFAULT VALUES"
	} else {
		query += " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"
	}

	res, err := o.exec(tx, t.event(types.OpCreate), query, args...)
	if err != nil {
		return 0, constraintError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading generated id: %w", err)
	}
	return id, nil
}

func (t *table) finishCreate(rec *types.Record, id int64) {
	if t.schema.AutoID() && rec.Value(types.DefaultKey) == nil {
		rec.Set(types.DefaultKey, id)
	}
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
		rec.Set(c.Name, normalize(c, rec.Value(c.Name)))
	}
	rec.SortFields(names)
	rec.MarkPersisted()
}

// Update writes the changed non-key columns of rec, addressed by its key.
// A record with no changes is left alone. Key columns of a stored record
// cannot change, since the record would then address a different row.
func (t *table) Update(rec *types.Record) error {
	if err := t.checkRecord(rec); err != nil {
		return err
	}
	if rec.Persisted() {
		for _, name := range rec.ChangedNames() {
			if t.schema.IsKey(name) {
				return fmt.Errorf("%w: key column %s.%s changed on a stored record", types.ErrInvalidArgument, t.name, name)
			}
		}
	}
	key := t.schema.KeyOf(rec)
	for _, v := range key {
		if v == nil {
			return fmt.Errorf("%w: record has no key", types.ErrInvalidData)
		}
	}

	var sets []string
	var args []any
	for _, name := range rec.ChangedNames() {
		if t.schema.IsKey(name) {
			continue
		}
		sets = append(sets, quoteIdent(name)+" = ?")
		args = append(args, bindValue(rec.Value(name)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, bindValues(key)...)
	query := "UPDATE " + quoteIdent(t.name) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + keyPredicate(t.schema, 1)

	o := t.backend.begin()
	defer o.end()
	if err := t.backend.readLock(); err != nil {
		return err
	}
	defer t.backend.mu.RUnlock()

	err := o.transaction(func(tx *sql.Tx) error {
		res, err := o.exec(tx, t.event(types.OpUpdate), query, args...)
		if err != nil {
			return constraintError(err)
		}
		return requireAffected(res, t.notFound(key))
	})
	if err != nil {
		return err
	}
	for _, c := range t.cols {
		if v, ok := rec.Get(c.Name); ok {
			rec.Set(c.Name, normalize(c, v))
		}
	}
	rec.MarkPersisted()
	return nil
}

// Delete removes the record addressed by key. key may be a scalar, a tuple
// for composite keys, or a *types.Record.
func (t *table) Delete(key any) error {
	var rec *types.Record
	if r, ok := key.(*types.Record); ok {
		if r == nil {
			return t.notFound(nil)
		}
		rec = r
		key = t.schema.KeyOf(r)
		if !t.schema.Composite() {
			key = key.([]any)[0]
		}
	}
	vals, err := t.deleteKey(key)
	if err != nil {
		return err
	}

	query := "DELETE FROM " + quoteIdent(t.name) + " WHERE " + keyPredicate(t.schema, 1)

	o := t.backend.begin()
	defer o.end()
	if err := t.backend.readLock(); err != nil {
		return err
	}
	defer t.backend.mu.RUnlock()

	err = o.transaction(func(tx *sql.Tx) error {
		res, err := o.exec(tx, t.event(types.OpDestroy), query, bindValues(vals)...)
		if err != nil {
			return err
		}
		return requireAffected(res, t.notFound(vals))
	})
	if err != nil {
		return err
	}
	if rec != nil {
		rec.MarkDeleted()
	}
	return nil
}

// deleteKey normalizes a Delete argument into key values.
func (t *table) deleteKey(key any) ([]any, error) {
	if key == nil {
		return nil, t.notFound(nil)
	}
	items, isSeq := sequence(key)
	if !t.schema.Composite() {
		if isSeq {
			return nil, fmt.Errorf("%w: %s.Delete takes a single id", types.ErrInvalidArgument, t.name)
		}
		return []any{key}, nil
	}
	if !isSeq || len(items) != len(t.schema.PrimaryKey) {
		return nil, t.tupleError(key)
	}
	for _, v := range items {
		if v == nil {
			return nil, t.notFound(items)
		}
	}
	return items, nil
}

// DeleteAll removes every record in one transaction.
func (t *table) DeleteAll() (int64, error) {
	o := t.backend.begin()
	defer o.end()
	if err := t.backend.readLock(); err != nil {
		return 0, err
	}
	defer t.backend.mu.RUnlock()

	var n int64
	err := o.transaction(func(tx *sql.Tx) error {
		res, err := o.exec(tx, t.event(types.OpDestroy), "DELETE FROM "+quoteIdent(t.name))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Fetch returns records whose columns equal the filter values.
func (t *table) Fetch(filter map[string]any) ([]*types.Record, error) {
	return t.Where(filter)
}

// selectRecords runs a SELECT over this table with the given condition and
// an optional limit, returning records in natural order.
func (t *table) selectRecords(cond condition, limit int) ([]*types.Record, error) {
	query := "SELECT " + selectList(t.schema) + " FROM " + quoteIdent(t.name)
	args := cond.binds
	if cond.where != "" {
		query += " WHERE " + cond.where
	}
	query += naturalOrder(t.schema)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args[:len(args):len(args)], limit)
	}

	o := t.backend.begin()
	defer o.end()
	if err := t.backend.readLock(); err != nil {
		return nil, err
	}
	defer t.backend.mu.RUnlock()

	rows, err := o.query(t.backend.db, t.event(types.OpLoad), query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []*types.Record
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.name, err)
	}
	return out, nil
}

func (t *table) scan(rows *sql.Rows) (*types.Record, error) {
	raw := make([]any, len(t.cols))
	dest := make([]any, len(t.cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", t.name, err)
	}
	rec := types.NewRecord(t.name)
	for i, c := range t.cols {
		rec.Set(c.Name, scanValue(c, raw[i]))
	}
	rec.MarkPersisted()
	return rec, nil
}

func (t *table) notFound(key []any) error {
	if key == nil {
		return fmt.Errorf("%w: couldn't find %s without an ID", types.ErrNotFound, t.name)
	}
	return fmt.Errorf("%w: couldn't find %s with %s", types.ErrNotFound, t.name, t.describeKey(key))
}

func (t *table) tupleError(got any) error {
	return fmt.Errorf("%w: expected corresponding value for %v to be a %d-element array, got %v",
		types.ErrInvalidArgument, t.schema.KeyColumns(), len(t.schema.KeyColumns()), got)
}

func (t *table) describeKey(key []any) string {
	cols := t.schema.KeyColumns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		var v any
		if i < len(key) {
			v = key[i]
		}
		parts[i] = fmt.Sprintf("'%s'=%v", c, v)
	}
	return strings.Join(parts, ", ")
}

// requireAffected returns notFound when the statement touched no rows.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// constraintError marks SQLite constraint violations as invalid data.
func constraintError(err error) error {
	if err != nil && strings.Contains(err.Error(), "constraint failed") {
		return fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return err
}

// isLookupError reports whether err belongs to the lookup taxonomy rather
// than a database failure.
func isLookupError(err error) bool {
	return errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrInvalidArgument) ||
		errors.Is(err, types.ErrTooManyResults)
}
