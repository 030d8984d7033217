package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Field is one column value of a record.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered mapping of column name to value for one table.
// It tracks which columns changed since it was last persisted.
type Record struct {
	table     string
	fields    []Field
	changed   map[string]bool
	persisted bool
}

// NewRecord returns an empty, unpersisted record for table.
func NewRecord(table string) *Record {
	return &Record{
		table:   table,
		changed: make(map[string]bool),
	}
}

// Table returns the name of the table the record belongs to.
func (r *Record) Table() string {
	return r.table
}

// With sets name to value and returns r, for building records inline.
func (r *Record) With(name string, value any) *Record {
	r.Set(name, value)
	return r
}

// Set assigns value to name. The column is marked changed unless the
// record already holds an equal value.
func (r *Record) Set(name string, value any) {
	for i := range r.fields {
		if r.fields[i].Name != name {
			continue
		}
		if reflect.DeepEqual(r.fields[i].Value, value) {
			return
		}
		r.fields[i].Value = value
		r.markChanged(name)
		return
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
	r.markChanged(name)
}

func (r *Record) markChanged(name string) {
	if r.changed == nil {
		r.changed = make(map[string]bool)
	}
	r.changed[name] = true
}

// Get returns the value of name and whether the record holds it.
func (r *Record) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Value returns the value of name, or nil when absent.
func (r *Record) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// Has reports whether the record holds a value for name.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Fields returns a copy of the fields in order.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns the column names in order.
func (r *Record) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// SortFields moves the named fields to the front in the given order. Fields
// not named keep their relative order after them.
func (r *Record) SortFields(order []string) {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	sort.SliceStable(r.fields, func(i, j int) bool {
		ri, iok := rank[r.fields[i].Name]
		rj, jok := rank[r.fields[j].Name]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
}

// Map returns the fields as a map.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		out[f.Name] = f.Value
	}
	return out
}

// Changed reports whether name changed since the record was last persisted.
func (r *Record) Changed(name string) bool {
	return r.changed[name]
}

// ChangedNames returns the changed columns in field order.
func (r *Record) ChangedNames() []string {
	var out []string
	for _, f := range r.fields {
		if r.changed[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}

// Persisted reports whether the record was loaded from or written to a store.
func (r *Record) Persisted() bool {
	return r.persisted
}

// MarkPersisted clears the changed set and flags the record as stored.
// Backends call this after a successful write or load.
func (r *Record) MarkPersisted() {
	r.persisted = true
	r.changed = make(map[string]bool)
}

// MarkDeleted flags the record as no longer stored.
func (r *Record) MarkDeleted() {
	r.persisted = false
}

// MarshalJSON encodes the fields as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// recordFormat is the current MarshalBinary envelope version.
const recordFormat = 1

type recordEnvelope struct {
	Format    int               `json:"format"`
	Table     string            `json:"table"`
	Fields    []json.RawMessage `json:"fields"`
	Changed   []string          `json:"changed,omitempty"`
	Persisted bool              `json:"persisted"`
}

// MarshalBinary encodes the record including its changed set and
// persisted flag, so dirty tracking survives a round trip.
func (r *Record) MarshalBinary() ([]byte, error) {
	env := recordEnvelope{
		Format:    recordFormat,
		Table:     r.table,
		Fields:    make([]json.RawMessage, 0, len(r.fields)),
		Persisted: r.persisted,
	}
	for _, f := range r.fields {
		pair, err := json.Marshal([]any{f.Name, f.Value})
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.Name, err)
		}
		env.Fields = append(env.Fields, pair)
	}
	for name := range r.changed {
		env.Changed = append(env.Changed, name)
	}
	sort.Strings(env.Changed)
	return json.Marshal(env)
}

// UnmarshalBinary restores a record written by MarshalBinary. Integral
// numbers decode as int64 and other numbers as float64.
func (r *Record) UnmarshalBinary(data []byte) error {
	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if env.Format != recordFormat {
		return fmt.Errorf("%w: unsupported record format %d", ErrInvalidData, env.Format)
	}
	fields := make([]Field, 0, len(env.Fields))
	for _, raw := range env.Fields {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var pair []any
		if err := dec.Decode(&pair); err != nil || len(pair) != 2 {
			return fmt.Errorf("%w: malformed field %s", ErrInvalidData, raw)
		}
		name, ok := pair[0].(string)
		if !ok {
			return fmt.Errorf("%w: field name %v is not a string", ErrInvalidData, pair[0])
		}
		fields = append(fields, Field{Name: name, Value: FromJSONNumber(pair[1])})
	}
	r.table = env.Table
	r.fields = fields
	r.persisted = env.Persisted
	r.changed = make(map[string]bool, len(env.Changed))
	for _, name := range env.Changed {
		r.changed[name] = true
	}
	return nil
}

// FromJSONNumber converts a json.Number to int64 when integral and to
// float64 otherwise. Other values are returned unchanged.
func FromJSONNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
