package types

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ColumnType is the declared type of a column.
type ColumnType string

// Supported column types.
const (
	TypeInteger  ColumnType = "integer"
	TypeString   ColumnType = "string"
	TypeText     ColumnType = "text"
	TypeFloat    ColumnType = "float"
	TypeBoolean  ColumnType = "boolean"
	TypeDatetime ColumnType = "datetime"
	TypeBlob     ColumnType = "blob"
)

var validColumnTypes = map[ColumnType]bool{
	TypeInteger:  true,
	TypeString:   true,
	TypeText:     true,
	TypeFloat:    true,
	TypeBoolean:  true,
	TypeDatetime: true,
	TypeBlob:     true,
}

// DefaultKey is the implicit primary key column of tables that declare none.
const DefaultKey = "id"

// SchemasTable holds table definitions inside the database. User schemas
// may not use this name.
const SchemasTable = "lookup_schemas"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column describes one column of a table.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
	// Null permits NULL values. Key columns are never nullable.
	Null bool `json:"null,omitempty" yaml:"null,omitempty"`
}

// Schema describes a table: its columns in declared order and its primary
// key. A schema with no PrimaryKey gets an implicit auto-incrementing
// integer "id" column.
type Schema struct {
	Table      string   `json:"table" yaml:"table"`
	PrimaryKey []string `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Columns    []Column `json:"columns" yaml:"columns"`
}

// schemaFile is the YAML document layout of a schema file.
type schemaFile struct {
	Tables []Schema `yaml:"tables"`
}

// ParseSchemas decodes a YAML schema document and validates each table.
func ParseSchemas(data []byte) ([]Schema, error) {
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("%w: no tables defined", ErrInvalidSchema)
	}
	seen := make(map[string]bool, len(f.Tables))
	for _, s := range f.Tables {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Table] {
			return nil, fmt.Errorf("%w: table %q defined twice", ErrInvalidSchema, s.Table)
		}
		seen[s.Table] = true
	}
	return f.Tables, nil
}

// Validate checks names, types, and key columns.
func (s Schema) Validate() error {
	if !identPattern.MatchString(s.Table) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidSchema, s.Table)
	}
	if s.Table == SchemasTable {
		return fmt.Errorf("%w: table name %q is reserved", ErrInvalidSchema, s.Table)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if !identPattern.MatchString(c.Name) {
			return fmt.Errorf("%w: invalid column name %q in %s", ErrInvalidSchema, c.Name, s.Table)
		}
		if !validColumnTypes[c.Type] {
			return fmt.Errorf("%w: column %s.%s has unknown type %q", ErrInvalidSchema, s.Table, c.Name, c.Type)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: column %s.%s declared twice", ErrInvalidSchema, s.Table, c.Name)
		}
		seen[c.Name] = true
	}
	if len(s.PrimaryKey) == 0 {
		if seen[DefaultKey] {
			return fmt.Errorf("%w: %s declares %q without a primary key", ErrInvalidSchema, s.Table, DefaultKey)
		}
		return nil
	}
	keys := make(map[string]bool, len(s.PrimaryKey))
	for _, k := range s.PrimaryKey {
		if !seen[k] {
			return fmt.Errorf("%w: key column %s.%s is not declared", ErrInvalidSchema, s.Table, k)
		}
		if keys[k] {
			return fmt.Errorf("%w: key column %s.%s listed twice", ErrInvalidSchema, s.Table, k)
		}
		keys[k] = true
	}
	return nil
}

// KeyColumns returns the primary key columns in declared order.
func (s Schema) KeyColumns() []string {
	if len(s.PrimaryKey) == 0 {
		return []string{DefaultKey}
	}
	out := make([]string, len(s.PrimaryKey))
	copy(out, s.PrimaryKey)
	return out
}

// Composite reports whether the key spans more than one column.
func (s Schema) Composite() bool {
	return len(s.PrimaryKey) > 1
}

// AutoID reports whether the table uses the implicit integer id.
func (s Schema) AutoID() bool {
	return len(s.PrimaryKey) == 0
}

// AllColumns returns every column including the implicit id, in table order.
func (s Schema) AllColumns() []Column {
	if !s.AutoID() {
		out := make([]Column, len(s.Columns))
		copy(out, s.Columns)
		return out
	}
	out := make([]Column, 0, len(s.Columns)+1)
	out = append(out, Column{Name: DefaultKey, Type: TypeInteger})
	return append(out, s.Columns...)
}

// Column looks up a column by name, including the implicit id.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.AllColumns() {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsKey reports whether name is a primary key column.
func (s Schema) IsKey(name string) bool {
	for _, k := range s.KeyColumns() {
		if k == name {
			return true
		}
	}
	return false
}

// KeyOf extracts the key values of rec in key column order. Missing
// components are returned as nil.
func (s Schema) KeyOf(rec *Record) []any {
	cols := s.KeyColumns()
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = rec.Value(c)
	}
	return out
}
