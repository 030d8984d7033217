package sqlite

import (
	"strings"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// createSchemas holds the table definitions so a file-backed store knows its
// tables when it is attached again.
const createSchemas = `CREATE TABLE IF NOT EXISTS lookup_schemas (
    table_name TEXT PRIMARY KEY,
    definition TEXT NOT NULL,
    position INTEGER NOT NULL
)`

const (
	selectSchemas = `SELECT definition FROM lookup_schemas ORDER BY position`
	upsertSchema  = `INSERT INTO lookup_schemas (table_name, definition, position) VALUES (?, ?, ?)
    ON CONFLICT (table_name) DO UPDATE SET definition = excluded.definition`
)

// quoteIdent quotes an identifier. Schema validation already restricts
// names to [A-Za-z0-9_].
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualified returns "table"."column".
func qualified(table, column string) string {
	return quoteIdent(table) + "." + quoteIdent(column)
}

// dropTableSQL returns the DROP statement used by Define.
func dropTableSQL(s types.Schema) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(s.Table)
}

// createTableSQL renders the CREATE TABLE statement for s.
//
// Tables without a declared key get "id" INTEGER PRIMARY KEY AUTOINCREMENT.
// Declared keys become a table-level PRIMARY KEY constraint over the key
// columns in order, and key columns are NOT NULL.
func createTableSQL(s types.Schema) string {
	var defs []string
	if s.AutoID() {
		defs = append(defs, quoteIdent(types.DefaultKey)+" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL")
	}
	for _, c := range s.Columns {
		def := quoteIdent(c.Name) + " " + sqlTypes[c.Type]
		if !c.Null || s.IsKey(c.Name) {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if !s.AutoID() {
		keys := make([]string, len(s.PrimaryKey))
		for i, k := range s.PrimaryKey {
			keys[i] = quoteIdent(k)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}
	return "CREATE TABLE " + quoteIdent(s.Table) + " (" + strings.Join(defs, ", ") + ")"
}

// selectList returns the qualified column list of s in table order.
func selectList(s types.Schema) string {
	cols := s.AllColumns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = qualified(s.Table, c.Name)
	}
	return strings.Join(parts, ", ")
}

// naturalOrder is the ORDER BY clause for insertion order.
func naturalOrder(s types.Schema) string {
	return " ORDER BY " + quoteIdent(s.Table) + ".rowid ASC"
}

// keyPredicate renders a WHERE fragment matching any of n keys of s.
// Single-column keys use = or IN; composite keys use one parenthesised
// conjunction per tuple.
func keyPredicate(s types.Schema, n int) string {
	cols := s.KeyColumns()
	if len(cols) == 1 {
		col := qualified(s.Table, cols[0])
		if n == 1 {
			return col + " = ?"
		}
		return col + " IN (" + placeholders(n) + ")"
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = qualified(s.Table, c) + " = ?"
	}
	tuple := strings.Join(parts, " AND ")
	if n == 1 {
		return tuple
	}
	ors := make([]string, n)
	for i := range ors {
		ors[i] = "(" + tuple + ")"
	}
	return strings.Join(ors, " OR ")
}

// placeholders returns n comma-separated question marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
