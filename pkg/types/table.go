package types

import "errors"

// Table provides record storage and the lookup contract for a single
// collection. Lookup methods take variadic arguments because the shape of
// the argument (absent, nil, scalar, sequence, tuple) selects the behavior.
type Table interface {
	// Name returns the table name.
	Name() string

	// Schema returns the table definition.
	Schema() Schema

	// Create inserts rec and marks it persisted. When the table uses the
	// implicit integer id and rec has none, the generated id is set on rec.
	Create(rec *Record) error

	// Update writes the changed columns of rec, addressed by its key.
	// Returns ErrNotFound if no record has that key.
	Update(rec *Record) error

	// Delete removes the record with the given key (a scalar, or a tuple
	// for composite keys). Returns ErrNotFound if no record has that key.
	Delete(key any) error

	// DeleteAll removes every record and returns how many were removed.
	DeleteAll() (int64, error)

	// Find looks records up by identifier.
	//
	// With no argument or a nil argument it returns ErrNotFound. A scalar
	// returns one record; a sequence returns a plural Result, empty for an
	// empty sequence. Composite-key tables take one sequence per tuple and
	// reject discrete scalars with ErrInvalidArgument.
	Find(args ...any) (Result, error)

	// FindBy returns the first record in natural order matching the
	// condition, or nil when nothing matches. Requires at least one
	// argument; see Conditions for the accepted forms.
	FindBy(args ...any) (*Record, error)

	// FindSoleBy returns the only record matching the condition.
	// Returns ErrNotFound on zero matches and ErrTooManyResults on more
	// than one.
	FindSoleBy(args ...any) (*Record, error)

	// Where returns every record matching the condition in natural order.
	Where(args ...any) ([]*Record, error)

	// Fetch returns all records matching the column filter. An empty
	// filter returns every record in the table.
	Fetch(filter map[string]any) ([]*Record, error)
}

// Result is the outcome of Find. Plural is set when the argument was a
// sequence, in which case Records may be empty.
type Result struct {
	Records []*Record
	Plural  bool
}

// Record returns the first record, or nil when the result is empty.
func (r Result) Record() *Record {
	if len(r.Records) == 0 {
		return nil
	}
	return r.Records[0]
}

// Len returns the number of records in the result.
func (r Result) Len() int {
	return len(r.Records)
}

// Lookup errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTooManyResults  = errors.New("more than one record matched")
)

// Table operation errors.
var (
	ErrInvalidData   = errors.New("invalid record data")
	ErrUnknownColumn = errors.New("unknown column")
	ErrInvalidSchema = errors.New("invalid schema")
)
