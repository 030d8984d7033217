package sqlite

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// Find resolves identifiers. See types.Table for the argument contract.
func (t *table) Find(args ...any) (res types.Result, err error) {
	defer func() { t.observe("find", res.Len() > 0, err) }()

	if len(args) == 0 {
		return types.Result{}, t.notFound(nil)
	}
	if t.schema.Composite() {
		return t.findComposite(args)
	}
	return t.findSingle(args)
}

// findSingle handles single-column keys: a scalar, one sequence, or several
// discrete scalars.
func (t *table) findSingle(args []any) (types.Result, error) {
	ids := args
	plural := len(args) > 1
	if len(args) == 1 {
		if args[0] == nil {
			return types.Result{}, t.notFound(nil)
		}
		if items, ok := sequence(args[0]); ok {
			ids = items
			plural = true
		}
	}

	keys := make([][]any, len(ids))
	for i, id := range ids {
		if _, nested := sequence(id); nested {
			return types.Result{}, fmt.Errorf("%w: nested id list for %s", types.ErrInvalidArgument, t.name)
		}
		keys[i] = []any{id}
	}
	return t.findKeys(keys, plural)
}

// findComposite handles composite keys. One tuple is a singular lookup; a
// sequence of tuples, or several tuple arguments, is plural. Discrete
// scalars are rejected.
func (t *table) findComposite(args []any) (types.Result, error) {
	if len(args) > 1 {
		keys := make([][]any, len(args))
		for i, a := range args {
			items, ok := sequence(a)
			if !ok {
				return types.Result{}, fmt.Errorf("%w: %s has a composite key %v; pass each key as one array, got %d discrete arguments",
					types.ErrInvalidArgument, t.name, t.schema.KeyColumns(), len(args))
			}
			keys[i] = items
		}
		return t.findTuples(keys, true)
	}

	arg := args[0]
	if arg == nil {
		return types.Result{}, t.notFound(nil)
	}
	items, ok := sequence(arg)
	if !ok {
		return types.Result{}, t.tupleError(arg)
	}
	if len(items) == 0 {
		return types.Result{Records: []*types.Record{}, Plural: true}, nil
	}
	if _, nested := sequence(items[0]); nested {
		keys := make([][]any, len(items))
		for i, item := range items {
			tuple, ok := sequence(item)
			if !ok {
				return types.Result{}, t.tupleError(item)
			}
			keys[i] = tuple
		}
		return t.findTuples(keys, true)
	}
	return t.findTuples([][]any{items}, false)
}

func (t *table) findTuples(keys [][]any, plural bool) (types.Result, error) {
	width := len(t.schema.PrimaryKey)
	for _, k := range keys {
		if len(k) != width {
			return types.Result{}, t.tupleError(k)
		}
	}
	return t.findKeys(keys, plural)
}

// findKeys loads the records for keys and returns them in argument order.
// Duplicate keys are looked up once. Every key must exist.
func (t *table) findKeys(keys [][]any, plural bool) (types.Result, error) {
	if len(keys) == 0 {
		return types.Result{Records: []*types.Record{}, Plural: plural}, nil
	}

	var unique [][]any
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		for _, v := range k {
			if v == nil {
				return types.Result{}, t.notFound(k)
			}
		}
		k = t.keyValues(k)
		ks := keyString(k)
		if seen[ks] {
			continue
		}
		seen[ks] = true
		unique = append(unique, k)
	}

	var binds []any
	for _, k := range unique {
		binds = append(binds, bindValues(k)...)
	}
	cond := condition{where: keyPredicate(t.schema, len(unique)), binds: binds}
	limit := 0
	if len(unique) == 1 {
		limit = 1
	}
	recs, err := t.selectRecords(cond, limit)
	if err != nil {
		return types.Result{}, err
	}

	byKey := make(map[string]*types.Record, len(recs))
	for _, r := range recs {
		byKey[keyString(t.schema.KeyOf(r))] = r
	}
	out := make([]*types.Record, 0, len(unique))
	for _, k := range unique {
		r, ok := byKey[keyString(k)]
		if !ok {
			if len(unique) == 1 {
				return types.Result{}, t.notFound(k)
			}
			return types.Result{}, fmt.Errorf("%w: couldn't find all %s with %v (found %d results, but was looking for %d)",
				types.ErrNotFound, t.name, t.schema.KeyColumns(), len(recs), len(unique))
		}
		out = append(out, r)
	}
	return types.Result{Records: out, Plural: plural}, nil
}

// keyValues converts one key tuple to the types of the key columns.
func (t *table) keyValues(key []any) []any {
	out := make([]any, len(key))
	for i, name := range t.schema.KeyColumns() {
		col, _ := t.schema.Column(name)
		out[i] = keyValue(col, key[i])
	}
	return out
}

// observe records a lookup outcome and logs failures that are not part of
// the lookup contract.
func (t *table) observe(method string, found bool, err error) {
	t.backend.metrics.observeLookup(t.name, method, found, err)
	if err != nil && !isLookupError(err) {
		t.backend.logger.Warn("lookup failed",
			zap.String("table", t.name),
			zap.String("method", method),
			zap.Error(err))
	}
}
