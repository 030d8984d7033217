package sqlite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// condition is a compiled WHERE fragment. An empty where is unconstrained.
type condition struct {
	where string
	binds []any
}

// compileCondition turns the arguments of FindBy, FindSoleBy, or Where into
// a condition. The accepted forms are documented on types.Conditions.
func (t *table) compileCondition(args []any) (condition, error) {
	if len(args) == 0 {
		return condition{}, fmt.Errorf("%w: wrong number of arguments (given 0, expected 1+)", types.ErrInvalidArgument)
	}
	first, rest := args[0], args[1:]

	switch v := first.(type) {
	case nil:
		if len(rest) > 0 {
			return condition{}, fmt.Errorf("%w: values given without a predicate", types.ErrInvalidArgument)
		}
		return condition{}, nil
	case string:
		return predicate(v, rest)
	case types.Conditions:
		if len(rest) > 0 {
			return condition{}, fmt.Errorf("%w: extra arguments after column conditions", types.ErrInvalidArgument)
		}
		return t.hashCondition(v)
	case map[string]any:
		if len(rest) > 0 {
			return condition{}, fmt.Errorf("%w: extra arguments after column conditions", types.ErrInvalidArgument)
		}
		return t.hashCondition(v)
	}

	items, ok := sequence(first)
	if !ok {
		return condition{}, fmt.Errorf("%w: unsupported condition of type %T", types.ErrInvalidArgument, first)
	}
	if len(rest) > 0 {
		return condition{}, fmt.Errorf("%w: extra arguments after array condition", types.ErrInvalidArgument)
	}
	if len(items) == 0 {
		return condition{}, nil
	}
	expr, ok := items[0].(string)
	if !ok {
		return condition{}, fmt.Errorf("%w: array condition must start with a predicate string, got %T", types.ErrInvalidArgument, items[0])
	}
	return predicate(expr, items[1:])
}

// hashCondition compiles column equality conditions. Keys are sorted so the
// SQL text is deterministic.
func (t *table) hashCondition(m map[string]any) (condition, error) {
	if len(m) == 0 {
		return condition{}, nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	var binds []any
	for _, name := range names {
		if _, ok := t.schema.Column(name); !ok {
			return condition{}, fmt.Errorf("%w: %w: %s.%s", types.ErrInvalidArgument, types.ErrUnknownColumn, t.name, name)
		}
		col := qualified(t.name, name)
		value := m[name]

		if value == nil {
			parts = append(parts, col+" IS NULL")
			continue
		}
		items, ok := sequence(value)
		if !ok {
			parts = append(parts, col+" = ?")
			binds = append(binds, bindValue(value))
			continue
		}

		var values []any
		hasNull := false
		for _, item := range items {
			if item == nil {
				hasNull = true
				continue
			}
			values = append(values, bindValue(item))
		}
		switch {
		case len(values) == 0 && hasNull:
			parts = append(parts, col+" IS NULL")
		case len(values) == 0:
			parts = append(parts, "1=0")
		case hasNull:
			parts = append(parts, "("+col+" IN ("+placeholders(len(values))+") OR "+col+" IS NULL)")
			binds = append(binds, values...)
		default:
			parts = append(parts, col+" IN ("+placeholders(len(values))+")")
			binds = append(binds, values...)
		}
	}
	return condition{where: strings.Join(parts, " AND "), binds: binds}, nil
}

// predicate compiles a raw expression with positional ? placeholders. A
// blank expression is unconstrained. A sequence value expands its
// placeholder into a list, so "id IN (?)" accepts a slice.
func predicate(expr string, values []any) (condition, error) {
	if strings.TrimSpace(expr) == "" {
		if len(values) > 0 {
			return condition{}, fmt.Errorf("%w: wrong number of bind variables (%d for 0)", types.ErrInvalidArgument, len(values))
		}
		return condition{}, nil
	}

	var sb strings.Builder
	var binds []any
	n := 0
	var quote rune
	for _, r := range expr {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			if n < len(values) {
				if items, ok := sequence(values[n]); ok {
					if len(items) == 0 {
						sb.WriteString("NULL")
					} else {
						sb.WriteString(placeholders(len(items)))
						binds = append(binds, bindValues(items)...)
					}
					n++
					continue
				}
				binds = append(binds, bindValue(values[n]))
			}
			n++
		}
		sb.WriteRune(r)
	}
	if n != len(values) {
		return condition{}, fmt.Errorf("%w: wrong number of bind variables (%d for %d) in: %s",
			types.ErrInvalidArgument, len(values), n, expr)
	}
	return condition{where: "(" + sb.String() + ")", binds: binds}, nil
}

// FindBy returns the first record in natural order matching the condition,
// or nil when nothing matches.
func (t *table) FindBy(args ...any) (rec *types.Record, err error) {
	defer func() { t.observe("find_by", rec != nil, err) }()

	cond, err := t.compileCondition(args)
	if err != nil {
		return nil, err
	}
	recs, err := t.selectRecords(cond, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// FindSoleBy returns the only record matching the condition. It reads at
// most two rows.
func (t *table) FindSoleBy(args ...any) (rec *types.Record, err error) {
	defer func() { t.observe("find_sole_by", rec != nil, err) }()

	cond, err := t.compileCondition(args)
	if err != nil {
		return nil, err
	}
	recs, err := t.selectRecords(cond, 2)
	if err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, fmt.Errorf("%w: couldn't find %s matching %s", types.ErrNotFound, t.name, describeCondition(cond))
	case 1:
		return recs[0], nil
	default:
		return nil, fmt.Errorf("%w: wanted only one %s matching %s", types.ErrTooManyResults, t.name, describeCondition(cond))
	}
}

// Where returns every record matching the condition in natural order.
func (t *table) Where(args ...any) (recs []*types.Record, err error) {
	defer func() { t.observe("where", len(recs) > 0, err) }()

	cond, err := t.compileCondition(args)
	if err != nil {
		return nil, err
	}
	return t.selectRecords(cond, 0)
}

func describeCondition(c condition) string {
	if c.where == "" {
		return "no conditions"
	}
	if len(c.binds) == 0 {
		return c.where
	}
	return fmt.Sprintf("%s %v", c.where, c.binds)
}
