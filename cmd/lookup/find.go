package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

func newFindCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "find <table> [key...]",
		Short: "Find records by primary key",
		Long: `Find resolves records by primary key. One key prints one record; several
keys, or --list, print an array in argument order. Composite keys are
written as comma-separated values in key column order.

Example:
  lookup find articles 1
  lookup find articles 1 2 3
  lookup find products 1,abc
  lookup find articles --list`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(args[0])
			if err != nil {
				return err
			}
			keys := make([]any, 0, len(args)-1)
			for _, arg := range args[1:] {
				k, err := parseKey(tbl.Schema(), arg)
				if err != nil {
					return err
				}
				keys = append(keys, k)
			}

			var res types.Result
			switch {
			case list:
				res, err = tbl.Find(keys)
			default:
				res, err = tbl.Find(keys...)
			}
			if err != nil {
				return err
			}
			if res.Plural {
				return printJSON(a.stdout, res.Records)
			}
			return printJSON(a.stdout, res.Record())
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "treat the keys as a list, printing an array even for zero or one key")
	return cmd
}

// conditionFlags collects the condition flags shared by find-by and
// find-sole-by.
type conditionFlags struct {
	where []string
	null  []string
	sql   string
	binds []string
	all   bool
}

// build turns the flags into lookup arguments against s. With no flags the
// condition is empty, which is unconstrained.
func (f *conditionFlags) build(s types.Schema) ([]any, error) {
	if f.sql != "" {
		if len(f.where) > 0 || len(f.null) > 0 {
			return nil, usageError{fmt.Errorf("--sql cannot be combined with --where or --null")}
		}
		args := make([]any, 0, len(f.binds)+1)
		args = append(args, f.sql)
		for _, b := range f.binds {
			args = append(args, b)
		}
		return args, nil
	}
	if len(f.binds) > 0 {
		return nil, usageError{fmt.Errorf("--arg requires --sql")}
	}

	cond := types.Conditions{}
	for _, w := range f.where {
		name, raw, ok := strings.Cut(w, "=")
		if !ok {
			return nil, usageError{fmt.Errorf("--where %q: expected column=value", w)}
		}
		col, ok := s.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s.%s", types.ErrInvalidArgument, types.ErrUnknownColumn, s.Table, name)
		}
		v, err := parseValue(col, raw)
		if err != nil {
			return nil, err
		}
		cond[name] = v
	}
	for _, name := range f.null {
		cond[name] = nil
	}
	return []any{cond}, nil
}

func newFindByCmd(a *app, use string) *cobra.Command {
	var f conditionFlags
	sole := use == "find-sole-by"

	short := "Print the first record matching the conditions, or null"
	if sole {
		short = "Print the only record matching the conditions"
	}
	cmd := &cobra.Command{
		Use:   use + " <table>",
		Short: short,
		Long: short + `.

Conditions are column equalities (--where col=value, --null col) or a raw
predicate with positional values (--sql "rating > ?" --arg 3). With no
conditions the lookup is unconstrained.

Example:
  lookup ` + use + ` articles --where rating=5
  lookup ` + use + ` articles --null title
  lookup ` + use + ` articles --sql "rating > ? AND title LIKE ?" --arg 3 --arg "First%"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(args[0])
			if err != nil {
				return err
			}
			lookupArgs, err := f.build(tbl.Schema())
			if err != nil {
				return err
			}

			if f.all {
				recs, err := tbl.Where(lookupArgs...)
				if err != nil {
					return err
				}
				if recs == nil {
					recs = []*types.Record{}
				}
				return printJSON(a.stdout, recs)
			}

			var rec *types.Record
			if sole {
				rec, err = tbl.FindSoleBy(lookupArgs...)
			} else {
				rec, err = tbl.FindBy(lookupArgs...)
			}
			if err != nil {
				return err
			}
			return printJSON(a.stdout, rec)
		},
	}
	cmd.Flags().StringArrayVar(&f.where, "where", nil, "column=value equality (repeatable)")
	cmd.Flags().StringArrayVar(&f.null, "null", nil, "column that must be NULL (repeatable)")
	cmd.Flags().StringVar(&f.sql, "sql", "", "raw predicate with ? placeholders")
	cmd.Flags().StringArrayVar(&f.binds, "arg", nil, "value for the next ? in --sql (repeatable)")
	cmd.Flags().BoolVar(&f.all, "all", false, "print every matching record instead")
	return cmd
}
