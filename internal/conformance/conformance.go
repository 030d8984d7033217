// Package conformance checks a types.Store against the lookup contract.
// Each check defines fresh tables, seeds the records it needs, and
// verifies one property of Find, FindBy or FindSoleBy.
package conformance

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// Fixture tables used by the checks. Defining them replaces any existing
// table of the same name.
var (
	ArticlesSchema = types.Schema{
		Table: "articles",
		Columns: []types.Column{
			{Name: "title", Type: types.TypeString, Null: true},
			{Name: "rating", Type: types.TypeInteger, Null: true},
			{Name: "published_at", Type: types.TypeDatetime, Null: true},
		},
	}
	ProductsSchema = types.Schema{
		Table:      "products",
		PrimaryKey: []string{"store_id", "sku"},
		Columns: []types.Column{
			{Name: "store_id", Type: types.TypeInteger},
			{Name: "sku", Type: types.TypeString},
			{Name: "description", Type: types.TypeText, Null: true},
		},
	}
)

// Result is the outcome of one check.
type Result struct {
	Name string
	Err  error
}

// Passed reports whether the check succeeded.
func (r Result) Passed() bool {
	return r.Err == nil
}

// Report collects the results of a run in execution order.
type Report struct {
	Results []Result
}

// Failed returns the failing results.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

type check struct {
	name string
	run  func(f *fixture) error
}

var checks = []check{
	{"scalar id finds the record", checkScalarFind},
	{"empty sequence finds nothing without error", checkEmptySequence},
	{"nil or missing id is not found", checkNilFind},
	{"composite key takes one tuple", checkCompositeFind},
	{"nil condition value matches null", checkNullCondition},
	{"zero conditions find the first record", checkUnconstrained},
	{"missing condition argument is invalid", checkMissingCondition},
	{"sole match by rating", checkSoleByRating},
	{"sole match counts matches", checkSoleCounts},
}

// Run executes every check against store, which must be attached, and
// writes one PASS or FAIL line per check to w. The returned error reports
// a failure to set up the fixture tables, not a failed check.
func Run(store types.Store, w io.Writer) (Report, error) {
	var report Report
	for _, c := range checks {
		f, err := newFixture(store)
		if err != nil {
			return report, fmt.Errorf("preparing %q: %w", c.name, err)
		}
		res := Result{Name: c.name, Err: c.run(f)}
		report.Results = append(report.Results, res)
		if res.Passed() {
			fmt.Fprintf(w, "PASS %s\n", res.Name)
		} else {
			fmt.Fprintf(w, "FAIL %s: %v\n", res.Name, res.Err)
		}
	}
	return report, nil
}

// fixture holds freshly defined tables for one check.
type fixture struct {
	articles types.Table
	products types.Table
}

func newFixture(store types.Store) (*fixture, error) {
	if err := store.Define(ArticlesSchema, ProductsSchema); err != nil {
		return nil, err
	}
	articles, err := store.GetTable(ArticlesSchema.Table)
	if err != nil {
		return nil, err
	}
	products, err := store.GetTable(ProductsSchema.Table)
	if err != nil {
		return nil, err
	}
	return &fixture{articles: articles, products: products}, nil
}

func (f *fixture) article(title any, rating any) (*types.Record, error) {
	rec := types.NewRecord(ArticlesSchema.Table).
		With("title", title).
		With("rating", rating).
		With("published_at", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	return rec, f.articles.Create(rec)
}

// expectErr reports a mismatch when err does not wrap want.
func expectErr(label string, err, want error) error {
	if !errors.Is(err, want) {
		return fmt.Errorf("%s: want %v, got %v", label, want, err)
	}
	return nil
}

func sameID(got *types.Record, want *types.Record) error {
	if got == nil {
		return fmt.Errorf("want record %v, got nil", want.Value("id"))
	}
	if fmt.Sprint(got.Value("id")) != fmt.Sprint(want.Value("id")) {
		return fmt.Errorf("want record %v, got %v", want.Value("id"), got.Value("id"))
	}
	return nil
}

func checkScalarFind(f *fixture) error {
	var recs []*types.Record
	for _, title := range []string{"First Article", "Second Article", "Third Article"} {
		rec, err := f.article(title, 1)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	for _, want := range recs {
		res, err := f.articles.Find(want.Value("id"))
		if err != nil {
			return err
		}
		if res.Plural {
			return errors.New("scalar lookup returned a plural result")
		}
		if err := sameID(res.Record(), want); err != nil {
			return err
		}
	}
	return nil
}

func checkEmptySequence(f *fixture) error {
	if _, err := f.article("First Article", 1); err != nil {
		return err
	}
	res, err := f.articles.Find([]any{})
	if err != nil {
		return err
	}
	if !res.Plural || res.Len() != 0 {
		return fmt.Errorf("want empty plural result, got %d records (plural=%v)", res.Len(), res.Plural)
	}
	return nil
}

func checkNilFind(f *fixture) error {
	if _, err := f.article("First Article", 1); err != nil {
		return err
	}
	_, err := f.articles.Find(nil)
	if err := expectErr("Find(nil)", err, types.ErrNotFound); err != nil {
		return err
	}
	_, err = f.articles.Find()
	if err := expectErr("Find()", err, types.ErrNotFound); err != nil {
		return err
	}
	return nil
}

func checkCompositeFind(f *fixture) error {
	want := types.NewRecord(ProductsSchema.Table).With("store_id", 1).With("sku", "abc").With("description", "widget")
	if err := f.products.Create(want); err != nil {
		return err
	}
	other := types.NewRecord(ProductsSchema.Table).With("store_id", 2).With("sku", "abc")
	if err := f.products.Create(other); err != nil {
		return err
	}

	res, err := f.products.Find([]any{1, "abc"})
	if err != nil {
		return err
	}
	if got := res.Record(); got == nil || got.Value("description") != "widget" {
		return fmt.Errorf("tuple lookup returned %v", got)
	}

	_, err = f.products.Find(1, "abc")
	if err := expectErr("discrete key values", err, types.ErrInvalidArgument); err != nil {
		return err
	}
	if errors.Is(err, types.ErrNotFound) {
		return errors.New("discrete key values reported as not found")
	}
	return nil
}

func checkNullCondition(f *fixture) error {
	if _, err := f.article("First Article", 1); err != nil {
		return err
	}
	rec, err := f.articles.FindBy(types.Conditions{"title": nil})
	if err != nil {
		return err
	}
	if rec != nil {
		return fmt.Errorf("no null title exists, got record %v", rec.Value("id"))
	}

	untitled, err := f.article(nil, 2)
	if err != nil {
		return err
	}
	rec, err = f.articles.FindBy(types.Conditions{"title": nil})
	if err != nil {
		return err
	}
	return sameID(rec, untitled)
}

func checkUnconstrained(f *fixture) error {
	first, err := f.article("First Article", 3)
	if err != nil {
		return err
	}
	if _, err := f.article("Second Article", 1); err != nil {
		return err
	}
	for _, arg := range []any{types.Conditions{}, nil, ""} {
		rec, err := f.articles.FindBy(arg)
		if err != nil {
			return fmt.Errorf("FindBy(%#v): %w", arg, err)
		}
		if err := sameID(rec, first); err != nil {
			return fmt.Errorf("FindBy(%#v): %w", arg, err)
		}
	}
	return nil
}

func checkMissingCondition(f *fixture) error {
	if _, err := f.article("First Article", 1); err != nil {
		return err
	}
	_, err := f.articles.FindBy()
	if err := expectErr("FindBy()", err, types.ErrInvalidArgument); err != nil {
		return err
	}
	_, err = f.articles.FindSoleBy()
	if err := expectErr("FindSoleBy()", err, types.ErrInvalidArgument); err != nil {
		return err
	}
	return nil
}

func checkSoleByRating(f *fixture) error {
	first, err := f.article("First Article", 5)
	if err != nil {
		return err
	}
	rec, err := f.articles.FindSoleBy(types.Predicate("rating = ?", 5))
	if err != nil {
		return err
	}
	if err := sameID(rec, first); err != nil {
		return err
	}

	if _, err := f.article("Second Article", 5); err != nil {
		return err
	}
	_, err = f.articles.FindSoleBy("rating = ?", 5)
	return expectErr("second rating 5", err, types.ErrTooManyResults)
}

func checkSoleCounts(f *fixture) error {
	one, err := f.article("One", 1)
	if err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if _, err := f.article("Two", 2); err != nil {
			return err
		}
	}

	rec, err := f.articles.FindSoleBy(types.Conditions{"rating": 1})
	if err != nil {
		return fmt.Errorf("one match: %w", err)
	}
	if err := sameID(rec, one); err != nil {
		return err
	}
	_, err = f.articles.FindSoleBy(types.Conditions{"rating": 2})
	if err := expectErr("two matches", err, types.ErrTooManyResults); err != nil {
		return err
	}
	_, err = f.articles.FindSoleBy(types.Conditions{"rating": 3})
	if err := expectErr("no match", err, types.ErrNotFound); err != nil {
		return err
	}
	return nil
}
