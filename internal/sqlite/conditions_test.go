// Tests for condition lookups: FindBy, FindSoleBy and Where.
package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

func titles(recs []*types.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		s, _ := r.Value("title").(string)
		out = append(out, s)
	}
	return out
}

func TestFindBy(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	createArticle(t, articles, "First Article", 5)
	createArticle(t, articles, "Second Article", 5)
	createArticle(t, articles, nil, 2)

	tests := []struct {
		name      string
		args      []any
		wantTitle any
		wantNil   bool
		wantErr   error
	}{
		{name: "hash equality", args: []any{types.Conditions{"rating": 2}}, wantTitle: nil},
		{name: "plain map", args: []any{map[string]any{"title": "Second Article"}}, wantTitle: "Second Article"},
		{name: "first in natural order", args: []any{types.Conditions{"rating": 5}}, wantTitle: "First Article"},
		{name: "nil value matches null", args: []any{types.Conditions{"title": nil}}, wantTitle: nil},
		{name: "slice value is IN", args: []any{types.Conditions{"rating": []int{2, 7}}}, wantTitle: nil},
		{name: "empty slice matches nothing", args: []any{types.Conditions{"rating": []int{}}}, wantNil: true},
		{name: "predicate with binds", args: []any{"rating > ? AND title LIKE ?", 3, "Second%"}, wantTitle: "Second Article"},
		{name: "predicate with list bind", args: []any{"rating IN (?)", []int{2}}, wantTitle: nil},
		{name: "predicate ignores quoted marks", args: []any{"title <> '?' AND rating = ?", 5}, wantTitle: "First Article"},
		{name: "array form", args: []any{[]any{"title = ?", "Second Article"}}, wantTitle: "Second Article"},
		{name: "no match", args: []any{types.Conditions{"title": "Missing"}}, wantNil: true},
		{name: "nil is unconstrained", args: []any{nil}, wantTitle: "First Article"},
		{name: "empty string is unconstrained", args: []any{""}, wantTitle: "First Article"},
		{name: "empty conditions are unconstrained", args: []any{types.Conditions{}}, wantTitle: "First Article"},
		{name: "no arguments", args: nil, wantErr: types.ErrInvalidArgument},
		{name: "unknown column", args: []any{types.Conditions{"nope": 1}}, wantErr: types.ErrUnknownColumn},
		{name: "too few binds", args: []any{"rating = ? AND title = ?", 5}, wantErr: types.ErrInvalidArgument},
		{name: "too many binds", args: []any{"rating = ?", 5, 6}, wantErr: types.ErrInvalidArgument},
		{name: "binds after blank predicate", args: []any{"  ", 5}, wantErr: types.ErrInvalidArgument},
		{name: "extra args after conditions", args: []any{types.Conditions{"rating": 5}, 1}, wantErr: types.ErrInvalidArgument},
		{name: "unsupported condition type", args: []any{42}, wantErr: types.ErrInvalidArgument},
		{name: "array form without predicate", args: []any{[]any{5}}, wantErr: types.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := articles.FindBy(tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rec)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantTitle, rec.Value("title"))
		})
	}
}

func TestFindBy_UnknownColumnIsInvalidArgument(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")

	_, err := articles.FindBy(types.Conditions{"nope": 1})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.ErrorIs(t, err, types.ErrUnknownColumn)
	assert.NotErrorIs(t, err, types.ErrNotFound)
}

func TestFindBy_MissIsNotAnError(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")

	rec, err := articles.FindBy(types.Conditions{"rating": 5})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFindSoleBy(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	first := createArticle(t, articles, "First Article", 5)

	rec, err := articles.FindSoleBy("rating = ?", 5)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, first.Value("id"), rec.Value("id"))
	assert.Equal(t, "First Article", rec.Value("title"))

	createArticle(t, articles, "Second Article", 5)

	rec, err = articles.FindSoleBy("rating = ?", 5)
	assert.ErrorIs(t, err, types.ErrTooManyResults)
	assert.Nil(t, rec)

	rec, err = articles.FindSoleBy(types.Conditions{"title": "Second Article"})
	require.NoError(t, err)
	assert.Equal(t, "Second Article", rec.Value("title"))
}

func TestFindSoleBy_Errors(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	createArticle(t, articles, "First Article", 5)

	tests := []struct {
		name    string
		args    []any
		wantErr error
	}{
		{name: "no match", args: []any{types.Conditions{"rating": 1}}, wantErr: types.ErrNotFound},
		{name: "no arguments", args: nil, wantErr: types.ErrInvalidArgument},
		{name: "unknown column", args: []any{types.Conditions{"nope": 1}}, wantErr: types.ErrUnknownColumn},
		{name: "bind mismatch", args: []any{"rating = ?"}, wantErr: types.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := articles.FindSoleBy(tt.args...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, rec)
		})
	}
}

func TestFindSoleBy_UnconstrainedOnSingleRecordTable(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	createArticle(t, articles, "Only", 1)

	rec, err := articles.FindSoleBy(nil)
	require.NoError(t, err)
	assert.Equal(t, "Only", rec.Value("title"))

	createArticle(t, articles, "Another", 1)
	_, err = articles.FindSoleBy(nil)
	assert.ErrorIs(t, err, types.ErrTooManyResults)
}

func TestFindSoleBy_ReadsAtMostTwoRows(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	for i := 0; i < 5; i++ {
		createArticle(t, articles, "Same", 5)
	}

	var loads []types.Event
	unsubscribe := b.Subscribe(types.SubscriberFuncs{
		OnFinish: func(ev types.Event) {
			if ev.Name == types.TableEvent("articles", types.OpLoad) {
				loads = append(loads, ev)
			}
		},
	})
	defer unsubscribe()

	_, err := articles.FindSoleBy(types.Conditions{"title": "Same"})
	require.ErrorIs(t, err, types.ErrTooManyResults)
	require.Len(t, loads, 1)
	assert.Contains(t, loads[0].SQL, "LIMIT ?")
	assert.Equal(t, 2, loads[0].Binds[len(loads[0].Binds)-1])
}

func TestWhere_NaturalOrder(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	createArticle(t, articles, "c", 1)
	createArticle(t, articles, "a", 1)
	createArticle(t, articles, "b", 2)

	recs, err := articles.Where(types.Conditions{"rating": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, titles(recs))

	recs, err = articles.Where(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, titles(recs))

	recs, err = articles.Fetch(map[string]any{"rating": 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, titles(recs))
}

func TestFindBy_CompositeTable(t *testing.T) {
	b := setupBackend(t)
	products := mustTable(t, b, "products")
	createProduct(t, products, 1, "a", "first")
	createProduct(t, products, 1, "b", "second")

	rec, err := products.FindBy(types.Conditions{"store_id": 1})
	require.NoError(t, err)
	assert.Equal(t, "first", rec.Value("description"))

	rec, err = products.FindSoleBy(types.Conditions{"store_id": 1, "sku": "b"})
	require.NoError(t, err)
	assert.Equal(t, "second", rec.Value("description"))
}

func TestPredicate(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		values    []any
		wantWhere string
		wantBinds []any
		wantErr   bool
	}{
		{name: "blank", expr: "", wantWhere: ""},
		{name: "single bind", expr: "a = ?", values: []any{1}, wantWhere: "(a = ?)", wantBinds: []any{1}},
		{name: "list bind", expr: "a IN (?)", values: []any{[]int{1, 2}}, wantWhere: "(a IN (?, ?))", wantBinds: []any{1, 2}},
		{name: "empty list bind", expr: "a IN (?)", values: []any{[]int{}}, wantWhere: "(a IN (NULL))"},
		{name: "quoted mark", expr: "a = '?'", wantWhere: "(a = '?')"},
		{name: "bool bind", expr: "a = ?", values: []any{true}, wantWhere: "(a = ?)", wantBinds: []any{int64(1)}},
		{name: "missing bind", expr: "a = ? OR b = ?", values: []any{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := predicate(tt.expr, tt.values)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWhere, c.where)
			assert.Equal(t, tt.wantBinds, c.binds)
		})
	}
}
