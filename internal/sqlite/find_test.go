// Tests for identifier lookup.
package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

func TestFind_SingleColumnKey(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	first := createArticle(t, articles, "First Article", 5)
	second := createArticle(t, articles, "Second Article", 3)

	tests := []struct {
		name       string
		args       []any
		wantIDs    []int64
		wantPlural bool
		wantErr    error
	}{
		{name: "scalar id", args: []any{first.Value("id")}, wantIDs: []int64{1}},
		{name: "string id matches integer key", args: []any{"2"}, wantIDs: []int64{2}},
		{name: "zero-padded text id", args: []any{"01"}, wantIDs: []int64{1}},
		{name: "decimal text id", args: []any{"1.0"}, wantIDs: []int64{1}},
		{name: "space-padded text id", args: []any{" 1"}, wantIDs: []int64{1}},
		{name: "integral float id", args: []any{2.0}, wantIDs: []int64{2}},
		{name: "fractional text id", args: []any{"1.5"}, wantErr: types.ErrNotFound},
		{name: "non-numeric text id", args: []any{"one"}, wantErr: types.ErrNotFound},
		{name: "equal ids in different forms collapse", args: []any{[]any{"01", 1}}, wantIDs: []int64{1}, wantPlural: true},
		{name: "missing scalar id", args: []any{99}, wantErr: types.ErrNotFound},
		{name: "nil argument", args: []any{nil}, wantErr: types.ErrNotFound},
		{name: "no argument", args: nil, wantErr: types.ErrNotFound},
		{name: "empty sequence", args: []any{[]any{}}, wantIDs: []int64{}, wantPlural: true},
		{name: "empty typed sequence", args: []any{[]int{}}, wantIDs: []int64{}, wantPlural: true},
		{name: "sequence keeps argument order", args: []any{[]int64{2, 1}}, wantIDs: []int64{2, 1}, wantPlural: true},
		{name: "one-element sequence is plural", args: []any{[]any{1}}, wantIDs: []int64{1}, wantPlural: true},
		{name: "discrete scalars act as a sequence", args: []any{1, 2}, wantIDs: []int64{1, 2}, wantPlural: true},
		{name: "duplicate ids collapse", args: []any{[]int{1, 1}}, wantIDs: []int64{1}, wantPlural: true},
		{name: "nested sequence among scalars", args: []any{[]any{1}, 99}, wantErr: types.ErrInvalidArgument},
		{name: "partly missing sequence", args: []any{[]int{1, 99}}, wantErr: types.ErrNotFound},
		{name: "missing one-element sequence", args: []any{[]int{99}}, wantErr: types.ErrNotFound},
		{name: "nil inside sequence", args: []any{[]any{1, nil}}, wantErr: types.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := articles.Find(tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlural, res.Plural)
			got := make([]int64, 0, res.Len())
			for _, r := range res.Records {
				got = append(got, r.Value("id").(int64))
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}

	res, err := articles.Find(second.Value("id"))
	require.NoError(t, err)
	assert.Equal(t, "Second Article", res.Record().Value("title"))
	assert.Equal(t, int64(3), res.Record().Value("rating"))
	assert.True(t, res.Record().Persisted())
}

func TestFind_EveryRecordByItsOwnID(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	var created []*types.Record
	for i := 0; i < 10; i++ {
		created = append(created, createArticle(t, articles, "Article", i))
	}

	for _, want := range created {
		res, err := articles.Find(want.Value("id"))
		require.NoError(t, err)
		assert.False(t, res.Plural)
		assert.Equal(t, want.Map(), res.Record().Map())
	}
}

func TestFind_EmptyTable(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")

	_, err := articles.Find(1)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = articles.Find([]int{1})
	assert.ErrorIs(t, err, types.ErrNotFound)

	res, err := articles.Find([]int{})
	require.NoError(t, err)
	assert.True(t, res.Plural)
	assert.Equal(t, 0, res.Len())
	assert.NotNil(t, res.Records)
}

func TestFind_CompositeKey(t *testing.T) {
	b := setupBackend(t)
	products := mustTable(t, b, "products")
	createProduct(t, products, 1, "2", "document")
	createProduct(t, products, 2, "3", "exception")

	tests := []struct {
		name       string
		args       []any
		wantDescs  []string
		wantPlural bool
		wantErr    error
	}{
		{name: "tuple finds one record", args: []any{[]any{1, 2}}, wantDescs: []string{"document"}},
		{name: "typed tuple", args: []any{[]any{int64(2), "3"}}, wantDescs: []string{"exception"}},
		{name: "numeric text in integer key column", args: []any{[]any{"01", "2"}}, wantDescs: []string{"document"}},
		{name: "discrete scalars are invalid", args: []any{2, 3}, wantErr: types.ErrInvalidArgument},
		{name: "lone scalar is invalid", args: []any{2}, wantErr: types.ErrInvalidArgument},
		{name: "short tuple is invalid", args: []any{[]any{1}}, wantErr: types.ErrInvalidArgument},
		{name: "long tuple is invalid", args: []any{[]any{1, 2, 3}}, wantErr: types.ErrInvalidArgument},
		{name: "missing tuple", args: []any{[]any{9, 9}}, wantErr: types.ErrNotFound},
		{name: "nil component", args: []any{[]any{1, nil}}, wantErr: types.ErrNotFound},
		{name: "nil argument", args: []any{nil}, wantErr: types.ErrNotFound},
		{name: "no argument", args: nil, wantErr: types.ErrNotFound},
		{name: "empty sequence", args: []any{[]any{}}, wantDescs: []string{}, wantPlural: true},
		{
			name:       "sequence of tuples",
			args:       []any{[][]any{{2, "3"}, {1, "2"}}},
			wantDescs:  []string{"exception", "document"},
			wantPlural: true,
		},
		{
			name:       "several tuple arguments",
			args:       []any{[]any{1, "2"}, []any{2, "3"}},
			wantDescs:  []string{"document", "exception"},
			wantPlural: true,
		},
		{name: "tuple list with a missing tuple", args: []any{[][]any{{1, "2"}, {7, "7"}}}, wantErr: types.ErrNotFound},
		{name: "mixed tuple and scalar arguments", args: []any{[]any{1, "2"}, 3}, wantErr: types.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := products.Find(tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlural, res.Plural)
			got := make([]string, 0, res.Len())
			for _, r := range res.Records {
				got = append(got, r.Value("description").(string))
			}
			assert.Equal(t, tt.wantDescs, got)
		})
	}

	res, err := products.Find([]any{1, 2})
	require.NoError(t, err)
	rec := res.Record()
	assert.Equal(t, int64(1), rec.Value("store_id"))
	assert.Equal(t, "2", rec.Value("sku"))
}

func TestFind_InvalidArgumentIsNotNotFound(t *testing.T) {
	b := setupBackend(t)
	products := mustTable(t, b, "products")

	_, err := products.Find(2, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.NotErrorIs(t, err, types.ErrNotFound)
}
