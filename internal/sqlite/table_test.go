// Tests for record writes: Create, Update, Delete and DeleteAll.
package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

func TestCreate_AssignsIDAndFillsColumns(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")

	rec := types.NewRecord("articles").With("title", "Hello")
	require.NoError(t, articles.Create(rec))

	assert.True(t, rec.Persisted())
	assert.Empty(t, rec.ChangedNames())
	assert.Equal(t, []string{"id", "title", "rating", "published_at"}, rec.Names())
	assert.Equal(t, int64(1), rec.Value("id"))
	assert.Nil(t, rec.Value("rating"))

	res, err := articles.Find(1)
	require.NoError(t, err)
	assert.Equal(t, rec.Map(), res.Record().Map())
}

func TestCreate_NormalizesValues(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")

	local := time.Date(2024, 1, 10, 14, 0, 0, 0, time.FixedZone("EET", 2*60*60))
	rec := types.NewRecord("articles").
		With("title", "Zoned").
		With("rating", int32(4)).
		With("published_at", local)
	require.NoError(t, articles.Create(rec))

	assert.Equal(t, int64(4), rec.Value("rating"))
	assert.Equal(t, refTime, rec.Value("published_at"))

	got, err := articles.FindBy(types.Conditions{"published_at": refTime})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Map(), got.Map())
}

func TestCreate_Errors(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	products := mustTable(t, b, "products")
	createProduct(t, products, 1, "a", "first")

	tests := []struct {
		name    string
		tbl     types.Table
		rec     *types.Record
		wantErr error
	}{
		{name: "nil record", tbl: articles, rec: nil, wantErr: types.ErrInvalidData},
		{name: "wrong table", tbl: articles, rec: types.NewRecord("products"), wantErr: types.ErrInvalidData},
		{name: "unknown column", tbl: articles, rec: types.NewRecord("articles").With("body", "x"), wantErr: types.ErrUnknownColumn},
		{name: "missing key column", tbl: products, rec: types.NewRecord("products").With("store_id", 1), wantErr: types.ErrInvalidData},
		{name: "duplicate key", tbl: products, rec: types.NewRecord("products").With("store_id", 1).With("sku", "a"), wantErr: types.ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tbl.Create(tt.rec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_EmptyRecordOnKeylessTable(t *testing.T) {
	b := setupBackend(t)
	posts := mustTable(t, b, "posts")

	rec := types.NewRecord("posts")
	require.NoError(t, posts.Create(rec))
	assert.Equal(t, int64(1), rec.Value("id"))

	res, err := posts.Find(1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(1)}, res.Record().Map())
}

func TestUpdate(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	rec := createArticle(t, articles, "Draft", 1)

	rec.Set("title", "Final")
	rec.Set("rating", 4)
	assert.Equal(t, []string{"title", "rating"}, rec.ChangedNames())
	require.NoError(t, articles.Update(rec))
	assert.Empty(t, rec.ChangedNames())
	assert.Equal(t, int64(4), rec.Value("rating"))

	res, err := articles.Find(rec.Value("id"))
	require.NoError(t, err)
	assert.Equal(t, "Final", res.Record().Value("title"))
	assert.Equal(t, int64(4), res.Record().Value("rating"))

	require.NoError(t, articles.Update(rec), "no changes is a no-op")
}

func TestUpdate_RejectsChangedKey(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	first := createArticle(t, articles, "First Article", 5)
	createArticle(t, articles, "Second Article", 3)

	first.Set("id", int64(2))
	first.Set("title", "Renamed")
	assert.ErrorIs(t, articles.Update(first), types.ErrInvalidArgument)

	res, err := articles.Find(2)
	require.NoError(t, err)
	assert.Equal(t, "Second Article", res.Record().Value("title"))

	products := mustTable(t, b, "products")
	product := createProduct(t, products, 1, "a", "first")
	product.Set("sku", "b")
	assert.ErrorIs(t, products.Update(product), types.ErrInvalidArgument)

	res, err = products.Find([]any{1, "a"})
	require.NoError(t, err)
	assert.Equal(t, "first", res.Record().Value("description"))
}

func TestUpdate_Errors(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	createArticle(t, articles, "Kept", 1)

	missing := types.NewRecord("articles").With("id", 42).With("title", "Ghost")
	assert.ErrorIs(t, articles.Update(missing), types.ErrNotFound)

	keyless := types.NewRecord("articles").With("title", "No key")
	assert.ErrorIs(t, articles.Update(keyless), types.ErrInvalidData)
}

func TestDelete(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	products := mustTable(t, b, "products")
	first := createArticle(t, articles, "First", 1)
	createArticle(t, articles, "Second", 2)
	createProduct(t, products, 1, "a", "first")

	require.NoError(t, articles.Delete(first))
	assert.False(t, first.Persisted())
	_, err := articles.Find(first.Value("id"))
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, articles.Delete(2))
	assert.ErrorIs(t, articles.Delete(2), types.ErrNotFound)
	assert.ErrorIs(t, articles.Delete(nil), types.ErrNotFound)
	assert.ErrorIs(t, articles.Delete([]int{1, 2}), types.ErrInvalidArgument)

	assert.ErrorIs(t, products.Delete(1), types.ErrInvalidArgument)
	assert.ErrorIs(t, products.Delete([]any{1}), types.ErrInvalidArgument)
	assert.ErrorIs(t, products.Delete([]any{1, nil}), types.ErrNotFound)
	require.NoError(t, products.Delete([]any{1, "a"}))
	_, err = products.Find([]any{1, "a"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteAll(t *testing.T) {
	b := setupBackend(t)
	articles := mustTable(t, b, "articles")
	createArticle(t, articles, "a", 1)
	createArticle(t, articles, "b", 2)

	n, err := articles.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	recs, err := articles.Where(nil)
	require.NoError(t, err)
	assert.Empty(t, recs)

	n, err = articles.DeleteAll()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindBy_BooleanAndBlobColumns(t *testing.T) {
	b := setupBackend(t)
	flags := types.Schema{
		Table: "flags",
		Columns: []types.Column{
			{Name: "name", Type: types.TypeString},
			{Name: "enabled", Type: types.TypeBoolean},
			{Name: "payload", Type: types.TypeBlob, Null: true},
		},
	}
	require.NoError(t, b.Define(flags))
	tbl := mustTable(t, b, "flags")

	on := types.NewRecord("flags").With("name", "on").With("enabled", true).With("payload", []byte{1, 2})
	off := types.NewRecord("flags").With("name", "off").With("enabled", false)
	require.NoError(t, tbl.Create(on))
	require.NoError(t, tbl.Create(off))

	rec, err := tbl.FindSoleBy(types.Conditions{"enabled": true})
	require.NoError(t, err)
	assert.Equal(t, "on", rec.Value("name"))
	assert.Equal(t, true, rec.Value("enabled"))
	assert.Equal(t, []byte{1, 2}, rec.Value("payload"))

	rec, err = tbl.FindBy(types.Conditions{"enabled": false})
	require.NoError(t, err)
	assert.Equal(t, "off", rec.Value("name"))
	assert.Nil(t, rec.Value("payload"))
}
