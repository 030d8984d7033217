package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// refTime anchors datetime fixtures so tests do not depend on the clock.
var refTime = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

var articlesSchema = types.Schema{
	Table: "articles",
	Columns: []types.Column{
		{Name: "title", Type: types.TypeString, Null: true},
		{Name: "rating", Type: types.TypeInteger, Null: true},
		{Name: "published_at", Type: types.TypeDatetime, Null: true},
	},
}

var productsSchema = types.Schema{
	Table:      "products",
	PrimaryKey: []string{"store_id", "sku"},
	Columns: []types.Column{
		{Name: "store_id", Type: types.TypeInteger},
		{Name: "sku", Type: types.TypeString},
		{Name: "description", Type: types.TypeText, Null: true},
	},
}

var postsSchema = types.Schema{Table: "posts"}

// setupBackend attaches an in-memory Backend with the test schemas defined.
func setupBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := NewBackend(opts...)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite}))
	t.Cleanup(func() { b.Detach() })
	require.NoError(t, b.Define(articlesSchema, productsSchema, postsSchema))
	return b
}

func mustTable(t *testing.T, b *Backend, name string) types.Table {
	t.Helper()
	tbl, err := b.GetTable(name)
	require.NoError(t, err)
	return tbl
}

// createArticle inserts an article and returns it.
func createArticle(t *testing.T, tbl types.Table, title any, rating any) *types.Record {
	t.Helper()
	rec := types.NewRecord("articles").
		With("title", title).
		With("rating", rating).
		With("published_at", refTime.Add(-5*24*time.Hour))
	require.NoError(t, tbl.Create(rec))
	return rec
}

func createProduct(t *testing.T, tbl types.Table, storeID int64, sku, desc string) *types.Record {
	t.Helper()
	rec := types.NewRecord("products").
		With("store_id", storeID).
		With("sku", sku).
		With("description", desc)
	require.NoError(t, tbl.Create(rec))
	return rec
}
