package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleItems() []gcis.BusinessItem {
	return []gcis.BusinessItem{
		{
			Category:         "A",
			CategoryName:     "農、林、漁、牧業",
			BusinessItem:     "A101011",
			BusinessItemDesc: "種苗業",
			Dgbas:            []gcis.DgbasEntry{{Code: "0119", Name: "其他農作物栽培業"}},
		},
		{
			Category:     "A",
			BusinessItem: "A102011",
			Dgbas:        []gcis.DgbasEntry{},
		},
		{
			Category:     "B",
			BusinessItem: "B101010",
			Dgbas: []gcis.DgbasEntry{
				{Code: "0500", Name: "煤礦業"},
				{Code: "0600", Name: "石油及天然氣礦業"},
			},
		},
	}
}

func TestSQLite_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.UpsertBusinessItems(ctx, "sync-1", sampleItems())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := st.GetBusinessItem(ctx, "A101011")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleItems()[0], *got)

	got, err = st.GetBusinessItem(ctx, "A102011")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotNil(t, got.Dgbas)
	assert.Empty(t, got.Dgbas)
}

func TestSQLite_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetBusinessItem(context.Background(), "Z999999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_UpsertIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertBusinessItems(ctx, "sync-1", sampleItems())
	require.NoError(t, err)

	updated := sampleItems()[:1]
	updated[0].BusinessItemDesc = "種苗業(修正)"
	_, err = st.UpsertBusinessItems(ctx, "sync-2", updated)
	require.NoError(t, err)

	count, err := st.CountBusinessItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, err := st.GetBusinessItem(ctx, "A101011")
	require.NoError(t, err)
	assert.Equal(t, "種苗業(修正)", got.BusinessItemDesc)
}

func TestSQLite_UpsertSkipsItemsWithoutCode(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.UpsertBusinessItems(context.Background(), "sync-1", []gcis.BusinessItem{{Category: "A"}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := st.UpsertBusinessItems(ctx, "sync-1", sampleItems())
	require.NoError(t, err)

	all, err := st.ListBusinessItems(ctx, ItemFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A101011", all[0].BusinessItem)
	assert.Equal(t, "B101010", all[2].BusinessItem)

	catA, err := st.ListBusinessItems(ctx, ItemFilter{Category: "A"})
	require.NoError(t, err)
	assert.Len(t, catA, 2)

	prefix, err := st.ListBusinessItems(ctx, ItemFilter{CodePrefix: "B1"})
	require.NoError(t, err)
	require.Len(t, prefix, 1)
	assert.Len(t, prefix[0].Dgbas, 2)

	paged, err := st.ListBusinessItems(ctx, ItemFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "A102011", paged[0].BusinessItem)

	none, err := st.ListBusinessItems(ctx, ItemFilter{Category: "Z"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSQLite_ListPrefixIsLiteral(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := st.UpsertBusinessItems(ctx, "sync-1", []gcis.BusinessItem{
		{BusinessItem: "A1_0001"},
		{BusinessItem: "A1X0001"},
		{BusinessItem: "A1%0001"},
		{BusinessItem: `A1\0001`},
	})
	require.NoError(t, err)

	underscore, err := st.ListBusinessItems(ctx, ItemFilter{CodePrefix: "A1_"})
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	assert.Equal(t, "A1_0001", underscore[0].BusinessItem)

	percent, err := st.ListBusinessItems(ctx, ItemFilter{CodePrefix: "A1%"})
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "A1%0001", percent[0].BusinessItem)

	backslash, err := st.ListBusinessItems(ctx, ItemFilter{CodePrefix: `A1\`})
	require.NoError(t, err)
	require.Len(t, backslash, 1)
	assert.Equal(t, `A1\0001`, backslash[0].BusinessItem)
}

func TestSQLite_SyncRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateSyncRun(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	require.NoError(t, st.CompleteSyncRun(ctx, run.ID, 3))

	err = st.CompleteSyncRun(ctx, "missing", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync run not found")
}
