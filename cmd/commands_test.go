package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

var upstreamEntries = []map[string]any{
	{"Category": "A", "Business_Item": "A101011", "Business_Item_Desc": "種苗業", "Subcategory": "01", "Subcategories_Name": "農業", "Dgbas": "0111\t稻作栽培業\n0112\t雜糧栽培業"},
	{"Category": "A", "Business_Item": "A102011", "Business_Item_Desc": "農業經營業", "Dgbas": ""},
	{"Category": "A", "Business_Item": "A103011", "Business_Item_Desc": "農產品批發業", "Dgbas": "4541\t農產品批發業"},
	{"Category": "B", "Business_Item": "B101010", "Business_Item_Desc": "煤礦業", "Dgbas": "0500\t煤礦業"},
	{"Category": "B", "Business_Item": "B102010", "Business_Item_Desc": "石油業", "Dgbas": ""},
}

// newUpstream serves upstreamEntries with $top/$skip/$filter applied.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		top, _ := strconv.Atoi(q.Get("$top"))
		skip, _ := strconv.Atoi(q.Get("$skip"))

		var rows []map[string]any
		for _, e := range upstreamEntries {
			if f := q.Get("$filter"); f != "" && f != gcis.FilterExpr("Business_Item", e["Business_Item"].(string)) {
				continue
			}
			rows = append(rows, e)
		}
		if skip > len(rows) {
			skip = len(rows)
		}
		rows = rows[skip:]
		if top < len(rows) {
			rows = rows[:top]
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupCLI points the CLI at a fake upstream from a temp working directory.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	t.Setenv("GCIS_GCIS_BASE_URL", newUpstream(t).URL)
	t.Setenv("GCIS_GCIS_DATASET", "dataset")
	t.Setenv("GCIS_LOG_LEVEL", "error")
	return dir
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestItemsCommand_JSON(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "items", "--format", "json", "--top", "2", "--skip", "1")
	require.NoError(t, err)

	var items []gcis.BusinessItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "A102011", items[0].BusinessItem)
	assert.Equal(t, []gcis.DgbasEntry{}, items[0].Dgbas)
	assert.Equal(t, []gcis.DgbasEntry{{Code: "4541", Name: "農產品批發業"}}, items[1].Dgbas)
}

func TestItemsCommand_Table(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "items", "--code", "A101011")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "A101011")
	assert.Contains(t, out, "0111,0112")
}

func TestItemsCommand_RejectsXLSXToStdout(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "items", "--format", "xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")
}

func TestItemsCommand_InvalidParams(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "items", "--top=-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, gcis.ErrInvalidParams)
}

func TestItemCommand(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "item", "A101011")
	require.NoError(t, err)

	var items []gcis.BusinessItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "01", items[0].Subcategory)
	assert.Equal(t, "農業", items[0].SubcategoryName)
	assert.Equal(t, []gcis.DgbasEntry{
		{Code: "0111", Name: "稻作栽培業"},
		{Code: "0112", Name: "雜糧栽培業"},
	}, items[0].Dgbas)
}

func TestItemCommand_NotFound(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "item", "Z999999")
	require.Error(t, err)
	assert.ErrorIs(t, err, gcis.ErrNotFound)
}

func TestExportCommand_CSV(t *testing.T) {
	dir := setupCLI(t)
	path := filepath.Join(dir, "items.csv")

	_, err := execute(t, "export", "--out", path, "--pages", "3", "--top", "2", "--concurrency", "2")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "business_item,"))
	for _, code := range []string{"A101011", "A102011", "A103011", "B101010", "B102010"} {
		assert.Contains(t, string(data), code)
	}
	assert.Less(t, strings.Index(string(data), "A103011"), strings.Index(string(data), "B101010"))
}

func TestSyncCommand_FromAPIAndFile(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, "sync", "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "2 items upserted, 2 stored")

	path := filepath.Join(dir, "all.json")
	_, err = execute(t, "export", "--out", path, "--top", "10")
	require.NoError(t, err)

	out, err = execute(t, "sync", "--from", path)
	require.NoError(t, err)
	assert.Contains(t, out, "5 items upserted, 5 stored")
}

func TestSyncCommand_BadStoreConfigSkipsFetch(t *testing.T) {
	setupCLI(t)

	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(upstream.Close)
	t.Setenv("GCIS_GCIS_BASE_URL", upstream.URL)
	t.Setenv("GCIS_STORE_DRIVER", "bogus")

	_, err := execute(t, "sync", "--pages", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "bogus" is not supported`)
	assert.Equal(t, int32(0), hits.Load())
}

func TestSchemasCommand(t *testing.T) {
	setupCLI(t)
	t.Setenv("GCIS_GCIS_SCHEMA", "v2")

	out, err := execute(t, "schemas")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "*"))
	assert.Contains(t, lines[2], "SubCategory_Name")
}
