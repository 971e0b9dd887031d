package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// ItemFilter specifies criteria for listing stored business items.
type ItemFilter struct {
	Category   string `json:"category,omitempty"`
	CodePrefix string `json:"code_prefix,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// SyncRun records one sync of upstream pages into the store.
type SyncRun struct {
	ID         string     `json:"id"`
	Items      int        `json:"items"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store defines the persistence interface for normalized business items.
type Store interface {
	// Items
	UpsertBusinessItems(ctx context.Context, syncID string, items []gcis.BusinessItem) (int, error)
	GetBusinessItem(ctx context.Context, code string) (*gcis.BusinessItem, error)
	ListBusinessItems(ctx context.Context, filter ItemFilter) ([]gcis.BusinessItem, error)
	CountBusinessItems(ctx context.Context) (int, error)

	// Sync runs
	CreateSyncRun(ctx context.Context) (*SyncRun, error)
	CompleteSyncRun(ctx context.Context, id string, items int) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func (f ItemFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix builds a LIKE pattern matching codes starting with prefix,
// taken literally. Queries pair it with ESCAPE '\'.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

// storable drops items without a code, the primary key, and collapses
// repeated codes onto their last occurrence.
func storable(items []gcis.BusinessItem) []gcis.BusinessItem {
	pos := make(map[string]int, len(items))
	out := make([]gcis.BusinessItem, 0, len(items))
	for _, it := range items {
		if it.BusinessItem == "" {
			continue
		}
		if i, ok := pos[it.BusinessItem]; ok {
			out[i] = it
			continue
		}
		pos[it.BusinessItem] = len(out)
		out = append(out, it)
	}
	return out
}

func marshalDgbas(entries []gcis.DgbasEntry) (string, error) {
	if entries == nil {
		entries = []gcis.DgbasEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", eris.Wrap(err, "marshal dgbas")
	}
	return string(b), nil
}

func unmarshalDgbas(s string) ([]gcis.DgbasEntry, error) {
	entries := []gcis.DgbasEntry{}
	if s == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(s), &entries); err != nil {
		return nil, eris.Wrap(err, "unmarshal dgbas")
	}
	return entries, nil
}

type scannable interface {
	Scan(dest ...any) error
}

const itemColumns = `business_item, category, category_name, subcategory, subcategory_name, classes, classes_name, business_item_desc, business_item_content, dgbas`

func scanItem(row scannable) (*gcis.BusinessItem, error) {
	var it gcis.BusinessItem
	var dgbas string
	if err := row.Scan(
		&it.BusinessItem, &it.Category, &it.CategoryName,
		&it.Subcategory, &it.SubcategoryName, &it.Classes, &it.ClassesName,
		&it.BusinessItemDesc, &it.BusinessItemContent, &dgbas,
	); err != nil {
		return nil, err
	}
	entries, err := unmarshalDgbas(dgbas)
	if err != nil {
		return nil, err
	}
	it.Dgbas = entries
	return &it, nil
}

func itemArgs(syncID string, it gcis.BusinessItem, now time.Time) ([]any, error) {
	dgbas, err := marshalDgbas(it.Dgbas)
	if err != nil {
		return nil, err
	}
	return []any{
		it.BusinessItem, it.Category, it.CategoryName,
		it.Subcategory, it.SubcategoryName, it.Classes, it.ClassesName,
		it.BusinessItemDesc, it.BusinessItemContent, dgbas, syncID, now,
	}, nil
}
