package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS business_items (
	business_item         TEXT PRIMARY KEY,
	category              TEXT NOT NULL DEFAULT '',
	category_name         TEXT NOT NULL DEFAULT '',
	subcategory           TEXT NOT NULL DEFAULT '',
	subcategory_name      TEXT NOT NULL DEFAULT '',
	classes               TEXT NOT NULL DEFAULT '',
	classes_name          TEXT NOT NULL DEFAULT '',
	business_item_desc    TEXT NOT NULL DEFAULT '',
	business_item_content TEXT NOT NULL DEFAULT '',
	dgbas                 TEXT NOT NULL DEFAULT '[]',
	sync_id               TEXT,
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id          TEXT PRIMARY KEY,
	items       INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_business_items_category ON business_items(category);
CREATE INDEX IF NOT EXISTS idx_business_items_sync_id ON business_items(sync_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertItem = `
INSERT INTO business_items (` + itemColumns + `, sync_id, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (business_item) DO UPDATE SET
	category = excluded.category,
	category_name = excluded.category_name,
	subcategory = excluded.subcategory,
	subcategory_name = excluded.subcategory_name,
	classes = excluded.classes,
	classes_name = excluded.classes_name,
	business_item_desc = excluded.business_item_desc,
	business_item_content = excluded.business_item_content,
	dgbas = excluded.dgbas,
	sync_id = excluded.sync_id,
	updated_at = excluded.updated_at`

func (s *SQLiteStore) UpsertBusinessItems(ctx context.Context, syncID string, items []gcis.BusinessItem) (int, error) {
	items = storable(items)
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertItem)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, it := range items {
		args, err := itemArgs(syncID, it, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: item %s", it.BusinessItem)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert item %s", it.BusinessItem)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return len(items), nil
}

func (s *SQLiteStore) GetBusinessItem(ctx context.Context, code string) (*gcis.BusinessItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM business_items WHERE business_item = ?`, code)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get item %s", code)
	}
	return it, nil
}

func (s *SQLiteStore) ListBusinessItems(ctx context.Context, filter ItemFilter) ([]gcis.BusinessItem, error) {
	query := `SELECT ` + itemColumns + ` FROM business_items WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.CodePrefix != "" {
		query += ` AND business_item LIKE ? ESCAPE '\'`
		args = append(args, likePrefix(filter.CodePrefix))
	}
	query += ` ORDER BY business_item LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list items")
	}
	defer rows.Close()

	items := []gcis.BusinessItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list items iterate")
}

func (s *SQLiteStore) CountBusinessItems(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM business_items`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count items")
}

func (s *SQLiteStore) CreateSyncRun(ctx context.Context) (*SyncRun, error) {
	run := &SyncRun{ID: uuid.New().String(), StartedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, started_at) VALUES (?, ?)`, run.ID, run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert sync run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteSyncRun(ctx context.Context, id string, items int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET items = ?, finished_at = ? WHERE id = ?`,
		items, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete sync run %s", id)
	}
	return checkRowsAffected(res, "sync run", id)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
