package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	dgbas                 JSONB NOT NULL DEFAULT '[]'::jsonb,
	sync_id               TEXT,
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	items       INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_business_items_category ON business_items(category);
CREATE INDEX IF NOT EXISTS idx_business_items_sync_id ON business_items(sync_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// upsertColumns is the COPY column order; it matches itemArgs.
var upsertColumns = []string{
	"business_item", "category", "category_name", "subcategory", "subcategory_name",
	"classes", "classes_name", "business_item_desc", "business_item_content",
	"dgbas", "sync_id", "updated_at",
}

const (
	upsertTempTable = "_tmp_upsert_business_items"

	postgresCreateTemp = `CREATE TEMP TABLE ` + upsertTempTable + ` (LIKE business_items INCLUDING DEFAULTS) ON COMMIT DROP`

	postgresMergeTemp = `
INSERT INTO business_items (` + itemColumns + `, sync_id, updated_at)
SELECT ` + itemColumns + `, sync_id, updated_at FROM ` + upsertTempTable + `
ON CONFLICT (business_item) DO UPDATE SET
	category = EXCLUDED.category,
	category_name = EXCLUDED.category_name,
	subcategory = EXCLUDED.subcategory,
	subcategory_name = EXCLUDED.subcategory_name,
	classes = EXCLUDED.classes,
	classes_name = EXCLUDED.classes_name,
	business_item_desc = EXCLUDED.business_item_desc,
	business_item_content = EXCLUDED.business_item_content,
	dgbas = EXCLUDED.dgbas,
	sync_id = EXCLUDED.sync_id,
	updated_at = EXCLUDED.updated_at`
)

// UpsertBusinessItems bulk loads items with COPY into a transaction-scoped
// temp table, then merges them with INSERT ... ON CONFLICT.
func (s *PostgresStore) UpsertBusinessItems(ctx context.Context, syncID string, items []gcis.BusinessItem) (int, error) {
	items = storable(items)
	if len(items) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(items))
	for i, it := range items {
		args, err := itemArgs(syncID, it, now)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: item %s", it.BusinessItem)
		}
		rows[i] = args
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, postgresCreateTemp); err != nil {
		return 0, eris.Wrap(err, "postgres: create temp table")
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{upsertTempTable}, upsertColumns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrap(err, "postgres: copy into temp table")
	}
	if _, err := tx.Exec(ctx, postgresMergeTemp); err != nil {
		return 0, eris.Wrap(err, "postgres: merge business items")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit upsert")
	}
	return len(items), nil
}

func (s *PostgresStore) GetBusinessItem(ctx context.Context, code string) (*gcis.BusinessItem, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgItemColumns+` FROM business_items WHERE business_item = $1`, code)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get item %s", code)
	}
	return it, nil
}

// pgItemColumns reads dgbas back as text so scanItem works for both drivers.
const pgItemColumns = `business_item, category, category_name, subcategory, subcategory_name, classes, classes_name, business_item_desc, business_item_content, dgbas::text`

func (s *PostgresStore) ListBusinessItems(ctx context.Context, filter ItemFilter) ([]gcis.BusinessItem, error) {
	query := `SELECT ` + pgItemColumns + ` FROM business_items WHERE 1=1`
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND category = $1`
	}
	if filter.CodePrefix != "" {
		args = append(args, likePrefix(filter.CodePrefix))
		query += ` AND business_item LIKE $` + strconv.Itoa(len(args)) + ` ESCAPE '\'`
	}
	args = append(args, filter.limit())
	query += ` ORDER BY business_item LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list items")
	}
	defer rows.Close()

	items := []gcis.BusinessItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list items iterate")
}

func (s *PostgresStore) CountBusinessItems(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM business_items`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count items")
}

func (s *PostgresStore) CreateSyncRun(ctx context.Context) (*SyncRun, error) {
	run := &SyncRun{ID: uuid.New().String(), StartedAt: time.Now().UTC()}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, started_at) VALUES ($1, $2)`, run.ID, run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert sync run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteSyncRun(ctx context.Context, id string, items int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET items = $1, finished_at = $2 WHERE id = $3`,
		items, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete sync run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync run not found: %s", id)
	}
	return nil
}
