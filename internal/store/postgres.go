package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lodging-cli/internal/model"
	"github.com/sells-group/lodging-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    pgPool
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
	// The database may still be starting when the CLI runs beside it.
	if err := resilience.Do(ctx, resilience.DefaultPolicy(), "postgres ping", pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS lodging_records (
	year         INTEGER NOT NULL,
	city         TEXT NOT NULL,
	metric       TEXT NOT NULL,
	cat1         TEXT NOT NULL,
	source_table TEXT NOT NULL,
	value        BIGINT NOT NULL CHECK (value >= 0),
	PRIMARY KEY (year, city, metric, cat1, source_table)
);

CREATE TABLE IF NOT EXISTS imports (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	files       INTEGER NOT NULL,
	records     INTEGER NOT NULL,
	replaced    BOOLEAN NOT NULL DEFAULT false,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lodging_records_table ON lodging_records(source_table, metric, cat1, year);
CREATE INDEX IF NOT EXISTS idx_imports_finished_at ON imports(finished_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

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

// UpsertRecords merges records through a COPY-fed staging table. Duplicate
// keys within the batch collapse to the last record first.
func (s *PostgresStore) UpsertRecords(ctx context.Context, records []model.Record) (int64, error) {
	if err := validateAll(records); err != nil {
		return 0, err
	}
	batch := newRecordBatch(records)
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, stageSQL); err != nil {
		return 0, eris.Wrap(err, "postgres: stage records")
	}
	if _, err := batch.copyInto(ctx, tx, stagingTable); err != nil {
		return 0, eris.Wrap(err, "postgres: copy records")
	}
	tag, err := tx.Exec(ctx, mergeSQL)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: merge records")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit")
	}
	return tag.RowsAffected(), nil
}

// ReplaceRecords swaps the stored record set for records in one transaction.
func (s *PostgresStore) ReplaceRecords(ctx context.Context, records []model.Record) (int64, error) {
	if err := validateAll(records); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "DELETE FROM "+recordsTable); err != nil {
		return 0, eris.Wrap(err, "postgres: clear records")
	}
	n, err := newRecordBatch(records).copyInto(ctx, tx, recordsTable)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy records")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit")
	}
	return n, nil
}

func (s *PostgresStore) LoadRecords(ctx context.Context) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year, city, metric, cat1, source_table, value FROM lodging_records
		 ORDER BY source_table, metric, cat1, year, city`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			r      model.Record
			metric string
		)
		if err := rows.Scan(&r.Year, &r.City, &metric, &r.Category, &r.Table, &r.Value); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		r.Metric = model.Metric(metric)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func (s *PostgresStore) CreateImport(ctx context.Context, run ImportRun) (*ImportRun, error) {
	run.ID = uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO imports (id, source, files, records, replaced, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Source, run.Files, run.Records, run.Replaced, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create import")
	}
	return &run, nil
}

func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, files, records, replaced, started_at, finished_at FROM imports
		 ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list imports")
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var run ImportRun
		if err := rows.Scan(&run.ID, &run.Source, &run.Files, &run.Records, &run.Replaced, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate imports")
}
