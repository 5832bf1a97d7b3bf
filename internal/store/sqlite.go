package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lodging-cli/internal/model"
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lodging_records (
	year         INTEGER NOT NULL,
	city         TEXT NOT NULL,
	metric       TEXT NOT NULL,
	cat1         TEXT NOT NULL,
	source_table TEXT NOT NULL,
	value        INTEGER NOT NULL CHECK (value >= 0),
	PRIMARY KEY (year, city, metric, cat1, source_table)
);

CREATE TABLE IF NOT EXISTS imports (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	files       INTEGER NOT NULL,
	records     INTEGER NOT NULL,
	replaced    INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lodging_records_table ON lodging_records(source_table, metric, cat1, year);
CREATE INDEX IF NOT EXISTS idx_imports_finished_at ON imports(finished_at);
`

const sqliteUpsert = `INSERT INTO lodging_records (year, city, metric, cat1, source_table, value)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (year, city, metric, cat1, source_table) DO UPDATE SET value = excluded.value`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertRecords writes records in one transaction; a stored record with the
// same key takes the new value.
func (s *SQLiteStore) UpsertRecords(ctx context.Context, records []model.Record) (int64, error) {
	return s.write(ctx, records, false)
}

// ReplaceRecords swaps the stored record set for records atomically.
func (s *SQLiteStore) ReplaceRecords(ctx context.Context, records []model.Record) (int64, error) {
	return s.write(ctx, records, true)
}

func (s *SQLiteStore) write(ctx context.Context, records []model.Record, replace bool) (int64, error) {
	if err := validateAll(records); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lodging_records`); err != nil {
			return 0, eris.Wrap(err, "sqlite: clear records")
		}
	}

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Year, r.City, string(r.Metric), r.Category, r.Table, r.Value); err != nil {
			return n, eris.Wrapf(err, "sqlite: upsert %d/%s/%s/%s/%s", r.Year, r.City, r.Metric, r.Category, r.Table)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func (s *SQLiteStore) LoadRecords(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year, city, metric, cat1, source_table, value FROM lodging_records
		 ORDER BY source_table, metric, cat1, year, city`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load records")
	}
	defer rows.Close() //nolint:errcheck

	var records []model.Record
	for rows.Next() {
		var (
			r      model.Record
			metric string
		)
		if err := rows.Scan(&r.Year, &r.City, &metric, &r.Category, &r.Table, &r.Value); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		r.Metric = model.Metric(metric)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func (s *SQLiteStore) CreateImport(ctx context.Context, run ImportRun) (*ImportRun, error) {
	run.ID = uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (id, source, files, records, replaced, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Files, run.Records, run.Replaced,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create import")
	}
	return &run, nil
}

func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, files, records, replaced, started_at, finished_at FROM imports
		 ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list imports")
	}
	defer rows.Close() //nolint:errcheck

	var runs []ImportRun
	for rows.Next() {
		var (
			run             ImportRun
			started, finish string
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Files, &run.Records, &run.Replaced, &started, &finish); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import")
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse started_at")
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finish); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse finished_at")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate imports")
}
