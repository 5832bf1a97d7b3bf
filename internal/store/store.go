// Package store persists normalized records so a snapshot can be rebuilt
// without re-parsing the source files.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lodging-cli/internal/config"
	"github.com/sells-group/lodging-cli/internal/model"
)

// ImportRun records one import into the store.
type ImportRun struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Files      int       `json:"files"`
	Records    int       `json:"records"`
	Replaced   bool      `json:"replaced"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store defines the persistence interface for records.
type Store interface {
	// Records
	UpsertRecords(ctx context.Context, records []model.Record) (int64, error)
	ReplaceRecords(ctx context.Context, records []model.Record) (int64, error)
	LoadRecords(ctx context.Context) ([]model.Record, error)

	// Import history
	CreateImport(ctx context.Context, run ImportRun) (*ImportRun, error)
	ListImports(ctx context.Context, limit int) ([]ImportRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// dedupe keeps the last record per key, in first-seen key order.
func dedupe(records []model.Record) []model.Record {
	idx := make(map[model.RecordKey]int, len(records))
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if i, ok := idx[r.Key()]; ok {
			out[i] = r
			continue
		}
		idx[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}

func validateAll(records []model.Record) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return eris.Wrap(err, "store: reject record")
		}
	}
	return nil
}
