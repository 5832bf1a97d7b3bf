package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sells-group/lodging-cli/internal/model"
)

// pgPool is the part of *pgxpool.Pool the Postgres store uses. pgxmock
// pools satisfy it in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	recordsTable = "lodging_records"
	stagingTable = "_tmp_upsert_" + recordsTable
)

var (
	recordColumns = []string{"year", "city", "metric", "cat1", "source_table", "value"}
	recordKey     = []string{"year", "city", "metric", "cat1", "source_table"}
)

// Staging and merge statements for UpsertRecords. The staging table lives
// for one transaction.
var (
	stageSQL = "CREATE TEMP TABLE " + ident(stagingTable) +
		" (LIKE " + ident(recordsTable) + " INCLUDING DEFAULTS) ON COMMIT DROP"
	mergeSQL = "INSERT INTO " + ident(recordsTable) + " (" + idents(recordColumns) + ")" +
		" SELECT " + idents(recordColumns) + " FROM " + ident(stagingTable) +
		" ON CONFLICT (" + idents(recordKey) + ") DO UPDATE SET " +
		ident("value") + " = EXCLUDED." + ident("value")
)

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

func idents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}

// recordBatch holds COPY rows in recordColumns order, one per record key.
type recordBatch [][]any

func newRecordBatch(records []model.Record) recordBatch {
	records = dedupe(records)
	rows := make(recordBatch, len(records))
	for i, r := range records {
		rows[i] = []any{r.Year, r.City, string(r.Metric), r.Category, r.Table, r.Value}
	}
	return rows
}

// copyInto streams the batch into table over the COPY protocol.
func (b recordBatch) copyInto(ctx context.Context, tx pgx.Tx, table string) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, recordColumns, pgx.CopyFromRows(b))
}
