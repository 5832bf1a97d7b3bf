package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lodging-cli/internal/analytics"
	"github.com/sells-group/lodging-cli/internal/config"
	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/ingest"
	"github.com/sells-group/lodging-cli/internal/model"
	"github.com/sells-group/lodging-cli/internal/store"
)

// loadConcurrency bounds how many source files are parsed at once.
const loadConcurrency = 4

func layoutOf(d config.DataConfig) ingest.Layout {
	return ingest.Layout{
		ByYearGlob: d.ByYearGlob,
		LongCSV:    d.LongCSV,
		Transition: d.TransitionXLSX,
	}
}

// newFileSource returns the file source named by data.source (dir or s3).
func newFileSource(ctx context.Context, c *config.Config) (ingest.Source, error) {
	layout := layoutOf(c.Data)
	switch c.Data.Source {
	case "dir":
		return &ingest.DirSource{Root: c.Data.Dir, Layout: layout}, nil
	case "s3":
		client, err := ingest.NewS3Client(ctx, c.S3)
		if err != nil {
			return nil, err
		}
		return &ingest.S3Source{Client: client, Bucket: c.S3.Bucket, Prefix: c.S3.Prefix, Layout: layout}, nil
	default:
		return nil, eris.Errorf("data.source %q has no files to read (use dir or s3)", c.Data.Source)
	}
}

// loadSnapshot builds the dataset from files or from the record store.
func loadSnapshot(ctx context.Context, c *config.Config) (*dataset.Snapshot, error) {
	if c.Data.Source == "store" {
		return loadStoreSnapshot(ctx, c.Store)
	}

	src, err := newFileSource(ctx, c)
	if err != nil {
		return nil, err
	}
	loader := &ingest.Loader{Source: src, Concurrency: loadConcurrency}
	snap, _, err := loader.Load(ctx)
	return snap, err
}

func loadStoreSnapshot(ctx context.Context, sc config.StoreConfig) (*dataset.Snapshot, error) {
	st, err := store.Open(ctx, sc)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	records, err := st.LoadRecords(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.Errorf("store %s holds no records (run import first)", sc.Driver)
	}

	b := dataset.NewBuilder()
	if err := b.Add(records...); err != nil {
		return nil, eris.Wrap(err, "build snapshot from store")
	}
	snap := b.Build()
	zap.L().Info("dataset loaded from store",
		zap.String("driver", sc.Driver),
		zap.Int("records", snap.Len()),
	)
	return snap, nil
}

// newEngine loads the geography and returns a query engine over it.
// Partition issues are logged, not fatal.
func newEngine(c *config.Config) (*analytics.Engine, error) {
	geo, err := model.LoadGeography(c.Data.Geography)
	if err != nil {
		return nil, err
	}
	for _, issue := range geo.Check() {
		zap.L().Warn("geography issue", zap.String("issue", issue))
	}
	return analytics.New(geo, zap.L()), nil
}

// applyQueryDefaults fills the table and ranking count a query left unset.
func applyQueryDefaults(q analytics.Query, d config.QueryConfig) analytics.Query {
	if q.Table == "" {
		q.Table = d.Table
	}
	if q.Count == 0 {
		q.Count = d.RankingCount
	}
	return q
}
