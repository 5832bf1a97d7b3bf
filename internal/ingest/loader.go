package ingest

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// FileReport summarizes one parsed file.
type FileReport struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Records int    `json:"records"`
}

// Report summarizes a load.
type Report struct {
	Source   string        `json:"source"`
	Files    []FileReport  `json:"files"`
	Parsed   int           `json:"parsed"`
	Distinct int           `json:"distinct"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Loader parses every file of a source concurrently and merges them in load
// order.
type Loader struct {
	Source      Source
	Concurrency int
}

// Records returns the parsed records of every file, concatenated in load
// order. Any unreadable file or malformed record fails the whole load.
func (l *Loader) Records(ctx context.Context) ([]model.Record, Report, error) {
	start := time.Now()
	report := Report{Source: l.Source.String()}

	files, err := l.Source.Files(ctx)
	if err != nil {
		return nil, report, err
	}
	if len(files) == 0 {
		return nil, report, eris.Errorf("ingest: no data files in %s", l.Source)
	}

	parsed := make([][]model.Record, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, l.Concurrency))
	for i, f := range files {
		g.Go(func() error {
			recs, err := l.parse(gctx, f)
			if err != nil {
				return err
			}
			parsed[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, err
	}

	var all []model.Record
	for i, f := range files {
		all = append(all, parsed[i]...)
		report.Files = append(report.Files, FileReport{Name: f.Name, Kind: f.Kind.String(), Records: len(parsed[i])})
	}
	report.Parsed = len(all)
	report.Elapsed = time.Since(start)
	return all, report, nil
}

// Load parses the source into a snapshot.
func (l *Loader) Load(ctx context.Context) (*dataset.Snapshot, Report, error) {
	records, report, err := l.Records(ctx)
	if err != nil {
		return nil, report, err
	}
	b := dataset.NewBuilder()
	if err := b.Add(records...); err != nil {
		return nil, report, eris.Wrap(err, "ingest: merge records")
	}
	report.Distinct = b.Len()

	zap.L().Info("ingest: loaded snapshot",
		zap.String("source", report.Source),
		zap.Int("files", len(report.Files)),
		zap.Int("parsed", report.Parsed),
		zap.Int("distinct", report.Distinct),
		zap.Duration("elapsed", report.Elapsed),
	)
	return b.Build(), report, nil
}

func (l *Loader) parse(ctx context.Context, f File) ([]model.Record, error) {
	rc, err := l.Source.Open(ctx, f)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	switch f.Kind {
	case KindTransition:
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read %s", f.Name)
		}
		return ParseTransitionBytes(data, f.Name)
	default:
		return ParseLongCSV(ctx, rc, f.Name)
	}
}
