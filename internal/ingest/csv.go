package ingest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lodging-cli/internal/fetcher"
	"github.com/sells-group/lodging-cli/internal/model"
)

// headerAliases maps alternative column names of the long format to the
// canonical ones.
var headerAliases = map[string]string{
	"municipality": "city",
	"category":     "cat1",
	"cat":          "cat1",
	"source":       "table",
	"count":        "value",
}

var requiredColumns = []string{"year", "city", "metric", "cat1", "table", "value"}

// ParseLongCSV parses a long-format CSV with columns year, city (or
// municipality), metric, cat1, table and value; extra columns such as cat2
// are ignored. Rows with an empty city, metric or category are dropped, as
// are metrics outside the facility measures. Files whose name mentions
// hotel_breakdown carry known bad cells: their unparseable values become 0.
// Anywhere else a bad cell fails the parse with a *model.RecordError.
func ParseLongCSV(ctx context.Context, r io.Reader, name string) ([]model.Record, error) {
	lenient := strings.Contains(name, model.TableHotelBreakdown)

	// Returning early cancels the reader goroutine.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", name)
	}
	if stream.Header == nil {
		return nil, nil
	}
	cols, err := headerIndex(stream.Header, name)
	if err != nil {
		return nil, err
	}

	var (
		records []model.Record
		dropped int
	)
	for row := range stream.Rows {
		rec, ok, err := parseLongRow(row.Fields, cols, lenient)
		if err != nil {
			return nil, withSource(err, fmt.Sprintf("%s:%d", name, row.Line))
		}
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if err := <-stream.Err; err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", name)
	}

	if dropped > 0 {
		zap.L().Debug("ingest: dropped rows",
			zap.String("file", name),
			zap.Int("dropped", dropped),
		)
	}
	return records, nil
}

func headerIndex(header []string, name string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canon, ok := headerAliases[key]; ok {
			key = canon
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("ingest: %s: missing columns %s", name, strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseLongRow returns ok=false for rows that are dropped rather than rejected.
func parseLongRow(row []string, cols map[string]int, lenient bool) (model.Record, bool, error) {
	cell := func(c string) string {
		if i := cols[c]; i < len(row) {
			return row[i]
		}
		return ""
	}

	rec := model.Record{
		City:     cell("city"),
		Category: strings.ToLower(cell("cat1")),
		Table:    cell("table"),
	}
	rawMetric := cell("metric")
	if rec.City == "" || rawMetric == "" || rec.Category == "" {
		return rec, false, nil
	}
	m, err := model.ParseMetric(rawMetric)
	if err != nil {
		return rec, false, nil
	}
	rec.Metric = m

	year, err := strconv.Atoi(strings.TrimSuffix(cell("year"), ".0"))
	if err != nil {
		return rec, false, &model.RecordError{Record: rec, Field: "year", Reason: fmt.Sprintf("%q is not a year", cell("year"))}
	}
	rec.Year = year

	value, err := parseCount(cell("value"))
	switch {
	case err != nil && lenient:
		value = 0
	case err != nil:
		return rec, false, &model.RecordError{Record: rec, Field: "value", Reason: fmt.Sprintf("%q is not a count", cell("value"))}
	}
	rec.Value = value

	if err := rec.Validate(); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

func withSource(err error, source string) error {
	if re, ok := err.(*model.RecordError); ok {
		re.Source = source
		return re
	}
	return eris.Wrap(err, source)
}
