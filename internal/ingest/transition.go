package ingest

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lodging-cli/internal/fetcher"
	"github.com/sells-group/lodging-cli/internal/model"
)

// PrefectureCity is the city name of prefecture-wide transition records.
const PrefectureCity = "沖縄県"

// transitionSheet is matched case-insensitively against sheet names; the
// first sheet is used when none matches.
const transitionSheet = "total"

// ParseTransition reads the prefecture-wide transition workbook.
func ParseTransition(path string) ([]model.Record, error) {
	wb, err := fetcher.OpenXLSX(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	return workbookRecords(wb, path)
}

// ParseTransitionBytes reads a transition workbook held in memory.
func ParseTransitionBytes(data []byte, name string) ([]model.Record, error) {
	wb, err := fetcher.ParseXLSX(data, name)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", name)
	}
	return workbookRecords(wb, name)
}

func workbookRecords(wb *fetcher.Workbook, name string) ([]model.Record, error) {
	sheet, rows, err := wb.Sheet(transitionSheet)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", name)
	}
	zap.L().Debug("ingest: transition sheet", zap.String("file", name), zap.String("sheet", sheet))
	return transitionRecords(rows, name)
}

// transitionRecords locates the header row, the first one naming both a
// facilities and a rooms column, and emits one record per metric and year
// row beneath it. The first column holds the year label.
func transitionRecords(rows [][]string, name string) ([]model.Record, error) {
	hdr := -1
	for i, row := range rows {
		if rowMentions(row, "facilities", "facility", "軒数") && rowMentions(row, "rooms", "客室数") {
			hdr = i
			break
		}
	}
	if hdr < 0 {
		return nil, eris.Errorf("ingest: %s: no header row with facilities and rooms columns", name)
	}

	metricCol := make(map[model.Metric]int)
	for i, h := range rows[hdr] {
		if i == 0 {
			continue
		}
		m, ok := headerMetric(h)
		if !ok {
			continue
		}
		if _, dup := metricCol[m]; !dup {
			metricCol[m] = i
		}
	}
	for _, m := range model.AllMetrics {
		if _, ok := metricCol[m]; !ok {
			return nil, eris.Errorf("ingest: %s: missing %s column", name, m)
		}
	}

	var records []model.Record
	for i, row := range rows[hdr+1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		year, err := parseYear(row[0])
		if err != nil {
			// Footnotes share the year column.
			zap.L().Debug("ingest: skipping transition row",
				zap.String("file", name),
				zap.Int("row", hdr+i+2),
				zap.String("label", row[0]),
			)
			continue
		}
		for _, m := range model.AllMetrics {
			col := metricCol[m]
			var value int64
			if col < len(row) {
				// Unreadable cells count as zero, as in the published totals.
				value, _ = parseCount(row[col])
			}
			records = append(records, model.Record{
				Year:     year,
				City:     PrefectureCity,
				Metric:   m,
				Category: model.CategoryTotal,
				Table:    model.TablePrefTransition,
				Value:    value,
			})
		}
	}
	return records, nil
}

// headerMetric resolves a header cell, ignoring a trailing unit such as
// "（軒）".
func headerMetric(h string) (model.Metric, bool) {
	if i := strings.IndexAny(h, "(（"); i > 0 {
		h = h[:i]
	}
	m, err := model.ParseMetric(h)
	return m, err == nil
}

func rowMentions(row []string, needles ...string) bool {
	for _, cell := range row {
		c := strings.ToLower(cell)
		for _, n := range needles {
			if strings.Contains(c, n) {
				return true
			}
		}
	}
	return false
}
