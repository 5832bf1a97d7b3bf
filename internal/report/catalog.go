package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// MetricCoverage describes one metric of a table.
type MetricCoverage struct {
	Metric     model.Metric `json:"metric"`
	Categories []string     `json:"categories"`
	Years      []int        `json:"years"`
}

// TableCoverage describes one source table of a snapshot.
type TableCoverage struct {
	Table   string           `json:"table"`
	Records int              `json:"records"`
	Cities  int              `json:"cities"`
	Metrics []MetricCoverage `json:"metrics"`
}

// Catalog summarizes what a snapshot can answer.
type Catalog struct {
	Records int             `json:"records"`
	Tables  []TableCoverage `json:"tables"`
}

// Describe builds the catalog of snap.
func Describe(snap *dataset.Snapshot) Catalog {
	c := Catalog{Records: snap.Len()}
	for _, table := range snap.Tables() {
		v := snap.Table(table)
		tc := TableCoverage{Table: table, Records: v.Len(), Cities: len(v.Cities())}
		for _, m := range v.Metrics() {
			cats := v.Categories(m)
			seen := make(map[int]bool)
			var ys []int
			for _, cat := range cats {
				for _, y := range v.Years(m, cat) {
					if !seen[y] {
						seen[y] = true
						ys = append(ys, y)
					}
				}
			}
			sort.Ints(ys)
			tc.Metrics = append(tc.Metrics, MetricCoverage{Metric: m, Categories: cats, Years: ys})
		}
		c.Tables = append(c.Tables, tc)
	}
	return c
}

// WriteCatalog writes c as an aligned table.
func WriteCatalog(out io.Writer, c Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TABLE\tMETRIC\tYEARS\tCATEGORIES\tRECORDS")
	_, _ = fmt.Fprintln(w, "-----\t------\t-----\t----------\t-------")
	for _, t := range c.Tables {
		for i, m := range t.Metrics {
			records := ""
			if i == 0 {
				records = fmt.Sprint(t.Records)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				t.Table,
				m.Metric,
				yearSpan(m.Years),
				strings.Join(m.Categories, ","),
				records,
			)
		}
	}
	_, _ = fmt.Fprintf(w, "\nTotal records:\t%d\n", c.Records)
	return w.Flush()
}

func yearSpan(ys []int) string {
	switch len(ys) {
	case 0:
		return "-"
	case 1:
		return fmt.Sprint(ys[0])
	default:
		return fmt.Sprintf("%d-%d (%d)", ys[0], ys[len(ys)-1], len(ys))
	}
}
