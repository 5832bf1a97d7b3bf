package analytics

import (
	"strings"

	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// TableAuto requests the fallback table selection.
const TableAuto = "auto"

// TablePriority is the auto-selection order. The last candidate is the
// unfiltered view over every table.
var TablePriority = []string{
	model.TableAccommodationType,
	model.TableScaleClass,
	model.TableHotelBreakdown,
	dataset.AllTables,
}

// SelectTable returns the table to analyze. An explicit table is used when
// it holds records; "auto" picks the first non-empty candidate of
// TablePriority. Selection looks at emptiness only, never at metrics.
func SelectTable(snap *dataset.Snapshot, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	candidates := TablePriority
	if requested != "" && requested != TableAuto {
		candidates = []string{requested}
	}
	for _, t := range candidates {
		if !snap.Table(t).Empty() {
			return t, nil
		}
	}
	return "", &TableUnavailableError{
		Requested:  requested,
		Candidates: candidates,
		Available:  snap.Tables(),
	}
}
