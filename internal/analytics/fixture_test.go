package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

func rec(table, city string, m model.Metric, cat string, year int, value int64) model.Record {
	return model.Record{Year: year, City: city, Metric: m, Category: cat, Table: table, Value: value}
}

func snapshotOf(t *testing.T, records ...model.Record) *dataset.Snapshot {
	t.Helper()
	b := dataset.NewBuilder()
	require.NoError(t, b.Add(records...))
	return b.Build()
}

// fixture holds facilities for 2023 and 2024 in accommodation_type and
// rooms for 2023 in scale_class. Area and prefecture rows are deliberately
// wrong so any leak into a sum shows up.
//
//	         2023  2024
//	那覇市     10    15
//	石垣市      0     5
//	名護市      6     3
//	糸満市      4     4
//	宮古島市    -     7
func fixture(t *testing.T) *dataset.Snapshot {
	const at = model.TableAccommodationType
	f := model.MetricFacilities
	return snapshotOf(t,
		rec(at, "那覇市", f, "total", 2023, 10),
		rec(at, "石垣市", f, "total", 2023, 0),
		rec(at, "名護市", f, "total", 2023, 6),
		rec(at, "糸満市", f, "total", 2023, 4),
		rec(at, "南部", f, "total", 2023, 999),
		rec(at, "沖縄県", f, "total", 2023, 9999),

		rec(at, "那覇市", f, "total", 2024, 15),
		rec(at, "石垣市", f, "total", 2024, 5),
		rec(at, "名護市", f, "total", 2024, 3),
		rec(at, "糸満市", f, "total", 2024, 4),
		rec(at, "宮古島市", f, "total", 2024, 7),
		rec(at, "南部", f, "total", 2024, 999),
		rec(at, "沖縄県", f, "total", 2024, 9999),

		rec(at, "那覇市", f, "hotel_ryokan", 2024, 9),

		rec(model.TableScaleClass, "那覇市", model.MetricRooms, "total", 2023, 100),
	)
}

func newEngine() *Engine {
	return New(model.DefaultGeography(), nil)
}
