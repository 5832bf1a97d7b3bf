package ingest

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lodging-cli/internal/model"
)

type sheetData struct {
	name string
	rows [][]string
}

func buildWorkbook(t *testing.T, sheets ...sheetData) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, s := range sheets {
		sheet, err := f.AddSheet(s.name)
		require.NoError(t, err)
		for _, rowData := range s.rows {
			row := sheet.AddRow()
			for _, v := range rowData {
				row.AddCell().SetString(v)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func transitionWorkbook(t *testing.T) []byte {
	return buildWorkbook(t,
		sheetData{"notes", [][]string{{"この表について"}}},
		sheetData{"Total", [][]string{
			{"沖縄県宿泊施設数の推移"},
			{""},
			{"年", "軒数（軒）", "客室数", "収容人数"},
			{"S47", "238", "4,512", "－"},
			{"令和元年", "２，９１５", "48,104", "112,000"},
			{"R5", "3912", "56012", "x"},
			{"注：各年12月31日現在"},
			{""},
		}},
	)
}

func TestParseTransitionBytes(t *testing.T) {
	recs, err := ParseTransitionBytes(transitionWorkbook(t), "Transition.xlsx")
	require.NoError(t, err)
	require.Len(t, recs, 9)

	for _, r := range recs {
		assert.Equal(t, PrefectureCity, r.City)
		assert.Equal(t, model.TablePrefTransition, r.Table)
		assert.Equal(t, model.CategoryTotal, r.Category)
		require.NoError(t, r.Validate())
	}

	byKey := make(map[[2]any]int64)
	for _, r := range recs {
		byKey[[2]any{r.Year, r.Metric}] = r.Value
	}
	assert.Equal(t, int64(238), byKey[[2]any{1972, model.MetricFacilities}])
	assert.Equal(t, int64(4512), byKey[[2]any{1972, model.MetricRooms}])
	assert.Equal(t, int64(0), byKey[[2]any{1972, model.MetricCapacity}])
	assert.Equal(t, int64(2915), byKey[[2]any{2019, model.MetricFacilities}])
	assert.Equal(t, int64(56012), byKey[[2]any{2023, model.MetricRooms}])
	assert.Equal(t, int64(0), byKey[[2]any{2023, model.MetricCapacity}], "unreadable cell counts as zero")
}

func TestParseTransition_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Transition.xlsx")
	f, err := xlsx.OpenBinary(transitionWorkbook(t))
	require.NoError(t, err)
	require.NoError(t, f.Save(path))

	recs, err := ParseTransition(path)
	require.NoError(t, err)
	assert.Len(t, recs, 9)
}

func TestParseTransition_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{
			name: "no header",
			rows: [][]string{{"year", "value"}, {"R5", "1"}},
			want: "no header row",
		},
		{
			name: "missing capacity",
			rows: [][]string{{"year", "facilities", "rooms"}, {"R5", "1", "2"}},
			want: "missing capacity column",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransitionBytes(buildWorkbook(t, sheetData{"total", tt.rows}), "t.xlsx")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := ParseTransition(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
