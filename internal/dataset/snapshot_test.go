package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lodging-cli/internal/model"
)

func rec(table, city string, metric model.Metric, cat string, year int, value int64) model.Record {
	return model.Record{Year: year, City: city, Metric: metric, Category: cat, Table: table, Value: value}
}

func TestBuilder_LastWriteWins(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add(
		rec("accommodation_type", "那覇市", model.MetricFacilities, "total", 2023, 100),
		rec("accommodation_type", "石垣市", model.MetricFacilities, "total", 2023, 40),
	))
	require.NoError(t, b.Add(
		rec("accommodation_type", "那覇市", model.MetricFacilities, "total", 2023, 120),
	))
	assert.Equal(t, 2, b.Len())

	s := b.Build()
	assert.Equal(t, 2, s.Len())

	vals := s.Table("accommodation_type").Values(Filter{Metric: model.MetricFacilities, Category: "total", Year: 2023})
	assert.Equal(t, map[string]int64{"那覇市": 120, "石垣市": 40}, vals)
}

func TestBuilder_RejectsMalformedRecord(t *testing.T) {
	b := NewBuilder()
	err := b.Add(rec("scale_class", "", model.MetricRooms, "total", 2023, 1))
	require.Error(t, err)

	var re *model.RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "city", re.Field)
	assert.Equal(t, 0, b.Len())
}

func TestBuilder_BuildIsIndependent(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add(rec("scale_class", "那覇市", model.MetricRooms, "total", 2023, 5)))
	s := b.Build()

	require.NoError(t, b.Add(rec("scale_class", "那覇市", model.MetricRooms, "total", 2023, 9)))
	vals := s.Table("scale_class").Values(Filter{Metric: model.MetricRooms, Category: "total", Year: 2023})
	assert.Equal(t, int64(5), vals["那覇市"])
}

func TestSnapshot_TablesAndViews(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add(
		rec("scale_class", "那覇市", model.MetricRooms, "total", 2023, 5),
		rec("scale_class", "那覇市", model.MetricRooms, "large", 2023, 3),
		rec("hotel_breakdown", "那覇市", model.MetricRooms, "total", 2023, 7),
		rec("hotel_breakdown", "那覇市", model.MetricCapacity, "total", 2022, 70),
	))
	s := b.Build()

	assert.Equal(t, []string{"hotel_breakdown", "scale_class"}, s.Tables())
	assert.True(t, s.Table("accommodation_type").Empty())
	assert.Equal(t, 2, s.Table("scale_class").Len())
	assert.Same(t, s.All(), s.Table(AllTables))

	all := s.All().Values(Filter{Metric: model.MetricRooms, Category: "total", Year: 2023})
	assert.Equal(t, int64(12), all["那覇市"], "unfiltered view sums across tables")

	hb := s.Table("hotel_breakdown")
	assert.Equal(t, []model.Metric{model.MetricRooms, model.MetricCapacity}, hb.Metrics())
	assert.True(t, hb.HasMetric(model.MetricCapacity))
	assert.False(t, hb.HasMetric(model.MetricFacilities))
	assert.Equal(t, []int{2022}, hb.Years(model.MetricCapacity, "total"))
	assert.True(t, hb.HasYear(model.MetricRooms, "total", 2023))
	assert.False(t, hb.HasYear(model.MetricRooms, "total", 2022))

	sc := s.Table("scale_class")
	assert.Equal(t, []string{"total", "large"}, sc.Categories(model.MetricRooms))
	assert.True(t, sc.HasCategory(model.MetricRooms, "large"))
	assert.False(t, sc.HasCategory(model.MetricRooms, "small"))
	assert.Equal(t, []string{"那覇市"}, sc.Cities())

	assert.Len(t, s.Records(), 4)
}

func TestView_ValuesFilters(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add(
		rec("t", "那覇市", model.MetricFacilities, "total", 2023, 10),
		rec("t", "石垣市", model.MetricFacilities, "total", 2023, 0),
		rec("t", "南部", model.MetricFacilities, "total", 2023, 999),
		rec("t", "沖縄県", model.MetricFacilities, "total", 2023, 9999),
	))
	v := b.Build().Table("t")
	f := Filter{Metric: model.MetricFacilities, Category: "total", Year: 2023, Exclude: []string{"南部", "沖縄県"}}

	assert.Equal(t, map[string]int64{"那覇市": 10, "石垣市": 0}, v.Values(f))

	f.Cities = []string{"石垣市", "南部", "竹富町"}
	assert.Equal(t, map[string]int64{"石垣市": 0}, v.Values(f), "zero is kept, absent stays absent")

	f.Year = 1999
	assert.Empty(t, v.Values(f))
}
