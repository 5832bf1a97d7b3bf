package analytics

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRate(t *testing.T) {
	tests := []struct {
		name     string
		baseline int64
		delta    int64
		kind     RateKind
		percent  float64
	}{
		{name: "growth", baseline: 10, delta: 5, kind: RateFinite, percent: 50},
		{name: "decline", baseline: 4, delta: -1, kind: RateFinite, percent: -25},
		{name: "zero baseline no change", baseline: 0, delta: 0, kind: RateFinite, percent: 0},
		{name: "zero baseline growth", baseline: 0, delta: 5, kind: RateUnbounded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeRate(tt.baseline, tt.delta)
			assert.Equal(t, tt.kind, r.Kind())
			p, finite := r.Percent()
			assert.Equal(t, tt.kind == RateFinite, finite)
			if finite {
				assert.InDelta(t, tt.percent, p, 1e-9)
			}
		})
	}
}

func TestRate_JSON(t *testing.T) {
	b, err := json.Marshal(Unbounded())
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"unbounded"}`, string(b))

	b, err = json.Marshal(Finite(50))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"finite","percent":50}`, string(b))

	var r Rate
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"finite","percent":-12.5}`), &r))
	p, ok := r.Percent()
	assert.True(t, ok)
	assert.InDelta(t, -12.5, p, 1e-9)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"finite"}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"huge"}`), &r))
}

func TestRate_String(t *testing.T) {
	assert.Equal(t, "+50.0%", Finite(50).String())
	assert.Equal(t, "-3.3%", Finite(-3.333).String())
	assert.Equal(t, "new", Unbounded().String())
	assert.Equal(t, "n/a", Undefined().String())
}

// X: 10 → 15, Y: 0 → 5. Both rise by 5 and tie at rank 1; Y's rate is
// unbounded.
func TestRankChanges_DeltaTieWithUnboundedRate(t *testing.T) {
	pair := YearPair{Baseline: 2023, Comparison: 2024}
	cmp := Compare(
		map[string]int64{"X": 10, "Y": 0},
		map[string]int64{"X": 15, "Y": 5},
		[]string{"X", "Y"}, pair,
	)
	require.Len(t, cmp.Changes, 2)
	assert.Empty(t, cmp.Incomparable)

	x, y := cmp.Changes[0], cmp.Changes[1]
	assert.Equal(t, int64(5), x.Delta)
	assert.Equal(t, int64(5), y.Delta)
	p, _ := x.Rate.Percent()
	assert.InDelta(t, 50.0, p, 1e-9)
	assert.True(t, y.Rate.IsUnbounded())

	byDelta := RankByDelta(cmp.Changes, 2)
	require.Len(t, byDelta.Entries, 2)
	assert.Equal(t, 1, byDelta.Entries[0].Rank)
	assert.Equal(t, 1, byDelta.Entries[1].Rank)
	assert.Equal(t, 2, byDelta.ParticipantTotal)

	byRate, unbounded := RankByRate(cmp.Changes, 2)
	require.Len(t, byRate.Entries, 1)
	assert.Equal(t, "X", byRate.Entries[0].Item.Entity)
	assert.Equal(t, 1, byRate.ParticipantTotal)
	require.Len(t, unbounded, 1)
	assert.Equal(t, "Y", unbounded[0].Entity)
}

func TestComputeRate_ZeroToZeroIsFiniteZero(t *testing.T) {
	cmp := Compare(map[string]int64{"Z": 0}, map[string]int64{"Z": 0}, nil, YearPair{Baseline: 2023, Comparison: 2024})
	require.Len(t, cmp.Changes, 1)
	c := cmp.Changes[0]
	assert.Equal(t, int64(0), c.Delta)
	assert.True(t, c.Rate.IsFinite())
	assert.False(t, c.Rate.IsUnbounded())

	r, unbounded := RankByRate(cmp.Changes, 5)
	assert.Len(t, r.Entries, 1)
	assert.Empty(t, unbounded)
}

func TestCompare_IncomparableNeverZeroFilled(t *testing.T) {
	pair := YearPair{Baseline: 2020, Comparison: 2024}
	cmp := Compare(
		map[string]int64{"A": 1, "B": 2},
		map[string]int64{"B": 3, "C": 4},
		[]string{"A", "B", "C"}, pair,
	)
	require.Len(t, cmp.Changes, 1)
	assert.Equal(t, Change{Entity: "B", Baseline: 2, Comparison: 3, Delta: 1, Rate: Finite(50)}, cmp.Changes[0])
	assert.Equal(t, []Incomparable{
		{Entity: "A", Missing: []int{2024}},
		{Entity: "C", Missing: []int{2020}},
	}, cmp.Incomparable)
}

func TestRankByRate_NeverRanksUnbounded(t *testing.T) {
	changes := []Change{
		{Entity: "a", Delta: 1, Rate: Unbounded()},
		{Entity: "b", Delta: 2, Rate: Finite(10)},
		{Entity: "c", Delta: 9, Rate: Unbounded()},
		{Entity: "d", Delta: -1, Rate: Finite(-5)},
		{Entity: "e", Rate: Undefined()},
	}
	r, unbounded := RankByRate(changes, 10)
	assert.Equal(t, 2, r.ParticipantTotal)
	for _, e := range r.Entries {
		assert.True(t, e.Item.Rate.IsFinite())
	}
	assert.Len(t, unbounded, 2)
}

func TestResolveYearPair(t *testing.T) {
	p, err := ResolveYearPair(AnalysisYearOverYear, 2024, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, YearPair{Baseline: 2023, Comparison: 2024}, p)

	p, err = ResolveYearPair(AnalysisPeriod, 0, 2007, 2024)
	require.NoError(t, err)
	assert.Equal(t, YearPair{Baseline: 2007, Comparison: 2024}, p)

	for _, tc := range [][3]int{{0, 2024, 2024}, {0, 2024, 2020}, {0, 0, 2020}} {
		_, err := ResolveYearPair(AnalysisPeriod, tc[0], tc[1], tc[2])
		var ipe *InvalidParameterError
		assert.True(t, errors.As(err, &ipe), "%v", tc)
	}

	_, err = ResolveYearPair(AnalysisYearOverYear, 0, 0, 0)
	assert.Error(t, err)
}

func TestRankChanges(t *testing.T) {
	cmp := Compare(
		map[string]int64{"a": 10, "b": 0, "c": 4},
		map[string]int64{"a": 12, "b": 3, "c": 2, "d": 1},
		[]string{"a", "b", "c", "d"},
		YearPair{Baseline: 1, Comparison: 2},
	)

	byCount := RankChanges(cmp, ResultCount, 2)
	assert.Equal(t, 3, byCount.ParticipantTotal)
	require.Len(t, byCount.Entries, 2)
	assert.Equal(t, "b", byCount.Entries[0].Entity)
	assert.Equal(t, "a", byCount.Entries[1].Entity)
	assert.Empty(t, byCount.Unbounded)
	assert.Len(t, byCount.Incomparable, 1)

	byRate := RankChanges(cmp, ResultRate, 5)
	assert.Equal(t, 2, byRate.ParticipantTotal)
	require.Len(t, byRate.Entries, 2)
	assert.Equal(t, "a", byRate.Entries[0].Entity)
	assert.Equal(t, "c", byRate.Entries[1].Entity)
	require.Len(t, byRate.Unbounded, 1)
	assert.Equal(t, "b", byRate.Unbounded[0].Entity)
}
