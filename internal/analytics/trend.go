package analytics

import (
	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// YearValue is one point of a series.
type YearValue struct {
	Year  int   `json:"year"`
	Value int64 `json:"value"`
}

// TrendSeries is one entity's values over the range. Change is nil when the
// entity misses an endpoint; Incomparable then says which.
type TrendSeries struct {
	Entity       string        `json:"entity"`
	Points       []YearValue   `json:"points"`
	Change       *Change       `json:"change,omitempty"`
	Incomparable *Incomparable `json:"incomparable,omitempty"`
}

// TrendResult is the output of a trend query.
type TrendResult struct {
	Metric    model.Metric  `json:"metric"`
	StartYear int           `json:"start_year"`
	EndYear   int           `json:"end_year"`
	Series    []TrendSeries `json:"series"`
}

// Trend aggregates each scoped entity per year over [start, end] and
// compares the endpoints. The overall scope is a single series of the
// municipality sum, named after the prefecture.
func Trend(v *dataset.View, geo *model.Geography, m model.Metric, category string, scope Scope, start, end int) (TrendResult, error) {
	if start > end {
		return TrendResult{}, invalidParam("year_range", [2]int{start, end}, "start must not follow end")
	}

	var (
		order     []string
		aggregate func(year int) map[string]int64
	)
	switch scope.Type {
	case LocationArea:
		order = scope.AreaNames()
		aggregate = func(y int) map[string]int64 {
			return AggregateAreas(v, geo, m, y, scope.Areas)
		}
	case LocationMunicipality:
		order = scope.Municipalities
		aggregate = func(y int) map[string]int64 {
			return AggregateMunicipalities(v, geo, m, category, y, scope.Municipalities)
		}
	default:
		order = []string{geo.Prefecture}
		aggregate = func(y int) map[string]int64 {
			sum, ok := Sum(AggregateMunicipalities(v, geo, m, category, y, scope.Municipalities))
			if !ok {
				return nil
			}
			return map[string]int64{geo.Prefecture: sum}
		}
	}

	byYear := YearSeries(start, end, aggregate)
	if len(byYear) == 0 {
		return TrendResult{}, &NoDataError{
			Reason: "no " + string(m) + " data in range",
			Scope:  scope.Label,
			Years:  []int{start, end},
		}
	}

	out := TrendResult{Metric: m, StartYear: start, EndYear: end}
	changes := make(map[string]Change)
	missing := make(map[string]Incomparable)
	if start < end {
		cmp := Compare(byYear[start], byYear[end], order, YearPair{Baseline: start, Comparison: end})
		for _, c := range cmp.Changes {
			changes[c.Entity] = c
		}
		for _, inc := range cmp.Incomparable {
			missing[inc.Entity] = inc
		}
	}

	for _, e := range order {
		s := TrendSeries{Entity: e, Points: []YearValue{}}
		for y := start; y <= end; y++ {
			if val, ok := byYear[y][e]; ok {
				s.Points = append(s.Points, YearValue{Year: y, Value: val})
			}
		}
		if start < end {
			if c, ok := changes[e]; ok {
				s.Change = &c
			} else if inc, ok := missing[e]; ok {
				s.Incomparable = &inc
			} else {
				s.Incomparable = &Incomparable{Entity: e, Missing: []int{start, end}}
			}
		}
		out.Series = append(out.Series, s)
	}
	return out, nil
}
