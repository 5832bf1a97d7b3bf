package analytics

import (
	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

const overallComparisonSize = 10

// Gap is the spread between the highest and lowest ranked entity.
type Gap struct {
	Top        string `json:"top"`
	Bottom     string `json:"bottom"`
	Difference int64  `json:"difference"`
}

// AreaComposition lists an area's largest members.
type AreaComposition struct {
	Area  string        `json:"area"`
	Total int64         `json:"total"`
	Top   []RankedEntry `json:"top"`
}

// ComparisonResult is the output of a comparison query.
type ComparisonResult struct {
	Metric       model.Metric      `json:"metric"`
	Year         int               `json:"year"`
	Entries      []RankedEntry     `json:"entries"`
	Gap          *Gap              `json:"gap,omitempty"`
	Composition  []AreaComposition `json:"composition,omitempty"`
	Total        int64             `json:"total"`
	Mean         float64           `json:"mean"`
	Participants int               `json:"participants"`
}

// CompareEntities ranks the scope's entities against each other for one
// year. Municipality and area scopes list every entity with the gap between
// first and last; areas add their top members. The overall scope lists the
// top ten municipalities with the prefecture total and mean.
func CompareEntities(v *dataset.View, geo *model.Geography, m model.Metric, category string, scope Scope, year int) (ComparisonResult, error) {
	var (
		vals  map[string]int64
		order []string
		n     int
	)
	switch scope.Type {
	case LocationArea:
		vals = AggregateAreas(v, geo, m, year, scope.Areas)
		order = scope.AreaNames()
	case LocationMunicipality:
		vals = AggregateMunicipalities(v, geo, m, category, year, scope.Municipalities)
		order = scope.Municipalities
	default:
		vals = AggregateMunicipalities(v, geo, m, category, year, scope.Municipalities)
		order = scope.Municipalities
		n = overallComparisonSize
	}
	if len(vals) == 0 {
		return ComparisonResult{}, &NoDataError{Reason: "no " + string(m) + " data", Scope: scope.Label, Years: []int{year}}
	}

	total, _ := Sum(vals)
	out := ComparisonResult{
		Metric:       m,
		Year:         year,
		Entries:      RankValues(vals, order, n),
		Total:        total,
		Mean:         float64(total) / float64(len(vals)),
		Participants: len(vals),
	}

	if scope.Type != LocationOverall && len(out.Entries) > 1 {
		first, last := out.Entries[0], out.Entries[len(out.Entries)-1]
		out.Gap = &Gap{Top: first.Entity, Bottom: last.Entity, Difference: int64(first.Value - last.Value)}
	}

	if scope.Type == LocationArea {
		for _, a := range scope.Areas {
			sum, ok := vals[a.Name]
			if !ok {
				continue
			}
			members := AggregateMunicipalities(v, geo, m, model.CategoryTotal, year, a.Members)
			out.Composition = append(out.Composition, AreaComposition{
				Area:  a.Name,
				Total: sum,
				Top:   RankValues(members, a.Members, compositionSize),
			})
		}
	}
	return out, nil
}
