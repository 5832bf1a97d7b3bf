package analytics

import (
	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// AggregateMunicipalities returns municipality → value for one slice.
// Municipalities without a record are absent. Pseudo entities are always
// dropped, even if listed.
func AggregateMunicipalities(v *dataset.View, geo *model.Geography, m model.Metric, category string, year int, municipalities []string) map[string]int64 {
	if category == "" {
		category = model.CategoryTotal
	}
	return v.Values(dataset.Filter{
		Metric:   m,
		Category: category,
		Year:     year,
		Cities:   municipalities,
		Exclude:  geo.PseudoEntities(),
	})
}

// AggregateAreas returns area → sum of member municipalities' total rows.
// Area-level rows in the source are never read. An area with no member data
// for the year is absent.
func AggregateAreas(v *dataset.View, geo *model.Geography, m model.Metric, year int, areas []AreaScope) map[string]int64 {
	out := make(map[string]int64, len(areas))
	for _, a := range areas {
		if len(a.Members) == 0 {
			continue
		}
		vals := AggregateMunicipalities(v, geo, m, model.CategoryTotal, year, a.Members)
		if len(vals) == 0 {
			continue
		}
		var sum int64
		for _, val := range vals {
			sum += val
		}
		out[a.Name] = sum
	}
	return out
}

// AllAreas returns every configured area as an AreaScope.
func AllAreas(geo *model.Geography) []AreaScope {
	names := geo.AreaNames()
	out := make([]AreaScope, 0, len(names))
	for _, n := range names {
		members, _ := geo.AreaMembers(n)
		kept := make([]string, 0, len(members))
		for _, m := range members {
			if geo.IsMunicipality(m) && !geo.IsPseudoEntity(m) {
				kept = append(kept, m)
			}
		}
		out = append(out, AreaScope{Name: n, Members: kept})
	}
	return out
}

// Sum returns the total of values and whether any value was present.
func Sum(values map[string]int64) (int64, bool) {
	var s int64
	for _, v := range values {
		s += v
	}
	return s, len(values) > 0
}

// YearSeries aggregates one entity set per year over [start, end]. Years
// without data are omitted.
func YearSeries(start, end int, aggregate func(year int) map[string]int64) map[int]map[string]int64 {
	out := make(map[int]map[string]int64)
	for y := start; y <= end; y++ {
		vals := aggregate(y)
		if len(vals) > 0 {
			out[y] = vals
		}
	}
	return out
}
