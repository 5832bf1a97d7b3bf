package analytics

import (
	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// MetricStanding is an entity's value and rank for one metric. Rank is
// against the full universe (every municipality, or every area).
type MetricStanding struct {
	Metric           model.Metric  `json:"metric"`
	Value            int64         `json:"value"`
	Rank             int           `json:"rank,omitempty"`
	ParticipantTotal int           `json:"participant_total"`
	NoData           bool          `json:"no_data,omitempty"`
	TopMembers       []RankedEntry `json:"top_members,omitempty"`
}

// EntityProfile groups every requested metric for one entity.
type EntityProfile struct {
	Entity    string           `json:"entity"`
	Area      string           `json:"area,omitempty"`
	Standings []MetricStanding `json:"standings"`
}

const compositionSize = 3

// Combine builds per-entity profiles for the scope. Each metric is ranked
// over the whole universe before display is filtered to the scope, so an
// in-scope entity's rank does not depend on what else was selected. Entities
// lacking a metric are kept with NoData set.
func Combine(v *dataset.View, geo *model.Geography, metrics []model.Metric, category string, scope Scope, year int) []EntityProfile {
	if scope.Type == LocationArea {
		return combineAreas(v, geo, metrics, scope, year)
	}

	universe := geo.MunicipalityNames()
	profiles := make([]EntityProfile, len(scope.Municipalities))
	for i, name := range scope.Municipalities {
		profiles[i] = EntityProfile{Entity: name, Area: geo.AreaOf(name)}
	}
	for _, m := range metrics {
		pool := AggregateMunicipalities(v, geo, m, category, year, universe)
		ranks, total := poolRanks(pool, universe)
		for i := range profiles {
			profiles[i].Standings = append(profiles[i].Standings, standing(m, pool, ranks, total, profiles[i].Entity))
		}
	}
	return profiles
}

func combineAreas(v *dataset.View, geo *model.Geography, metrics []model.Metric, scope Scope, year int) []EntityProfile {
	profiles := make([]EntityProfile, len(scope.Areas))
	for i, a := range scope.Areas {
		profiles[i] = EntityProfile{Entity: a.Name}
	}
	for _, m := range metrics {
		pool := AggregateAreas(v, geo, m, year, AllAreas(geo))
		ranks, total := poolRanks(pool, geo.AreaNames())
		for i, a := range scope.Areas {
			s := standing(m, pool, ranks, total, a.Name)
			if !s.NoData {
				members := AggregateMunicipalities(v, geo, m, model.CategoryTotal, year, a.Members)
				s.TopMembers = RankValues(members, a.Members, compositionSize)
			}
			profiles[i].Standings = append(profiles[i].Standings, s)
		}
	}
	return profiles
}

func poolRanks(pool map[string]int64, order []string) (map[string]int, int) {
	ents := Entities(pool, order)
	return RankOf(ents,
		func(e EntityValue) float64 { return float64(e.Value) },
		func(e EntityValue) string { return e.Entity },
	), len(ents)
}

func standing(m model.Metric, pool map[string]int64, ranks map[string]int, total int, entity string) MetricStanding {
	val, ok := pool[entity]
	if !ok {
		return MetricStanding{Metric: m, ParticipantTotal: total, NoData: true}
	}
	return MetricStanding{Metric: m, Value: val, Rank: ranks[entity], ParticipantTotal: total}
}

// MetricSummary is the prefecture-wide view of one metric.
type MetricSummary struct {
	Metric         model.Metric  `json:"metric"`
	Total          int64         `json:"total"`
	Municipalities int           `json:"municipalities"`
	Mean           float64       `json:"mean"`
	Top            []RankedEntry `json:"top"`
}

// Summarize totals each metric over the whole municipality universe.
// Metrics without data for the year are skipped.
func Summarize(v *dataset.View, geo *model.Geography, metrics []model.Metric, category string, year, top int) []MetricSummary {
	universe := geo.MunicipalityNames()
	var out []MetricSummary
	for _, m := range metrics {
		vals := AggregateMunicipalities(v, geo, m, category, year, universe)
		total, ok := Sum(vals)
		if !ok {
			continue
		}
		out = append(out, MetricSummary{
			Metric:         m,
			Total:          total,
			Municipalities: len(vals),
			Mean:           float64(total) / float64(len(vals)),
			Top:            RankValues(vals, universe, top),
		})
	}
	return out
}
