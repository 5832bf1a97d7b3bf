package analytics

import (
	"sort"

	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// ChangeStanding is a change with its ranks among every municipality.
// RateRank is zero when the rate is not finite.
type ChangeStanding struct {
	Change
	DeltaRank int `json:"delta_rank"`
	RateRank  int `json:"rate_rank,omitempty"`
}

// ChangeAnalysis is the output of a change-analysis query.
type ChangeAnalysis struct {
	Metric           model.Metric     `json:"metric"`
	Years            YearPair         `json:"years"`
	By               ResultType       `json:"by"`
	Entries          []ChangeStanding `json:"entries"`
	Incomparable     []Incomparable   `json:"incomparable,omitempty"`
	ParticipantTotal int              `json:"participant_total"`
	RateParticipants int              `json:"rate_participants"`
}

// AnalyzeChanges computes every municipality's change for the pair and
// ranks delta and rate across the whole universe. Overall scope displays
// the top n by delta whatever the result type; narrower scopes display
// every scoped municipality, ordered by the chosen key.
func AnalyzeChanges(v *dataset.View, geo *model.Geography, m model.Metric, category string, scope Scope, pair YearPair, by ResultType, n int) (ChangeAnalysis, error) {
	universe := geo.MunicipalityNames()
	cmp := Compare(
		AggregateMunicipalities(v, geo, m, category, pair.Baseline, universe),
		AggregateMunicipalities(v, geo, m, category, pair.Comparison, universe),
		universe, pair,
	)
	if len(cmp.Changes) == 0 {
		return ChangeAnalysis{}, &NoDataError{
			Reason: "no municipality has " + string(m) + " data in both years",
			Scope:  scope.Label,
			Years:  []int{pair.Baseline, pair.Comparison},
		}
	}

	entity := func(c Change) string { return c.Entity }
	deltaRanks := RankOf(cmp.Changes, func(c Change) float64 { return float64(c.Delta) }, entity)
	rateRanking, _ := RankByRate(cmp.Changes, 0)
	rateRanks := make(map[string]int, rateRanking.Len())
	for _, e := range rateRanking.Entries {
		rateRanks[e.Item.Entity] = e.Rank
	}

	out := ChangeAnalysis{
		Metric:           m,
		Years:            pair,
		By:               by,
		ParticipantTotal: len(cmp.Changes),
		RateParticipants: rateRanking.ParticipantTotal,
	}
	standingOf := func(c Change) ChangeStanding {
		return ChangeStanding{Change: c, DeltaRank: deltaRanks[c.Entity], RateRank: rateRanks[c.Entity]}
	}

	if scope.Type == LocationOverall {
		for _, e := range RankByDelta(cmp.Changes, n).Entries {
			out.Entries = append(out.Entries, standingOf(e.Item))
		}
		out.Incomparable = cmp.Incomparable
		return out, nil
	}

	changes := make(map[string]Change, len(cmp.Changes))
	for _, c := range cmp.Changes {
		changes[c.Entity] = c
	}
	missing := make(map[string]Incomparable, len(cmp.Incomparable))
	for _, inc := range cmp.Incomparable {
		missing[inc.Entity] = inc
	}
	for _, name := range scope.Municipalities {
		if c, ok := changes[name]; ok {
			out.Entries = append(out.Entries, standingOf(c))
			continue
		}
		inc, ok := missing[name]
		if !ok {
			inc = Incomparable{Entity: name, Missing: []int{pair.Baseline, pair.Comparison}}
		}
		out.Incomparable = append(out.Incomparable, inc)
	}
	sortStandings(out.Entries, by)
	return out, nil
}

// sortStandings orders by delta rank, or by rate rank with non-finite rates
// last. The sort is stable so ties keep code order.
func sortStandings(s []ChangeStanding, by ResultType) {
	sort.SliceStable(s, func(i, j int) bool {
		if by == ResultRate {
			ri, rj := s[i].RateRank, s[j].RateRank
			if (ri == 0) != (rj == 0) {
				return rj == 0
			}
			return ri < rj
		}
		return s[i].DeltaRank < s[j].DeltaRank
	})
}
