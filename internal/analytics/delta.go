package analytics

import (
	"github.com/sells-group/lodging-cli/internal/model"
)

// AnalysisType selects how a year pair is derived.
type AnalysisType string

// AnalysisType values.
const (
	AnalysisYearOverYear AnalysisType = "yoy"
	AnalysisPeriod       AnalysisType = "period"
)

// ParseAnalysisType accepts English names and dashboard labels.
func ParseAnalysisType(s string) (AnalysisType, error) {
	switch s {
	case "", "yoy", "year-over-year", "対前年比較", "前年比":
		return AnalysisYearOverYear, nil
	case "period", "期間比較", "期間":
		return AnalysisPeriod, nil
	default:
		return "", invalidParam("analysis_type", s, "valid: yoy, period")
	}
}

// YearPair is the baseline and comparison year of a change computation.
type YearPair struct {
	Baseline   int `json:"baseline"`
	Comparison int `json:"comparison"`
}

// ResolveYearPair derives the pair. Year-over-year compares year-1 with
// year; a period compares start with end and requires start < end.
func ResolveYearPair(a AnalysisType, year, start, end int) (YearPair, error) {
	switch a {
	case AnalysisYearOverYear:
		if year <= 0 {
			return YearPair{}, invalidParam("year", year, "year-over-year analysis needs a year")
		}
		return YearPair{Baseline: year - 1, Comparison: year}, nil
	case AnalysisPeriod:
		if start <= 0 || end <= 0 {
			return YearPair{}, invalidParam("year_range", [2]int{start, end}, "period analysis needs start and end")
		}
		if start >= end {
			return YearPair{}, invalidParam("year_range", [2]int{start, end}, "start must precede end")
		}
		return YearPair{Baseline: start, Comparison: end}, nil
	default:
		return YearPair{}, invalidParam("analysis_type", a, "valid: yoy, period")
	}
}

// Change is one entity's movement between two years.
type Change struct {
	Entity     string `json:"entity"`
	Baseline   int64  `json:"baseline"`
	Comparison int64  `json:"comparison"`
	Delta      int64  `json:"delta"`
	Rate       Rate   `json:"rate"`
}

// Incomparable is an entity with data at one endpoint only.
type Incomparable struct {
	Entity  string `json:"entity"`
	Missing []int  `json:"missing_years"`
}

// Comparison splits entities into those with both endpoints and the rest.
type Comparison struct {
	Years        YearPair       `json:"years"`
	Changes      []Change       `json:"changes"`
	Incomparable []Incomparable `json:"incomparable,omitempty"`
}

// Compare pairs two aggregations. Only entities present in both are changes;
// entities with one endpoint are incomparable, never zero-filled.
func Compare(baseline, comparison map[string]int64, order []string, years YearPair) Comparison {
	union := make(map[string]int64, len(baseline)+len(comparison))
	for k := range baseline {
		union[k] = 0
	}
	for k := range comparison {
		union[k] = 0
	}

	out := Comparison{Years: years}
	for _, e := range Entities(union, order) {
		b, okB := baseline[e.Entity]
		c, okC := comparison[e.Entity]
		switch {
		case okB && okC:
			d := c - b
			out.Changes = append(out.Changes, Change{
				Entity: e.Entity, Baseline: b, Comparison: c, Delta: d, Rate: ComputeRate(b, d),
			})
		case okB:
			out.Incomparable = append(out.Incomparable, Incomparable{Entity: e.Entity, Missing: []int{years.Comparison}})
		default:
			out.Incomparable = append(out.Incomparable, Incomparable{Entity: e.Entity, Missing: []int{years.Baseline}})
		}
	}
	return out
}

// RankByDelta ranks every change by descending delta.
func RankByDelta(changes []Change, n int) Ranking[Change] {
	return RankBy(changes, func(c Change) float64 { return float64(c.Delta) }, n)
}

// RankByRate ranks changes with a finite rate. Unbounded changes are removed
// from the pool first and returned separately; undefined rates are dropped.
func RankByRate(changes []Change, n int) (Ranking[Change], []Change) {
	var (
		finite    []Change
		unbounded []Change
	)
	for _, c := range changes {
		switch c.Rate.Kind() {
		case RateFinite:
			finite = append(finite, c)
		case RateUnbounded:
			unbounded = append(unbounded, c)
		}
	}
	return RankBy(finite, func(c Change) float64 {
		p, _ := c.Rate.Percent()
		return p
	}, n), unbounded
}

// ResultType selects the sort key of a change ranking.
type ResultType string

// ResultType values.
const (
	ResultCount ResultType = "count"
	ResultRate  ResultType = "rate"
)

// ParseResultType accepts English names and dashboard labels.
func ParseResultType(s string) (ResultType, error) {
	switch s {
	case "", "count", "delta", "増減数":
		return ResultCount, nil
	case "rate", "percent", "増減率":
		return ResultRate, nil
	default:
		return "", invalidParam("result_type", s, "valid: count, rate")
	}
}

// ChangeEntry is one row of a change ranking, carrying both companions.
type ChangeEntry struct {
	Change
	Rank             int `json:"rank"`
	ParticipantTotal int `json:"participant_total"`
}

// ChangeRanking is the output of a delta-count or delta-rate ranking.
type ChangeRanking struct {
	Metric           model.Metric   `json:"metric"`
	Years            YearPair       `json:"years"`
	By               ResultType     `json:"by"`
	Entries          []ChangeEntry  `json:"entries"`
	ParticipantTotal int            `json:"participant_total"`
	Unbounded        []Change       `json:"unbounded,omitempty"`
	Incomparable     []Incomparable `json:"incomparable,omitempty"`
}

// RankChanges ranks cmp by delta or rate and keeps the top n.
func RankChanges(cmp Comparison, by ResultType, n int) ChangeRanking {
	out := ChangeRanking{Years: cmp.Years, By: by, Incomparable: cmp.Incomparable}
	var r Ranking[Change]
	if by == ResultRate {
		r, out.Unbounded = RankByRate(cmp.Changes, n)
	} else {
		r = RankByDelta(cmp.Changes, n)
	}
	out.ParticipantTotal = r.ParticipantTotal
	out.Entries = make([]ChangeEntry, len(r.Entries))
	for i, e := range r.Entries {
		out.Entries[i] = ChangeEntry{Change: e.Item, Rank: e.Rank, ParticipantTotal: r.ParticipantTotal}
	}
	return out
}
