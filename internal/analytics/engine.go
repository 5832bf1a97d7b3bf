// Package analytics answers structured ranking, change and trend questions
// over a dataset snapshot.
package analytics

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// Diagnostic explains a non-ok Result.
type Diagnostic struct {
	Message             string         `json:"message"`
	AvailableTables     []string       `json:"available_tables,omitempty"`
	AvailableMetrics    []model.Metric `json:"available_metrics,omitempty"`
	AvailableCategories []string       `json:"available_categories,omitempty"`
	AvailableYears      []int          `json:"available_years,omitempty"`
	Participants        int            `json:"participants"`
}

// ValueRanking is the output of a ranking query.
type ValueRanking struct {
	Metric           model.Metric  `json:"metric"`
	Year             int           `json:"year"`
	Entries          []RankedEntry `json:"entries"`
	ParticipantTotal int           `json:"participant_total"`
}

// Result is the assembled answer to a Query. Exactly one payload field is
// set when Status is ok; otherwise Diagnostic is set.
type Result struct {
	Status   Status         `json:"status"`
	Question QuestionType   `json:"question_type"`
	Table    string         `json:"table,omitempty"`
	Metrics  []model.Metric `json:"metrics"`
	Category string         `json:"category"`
	Scope    Scope          `json:"scope"`
	Year     int            `json:"year,omitempty"`
	Years    *YearPair      `json:"years,omitempty"`

	Ranking    *ValueRanking     `json:"ranking,omitempty"`
	Changes    *ChangeRanking    `json:"changes,omitempty"`
	Analysis   *ChangeAnalysis   `json:"analysis,omitempty"`
	Profiles   []EntityProfile   `json:"profiles,omitempty"`
	Summary    []MetricSummary   `json:"summary,omitempty"`
	Trend      *TrendResult      `json:"trend,omitempty"`
	Comparison *ComparisonResult `json:"comparison,omitempty"`

	// Skipped lists basic-info metrics the selected table lacks.
	Skipped []model.Metric `json:"skipped,omitempty"`

	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

// OK reports whether the query produced a payload.
func (r *Result) OK() bool {
	return r.Status == StatusOK
}

// Engine runs queries. It holds no per-query state and is safe for
// concurrent use.
type Engine struct {
	geo      *model.Geography
	resolver *Resolver
	log      *zap.Logger
}

// New returns an Engine over geo. A nil logger uses zap.L().
func New(geo *model.Geography, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.L()
	}
	return &Engine{geo: geo, resolver: NewResolver(geo), log: log.Named("analytics")}
}

// Geography returns the geography the engine resolves scopes against.
func (e *Engine) Geography() *model.Geography {
	return e.geo
}

// Run answers q against snap. Recoverable conditions (empty scope, missing
// metric, year or table, no data) come back as a Result with a Diagnostic.
// Only malformed queries and unexpected failures return an error.
func (e *Engine) Run(snap *dataset.Snapshot, q Query) (*Result, error) {
	if snap == nil {
		return nil, eris.New("analytics: no dataset loaded")
	}
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Status:   StatusOK,
		Question: q.Question,
		Metrics:  q.Metrics,
		Category: q.Category,
	}
	ex := &execution{Engine: e, snap: snap, q: q, res: res}
	if err := ex.run(); err != nil {
		status, ok := StatusOf(err)
		if !ok {
			var ipe *InvalidParameterError
			if errors.As(err, &ipe) {
				return nil, err
			}
			return nil, eris.Wrapf(err, "analytics: run %s", q.Question)
		}
		res.Status = status
		res.Diagnostic = ex.diagnose(err)
		e.log.Debug("query not answered",
			zap.String("question", string(q.Question)),
			zap.String("status", string(status)),
			zap.String("table", res.Table),
			zap.String("reason", err.Error()),
		)
		return res, nil
	}

	e.log.Debug("query answered",
		zap.String("question", string(q.Question)),
		zap.String("table", res.Table),
		zap.String("scope", res.Scope.Label),
	)
	return res, nil
}

// execution carries one Run's working state.
type execution struct {
	*Engine
	snap  *dataset.Snapshot
	q     Query
	res   *Result
	view  *dataset.View
	scope Scope
}

func (x *execution) run() error {
	table, err := SelectTable(x.snap, x.q.Table)
	if err != nil {
		return err
	}
	x.res.Table = table
	x.view = x.snap.Table(table)

	x.scope = x.resolver.Resolve(x.q.LocationType, x.q.Locations)
	x.res.Scope = x.scope
	if x.scope.Empty() {
		return &ScopeEmptyError{LocationType: x.q.LocationType, Locations: x.q.Locations}
	}
	// Area values are sums of member total rows.
	if x.scope.Type == LocationArea && x.q.Category != model.CategoryTotal {
		return invalidParam("category", x.q.Category, "area scopes aggregate the total category only")
	}

	if err := x.validateMetrics(); err != nil {
		return err
	}

	m := x.q.Metric()
	switch x.q.Question {
	case QuestionBasicInfo:
		return x.basicInfo()
	case QuestionRanking:
		return x.ranking(m)
	case QuestionDeltaCount, QuestionDeltaRate:
		return x.changes(m)
	case QuestionChangeAnalysis:
		return x.changeAnalysis(m)
	case QuestionTrend:
		return x.trend(m)
	case QuestionComparison:
		return x.comparison(m)
	default:
		return invalidParam("question_type", x.q.Question, "unknown question type")
	}
}

// validateMetrics checks the primary metric. Basic info keeps the metrics
// the table has and only fails when none remain.
func (x *execution) validateMetrics() error {
	if x.q.Question != QuestionBasicInfo {
		return ValidateMetric(x.view, x.q.Metric(), x.q.Category)
	}
	var (
		kept  []model.Metric
		first error
	)
	for _, m := range x.q.Metrics {
		if err := ValidateMetric(x.view, m, x.q.Category); err != nil {
			if first == nil {
				first = err
			}
			x.res.Skipped = append(x.res.Skipped, m)
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return first
	}
	x.q.Metrics = kept
	x.res.Metrics = kept
	return nil
}

func (x *execution) basicInfo() error {
	year := x.q.Year
	x.res.Year = year
	var anyYear bool
	for _, m := range x.q.Metrics {
		if x.view.HasYear(m, x.q.Category, year) {
			anyYear = true
			break
		}
	}
	if !anyYear {
		return ValidateYears(x.view, x.q.Metric(), x.q.Category, year)
	}

	x.res.Profiles = Combine(x.view, x.geo, x.q.Metrics, x.q.Category, x.scope, year)
	if x.scope.Type == LocationOverall {
		x.res.Summary = Summarize(x.view, x.geo, x.q.Metrics, x.q.Category, year, DefaultRankingCount)
		if len(x.res.Summary) == 0 {
			return &NoDataError{Reason: "no municipality data", Scope: x.scope.Label, Years: []int{year}}
		}
	}
	return nil
}

func (x *execution) ranking(m model.Metric) error {
	year := x.q.Year
	x.res.Year = year
	if err := ValidateYears(x.view, m, x.q.Category, year); err != nil {
		return err
	}

	vals, order := x.aggregate(m, year)
	if len(vals) == 0 {
		return &NoDataError{Reason: "no " + string(m) + " data in scope", Scope: x.scope.Label, Years: []int{year}}
	}
	x.res.Ranking = &ValueRanking{
		Metric:           m,
		Year:             year,
		Entries:          RankValues(vals, order, x.q.Count),
		ParticipantTotal: len(vals),
	}
	return nil
}

func (x *execution) changes(m model.Metric) error {
	pair, err := x.q.YearPair()
	if err != nil {
		return err
	}
	x.res.Years = &pair
	if err := ValidateYears(x.view, m, x.q.Category, pair.Baseline, pair.Comparison); err != nil {
		return err
	}

	base, order := x.aggregate(m, pair.Baseline)
	comp, _ := x.aggregate(m, pair.Comparison)
	cmp := Compare(base, comp, order, pair)
	if len(cmp.Changes) == 0 {
		return &NoDataError{
			Reason:       "no entity in scope has data in both years",
			Scope:        x.scope.Label,
			Years:        []int{pair.Baseline, pair.Comparison},
			Participants: 0,
		}
	}
	ranked := RankChanges(cmp, x.q.ResultType, x.q.Count)
	ranked.Metric = m
	if ranked.ParticipantTotal == 0 {
		return &NoDataError{
			Reason: fmt.Sprintf("no finite rate in scope; %d entities grew from a zero baseline",
				len(ranked.Unbounded)),
			Scope: x.scope.Label,
			Years: []int{pair.Baseline, pair.Comparison},
		}
	}
	x.res.Changes = &ranked
	return nil
}

func (x *execution) changeAnalysis(m model.Metric) error {
	pair, err := x.q.YearPair()
	if err != nil {
		return err
	}
	x.res.Years = &pair
	if err := ValidateYears(x.view, m, x.q.Category, pair.Baseline, pair.Comparison); err != nil {
		return err
	}
	a, err := AnalyzeChanges(x.view, x.geo, m, x.q.Category, x.scope, pair, x.q.ResultType, x.q.Count)
	if err != nil {
		return err
	}
	x.res.Analysis = &a
	return nil
}

func (x *execution) trend(m model.Metric) error {
	pair := YearPair{Baseline: x.q.StartYear, Comparison: x.q.EndYear}
	x.res.Years = &pair
	t, err := Trend(x.view, x.geo, m, x.q.Category, x.scope, x.q.StartYear, x.q.EndYear)
	if err != nil {
		return err
	}
	x.res.Trend = &t
	return nil
}

func (x *execution) comparison(m model.Metric) error {
	year := x.q.Year
	x.res.Year = year
	if err := ValidateYears(x.view, m, x.q.Category, year); err != nil {
		return err
	}
	c, err := CompareEntities(x.view, x.geo, m, x.q.Category, x.scope, year)
	if err != nil {
		return err
	}
	x.res.Comparison = &c
	return nil
}

// aggregate returns entity values for the scope: area totals for an area
// scope, municipality values otherwise.
func (x *execution) aggregate(m model.Metric, year int) (map[string]int64, []string) {
	if x.scope.Type == LocationArea {
		return AggregateAreas(x.view, x.geo, m, year, x.scope.Areas), x.scope.AreaNames()
	}
	return AggregateMunicipalities(x.view, x.geo, m, x.q.Category, year, x.scope.Municipalities), x.scope.Municipalities
}

func (x *execution) diagnose(err error) *Diagnostic {
	d := &Diagnostic{Message: err.Error()}
	var (
		tableErr  *TableUnavailableError
		metricErr *MetricUnavailableError
		yearErr   *YearUnavailableError
		noDataErr *NoDataError
	)
	switch {
	case errors.As(err, &tableErr):
		d.AvailableTables = tableErr.Available
	case errors.As(err, &metricErr):
		d.AvailableMetrics = metricErr.AvailableMetrics
		d.AvailableCategories = metricErr.AvailableCategories
	case errors.As(err, &yearErr):
		d.AvailableYears = yearErr.Available
	case errors.As(err, &noDataErr):
		d.Participants = noDataErr.Participants
		if x.view != nil {
			d.AvailableYears = x.view.Years(x.q.Metric(), x.q.Category)
		}
	}
	return d
}
