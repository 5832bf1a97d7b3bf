package analytics

import (
	"strings"

	"github.com/sells-group/lodging-cli/internal/model"
)

// QuestionType selects the analysis a query runs.
type QuestionType string

// QuestionType values.
const (
	QuestionBasicInfo      QuestionType = "basic-info"
	QuestionRanking        QuestionType = "ranking"
	QuestionDeltaCount     QuestionType = "delta-count"
	QuestionDeltaRate      QuestionType = "delta-rate"
	QuestionChangeAnalysis QuestionType = "change-analysis"
	QuestionTrend          QuestionType = "trend"
	QuestionComparison     QuestionType = "comparison"
)

// QuestionTypes lists every question in display order.
var QuestionTypes = []QuestionType{
	QuestionBasicInfo,
	QuestionRanking,
	QuestionDeltaCount,
	QuestionDeltaRate,
	QuestionChangeAnalysis,
	QuestionTrend,
	QuestionComparison,
}

var questionAliases = map[string]QuestionType{
	"basic":    QuestionBasicInfo,
	"info":     QuestionBasicInfo,
	"基本情報取得":   QuestionBasicInfo,
	"rank":     QuestionRanking,
	"ランキング表示":  QuestionRanking,
	"delta":    QuestionDeltaCount,
	"増減数ランキング": QuestionDeltaCount,
	"rate":     QuestionDeltaRate,
	"増減率ランキング": QuestionDeltaRate,
	"change":   QuestionChangeAnalysis,
	"増減・伸び率分析": QuestionChangeAnalysis,
	"期間推移分析":   QuestionTrend,
	"compare":  QuestionComparison,
	"比較分析":     QuestionComparison,
}

// ParseQuestionType accepts the canonical names and their aliases.
func ParseQuestionType(s string) (QuestionType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, q := range QuestionTypes {
		if string(q) == key {
			return q, nil
		}
	}
	if q, ok := questionAliases[key]; ok {
		return q, nil
	}
	return "", invalidParam("question_type", s, "unknown question type")
}

// DefaultRankingCount is used when a query leaves the count unset.
const DefaultRankingCount = 5

// Query is a declarative analytics request. Enum fields accept aliases and
// are canonicalized by Normalize.
type Query struct {
	Question     QuestionType   `json:"question_type" yaml:"question_type"`
	Metrics      []model.Metric `json:"metrics" yaml:"metrics"`
	Category     string         `json:"category,omitempty" yaml:"category"`
	Table        string         `json:"table,omitempty" yaml:"table"`
	LocationType LocationType   `json:"location_type,omitempty" yaml:"location_type"`
	Locations    []string       `json:"locations,omitempty" yaml:"locations"`
	Year         int            `json:"year,omitempty" yaml:"year"`
	StartYear    int            `json:"start_year,omitempty" yaml:"start_year"`
	EndYear      int            `json:"end_year,omitempty" yaml:"end_year"`
	Count        int            `json:"ranking_count,omitempty" yaml:"ranking_count"`
	ResultType   ResultType     `json:"result_type,omitempty" yaml:"result_type"`
	Analysis     AnalysisType   `json:"analysis_type,omitempty" yaml:"analysis_type"`
}

// Normalize canonicalizes aliases, applies defaults and rejects malformed
// parameters with an *InvalidParameterError.
func (q Query) Normalize() (Query, error) {
	var err error
	if q.Question, err = ParseQuestionType(string(q.Question)); err != nil {
		return q, err
	}

	if len(q.Metrics) == 0 {
		return q, invalidParam("metrics", "", "at least one metric is required")
	}
	seen := make(map[model.Metric]bool, len(q.Metrics))
	metrics := make([]model.Metric, 0, len(q.Metrics))
	for _, raw := range q.Metrics {
		m, perr := model.ParseMetric(string(raw))
		if perr != nil {
			return q, invalidParam("metric", raw, "valid: facilities, rooms, capacity")
		}
		if !seen[m] {
			seen[m] = true
			metrics = append(metrics, m)
		}
	}
	if q.Question != QuestionBasicInfo {
		metrics = metrics[:1]
	}
	q.Metrics = metrics

	q.Category = strings.TrimSpace(q.Category)
	if q.Category == "" {
		q.Category = model.CategoryTotal
	}
	q.Table = strings.TrimSpace(q.Table)
	if q.Table == "" {
		q.Table = TableAuto
	}

	lt, lerr := ParseLocationType(string(q.LocationType))
	if lerr != nil {
		return q, invalidParam("location_type", q.LocationType, "valid: overall, municipality, area")
	}
	q.LocationType = lt

	switch {
	case q.Count == 0:
		q.Count = DefaultRankingCount
	case q.Count < 0:
		return q, invalidParam("ranking_count", q.Count, "must be positive")
	}

	if q.ResultType, err = ParseResultType(string(q.ResultType)); err != nil {
		return q, err
	}
	switch q.Question {
	case QuestionDeltaCount:
		q.ResultType = ResultCount
	case QuestionDeltaRate:
		q.ResultType = ResultRate
	}
	if q.Analysis, err = ParseAnalysisType(string(q.Analysis)); err != nil {
		return q, err
	}

	switch q.Question {
	case QuestionBasicInfo, QuestionRanking, QuestionComparison:
		if q.Year <= 0 {
			return q, invalidParam("year", q.Year, "a year is required")
		}
	case QuestionDeltaCount, QuestionDeltaRate, QuestionChangeAnalysis:
		if _, err := q.YearPair(); err != nil {
			return q, err
		}
	case QuestionTrend:
		if q.StartYear <= 0 || q.EndYear <= 0 {
			return q, invalidParam("year_range", [2]int{q.StartYear, q.EndYear}, "start and end are required")
		}
		if q.StartYear > q.EndYear {
			return q, invalidParam("year_range", [2]int{q.StartYear, q.EndYear}, "start must not follow end")
		}
	}
	return q, nil
}

// Metric returns the primary metric.
func (q Query) Metric() model.Metric {
	if len(q.Metrics) == 0 {
		return ""
	}
	return q.Metrics[0]
}

// YearPair resolves the baseline and comparison years of a change query.
func (q Query) YearPair() (YearPair, error) {
	return ResolveYearPair(q.Analysis, q.Year, q.StartYear, q.EndYear)
}
