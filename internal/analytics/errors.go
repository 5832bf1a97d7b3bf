package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/lodging-cli/internal/model"
)

// Status classifies the outcome of a query.
type Status string

// Status values. Everything except StatusOK carries a Diagnostic.
const (
	StatusOK                Status = "ok"
	StatusScopeEmpty        Status = "scope_empty"
	StatusMetricUnavailable Status = "metric_unavailable"
	StatusYearUnavailable   Status = "year_unavailable"
	StatusTableUnavailable  Status = "table_unavailable"
	StatusNoData            Status = "no_data"
)

// ScopeEmptyError reports a location selection that resolved to no
// municipalities.
type ScopeEmptyError struct {
	LocationType LocationType
	Locations    []string
}

func (e *ScopeEmptyError) Error() string {
	return fmt.Sprintf("scope %s %v resolved to no municipalities", e.LocationType, e.Locations)
}

// MetricUnavailableError reports the first failed metric check on the
// selected table.
type MetricUnavailableError struct {
	Table               string
	Metric              model.Metric
	Category            string
	Check               string // "metric" or "category"
	AvailableMetrics    []model.Metric
	AvailableCategories []string
}

func (e *MetricUnavailableError) Error() string {
	if e.Check == "category" {
		return fmt.Sprintf("table %s has no %s data for category %q (available: %s)",
			e.Table, e.Metric, e.Category, strings.Join(e.AvailableCategories, ", "))
	}
	names := make([]string, len(e.AvailableMetrics))
	for i, m := range e.AvailableMetrics {
		names[i] = string(m)
	}
	return fmt.Sprintf("table %s has no %s data (available: %s)", e.Table, e.Metric, strings.Join(names, ", "))
}

// YearUnavailableError reports requested years absent from the active table.
type YearUnavailableError struct {
	Table     string
	Metric    model.Metric
	Category  string
	Missing   []int
	Available []int
}

func (e *YearUnavailableError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("table %s has no %s years; requested %v", e.Table, e.Metric, e.Missing)
	}
	lo, hi := e.AvailableRange()
	return fmt.Sprintf("table %s has no %s data for %v (available %d-%d)", e.Table, e.Metric, e.Missing, lo, hi)
}

// AvailableRange returns the first and last available year, or zeros.
func (e *YearUnavailableError) AvailableRange() (int, int) {
	if len(e.Available) == 0 {
		return 0, 0
	}
	return e.Available[0], e.Available[len(e.Available)-1]
}

// TableUnavailableError reports that no candidate table holds records.
type TableUnavailableError struct {
	Requested  string
	Candidates []string
	Available  []string
}

func (e *TableUnavailableError) Error() string {
	return fmt.Sprintf("no data in tables %v (requested %q, loaded %v)", e.Candidates, e.Requested, e.Available)
}

// NoDataError reports a computation whose participant pool is empty.
type NoDataError struct {
	Reason       string
	Scope        string
	Years        []int
	Participants int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data: %s (scope %s, years %v)", e.Reason, e.Scope, e.Years)
}

// InvalidParameterError reports a malformed query. It is the only query
// error surfaced to callers as a failure.
type InvalidParameterError struct {
	Param  string
	Value  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Param, e.Value, e.Reason)
}

func invalidParam(param string, value any, reason string) error {
	return &InvalidParameterError{Param: param, Value: fmt.Sprint(value), Reason: reason}
}

// StatusOf maps a recoverable analytics error to its Status. ok is false
// for nil and for errors that are not recoverable.
func StatusOf(err error) (Status, bool) {
	var (
		scopeErr  *ScopeEmptyError
		metricErr *MetricUnavailableError
		yearErr   *YearUnavailableError
		tableErr  *TableUnavailableError
		noDataErr *NoDataError
	)
	switch {
	case err == nil:
		return "", false
	case errors.As(err, &scopeErr):
		return StatusScopeEmpty, true
	case errors.As(err, &metricErr):
		return StatusMetricUnavailable, true
	case errors.As(err, &yearErr):
		return StatusYearUnavailable, true
	case errors.As(err, &tableErr):
		return StatusTableUnavailable, true
	case errors.As(err, &noDataErr):
		return StatusNoData, true
	default:
		return "", false
	}
}
