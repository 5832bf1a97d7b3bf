package analytics

import (
	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

// ValidateMetric confirms the view holds the metric and then the
// (metric, category) pair. An empty category means "total".
func ValidateMetric(v *dataset.View, m model.Metric, category string) error {
	if category == "" {
		category = model.CategoryTotal
	}
	if !v.HasMetric(m) {
		return &MetricUnavailableError{
			Table:            v.Table(),
			Metric:           m,
			Category:         category,
			Check:            "metric",
			AvailableMetrics: v.Metrics(),
		}
	}
	if !v.HasCategory(m, category) {
		return &MetricUnavailableError{
			Table:               v.Table(),
			Metric:              m,
			Category:            category,
			Check:               "category",
			AvailableMetrics:    v.Metrics(),
			AvailableCategories: v.Categories(m),
		}
	}
	return nil
}

// ValidateYears confirms every year has at least one record for
// (metric, category).
func ValidateYears(v *dataset.View, m model.Metric, category string, years ...int) error {
	var missing []int
	for _, y := range years {
		if !v.HasYear(m, category, y) {
			missing = append(missing, y)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &YearUnavailableError{
		Table:     v.Table(),
		Metric:    m,
		Category:  category,
		Missing:   missing,
		Available: v.Years(m, category),
	}
}
