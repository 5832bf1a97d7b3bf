package model

import (
	"fmt"
	"strings"
)

// CategoryTotal is the category key of the summary row across all categories
// of a table.
const CategoryTotal = "total"

// Table tags attached to records by the ingestion layer.
const (
	TableAccommodationType = "accommodation_type"
	TableScaleClass        = "scale_class"
	TableHotelBreakdown    = "hotel_breakdown"
	TablePrefTransition    = "pref_transition"
)

// Record is one tidy fact: the value of a metric for a city, category and
// source table in a survey year.
type Record struct {
	Year     int    `json:"year"`
	City     string `json:"city"`
	Metric   Metric `json:"metric"`
	Category string `json:"cat1"`
	Table    string `json:"table"`
	Value    int64  `json:"value"`
}

// RecordKey is the uniqueness key of a record.
type RecordKey struct {
	Year     int
	City     string
	Category string
	Metric   Metric
	Table    string
}

// Key returns the uniqueness key of r.
func (r Record) Key() RecordKey {
	return RecordKey{Year: r.Year, City: r.City, Category: r.Category, Metric: r.Metric, Table: r.Table}
}

// RecordError reports a record that violates the schema.
type RecordError struct {
	Record Record
	Field  string
	Reason string
	Source string
}

func (e *RecordError) Error() string {
	src := ""
	if e.Source != "" {
		src = e.Source + ": "
	}
	return fmt.Sprintf("%sinvalid record %s: %s (year=%d city=%q metric=%q cat1=%q table=%q value=%d)",
		src, e.Field, e.Reason, e.Record.Year, e.Record.City, e.Record.Metric,
		e.Record.Category, e.Record.Table, e.Record.Value)
}

// Validate checks r against the record schema.
func (r Record) Validate() error {
	switch {
	case r.Year <= 0:
		return &RecordError{Record: r, Field: "year", Reason: "must be positive"}
	case strings.TrimSpace(r.City) == "":
		return &RecordError{Record: r, Field: "city", Reason: "is empty"}
	case !r.Metric.Valid():
		return &RecordError{Record: r, Field: "metric", Reason: "is not facilities, rooms or capacity"}
	case strings.TrimSpace(r.Category) == "":
		return &RecordError{Record: r, Field: "cat1", Reason: "is empty"}
	case strings.TrimSpace(r.Table) == "":
		return &RecordError{Record: r, Field: "table", Reason: "is empty"}
	case r.Value < 0:
		return &RecordError{Record: r, Field: "value", Reason: "is negative"}
	}
	return nil
}

// CategoryLabels maps category keys of the categorical tables to their
// Japanese survey labels.
var CategoryLabels = map[string]string{
	"hotel_ryokan":         "ホテル・旅館",
	"minshuku":             "民宿",
	"pension_villa":        "ペンション・貸別荘",
	"dormitory_guesthouse": "ドミトリー・ゲストハウス",
	"weekly_mansion":       "ウィークリーマンション",
	"group_facilities":     "団体経営施設",
	"youth_hostel":         "ユースホステル",
	"large":                "大規模（300人以上）",
	"medium":               "中規模（100人以上300人未満）",
	"small":                "小規模（100人未満）",
	CategoryTotal:          "合計",
}

// CategoryLabel returns the display label for a category key, falling back to
// the key itself.
func CategoryLabel(key string) string {
	if l, ok := CategoryLabels[key]; ok {
		return l
	}
	return key
}
