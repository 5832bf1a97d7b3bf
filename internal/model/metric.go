package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Metric identifies one of the facility measures published by the survey.
type Metric string

// Metric values.
const (
	MetricFacilities Metric = "facilities"
	MetricRooms      Metric = "rooms"
	MetricCapacity   Metric = "capacity"
)

// AllMetrics lists the supported metrics in display order.
var AllMetrics = []Metric{MetricFacilities, MetricRooms, MetricCapacity}

// metricAliases maps header spellings found in the source workbooks and the
// query surfaces to canonical metrics.
var metricAliases = map[string]Metric{
	"facilities": MetricFacilities,
	"facility":   MetricFacilities,
	"軒数":         MetricFacilities,
	"施設数":        MetricFacilities,
	"rooms":      MetricRooms,
	"room":       MetricRooms,
	"客室数":        MetricRooms,
	"部屋数":        MetricRooms,
	"capacity":   MetricCapacity,
	"capac":      MetricCapacity,
	"capacit":    MetricCapacity,
	"収容人数":       MetricCapacity,
	"定員":         MetricCapacity,
}

// ParseMetric resolves a metric name or alias.
func ParseMetric(s string) (Metric, error) {
	m, ok := metricAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", eris.Errorf("model: unknown metric %q (valid: facilities, rooms, capacity)", s)
	}
	return m, nil
}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricFacilities, MetricRooms, MetricCapacity:
		return true
	default:
		return false
	}
}

// Unit returns the counting unit used when presenting values of m.
func (m Metric) Unit() string {
	switch m {
	case MetricFacilities:
		return "軒"
	case MetricRooms:
		return "室"
	case MetricCapacity:
		return "人"
	default:
		return ""
	}
}

// Label returns the Japanese survey label for m.
func (m Metric) Label() string {
	switch m {
	case MetricFacilities:
		return "軒数"
	case MetricRooms:
		return "客室数"
	case MetricCapacity:
		return "収容人数"
	default:
		return string(m)
	}
}
