package dataset

import (
	"sort"

	"github.com/sells-group/lodging-cli/internal/model"
)

type sliceKey struct {
	metric   model.Metric
	category string
	year     int
}

// Filter selects the cells of one (metric, category, year) slice.
type Filter struct {
	Metric   model.Metric
	Category string
	Year     int

	// Cities restricts the result to these names. Nil means every city.
	Cities []string

	// Exclude drops these names even when listed in Cities.
	Exclude []string
}

// View is a read-only slice of the snapshot for one table (or all tables).
type View struct {
	table  string
	cells  map[sliceKey]map[string]int64
	count  int
	cities map[string]struct{}
}

func newView(table string) *View {
	return &View{
		table:  table,
		cells:  make(map[sliceKey]map[string]int64),
		cities: make(map[string]struct{}),
	}
}

// add sums v into the cell so the unfiltered view accumulates identical keys
// coming from different tables.
func (v *View) add(k model.RecordKey, value int64) {
	sk := sliceKey{metric: k.Metric, category: k.Category, year: k.Year}
	cell, ok := v.cells[sk]
	if !ok {
		cell = make(map[string]int64)
		v.cells[sk] = cell
	}
	cell[k.City] += value
	v.cities[k.City] = struct{}{}
	v.count++
}

// Table returns the table tag of the view.
func (v *View) Table() string {
	return v.table
}

// Empty reports whether the view holds no records.
func (v *View) Empty() bool {
	return v.count == 0
}

// Len returns the number of records merged into the view.
func (v *View) Len() int {
	return v.count
}

// Metrics returns the metrics with at least one record, in display order.
func (v *View) Metrics() []model.Metric {
	seen := make(map[model.Metric]bool)
	for k := range v.cells {
		seen[k.metric] = true
	}
	var out []model.Metric
	for _, m := range model.AllMetrics {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out
}

// HasMetric reports whether any record exists for m.
func (v *View) HasMetric(m model.Metric) bool {
	for k := range v.cells {
		if k.metric == m {
			return true
		}
	}
	return false
}

// Categories returns the categories recorded for m, sorted with "total"
// first.
func (v *View) Categories(m model.Metric) []string {
	seen := make(map[string]bool)
	for k := range v.cells {
		if k.metric == m {
			seen[k.category] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i] == model.CategoryTotal) != (out[j] == model.CategoryTotal) {
			return out[i] == model.CategoryTotal
		}
		return out[i] < out[j]
	})
	return out
}

// HasCategory reports whether any record exists for (m, category).
func (v *View) HasCategory(m model.Metric, category string) bool {
	for k := range v.cells {
		if k.metric == m && k.category == category {
			return true
		}
	}
	return false
}

// Years returns the ascending years with data for (m, category).
func (v *View) Years(m model.Metric, category string) []int {
	var out []int
	for k := range v.cells {
		if k.metric == m && k.category == category {
			out = append(out, k.year)
		}
	}
	sort.Ints(out)
	return out
}

// HasYear reports whether (m, category, year) has any record.
func (v *View) HasYear(m model.Metric, category string, year int) bool {
	_, ok := v.cells[sliceKey{metric: m, category: category, year: year}]
	return ok
}

// Cities returns every city label present in the view, sorted.
func (v *View) Cities() []string {
	out := make([]string, 0, len(v.cities))
	for c := range v.cities {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Values returns a fresh city → value map for the filter. Cities without a
// record are absent, never zero.
func (v *View) Values(f Filter) map[string]int64 {
	cell := v.cells[sliceKey{metric: f.Metric, category: f.Category, year: f.Year}]
	out := make(map[string]int64)
	if len(cell) == 0 {
		return out
	}

	excluded := make(map[string]bool, len(f.Exclude))
	for _, e := range f.Exclude {
		excluded[e] = true
	}

	if f.Cities == nil {
		for city, val := range cell {
			if !excluded[city] {
				out[city] = val
			}
		}
		return out
	}
	for _, city := range f.Cities {
		if excluded[city] {
			continue
		}
		if val, ok := cell[city]; ok {
			out[city] = val
		}
	}
	return out
}

func (v *View) records() []model.Record {
	keys := make([]sliceKey, 0, len(v.cells))
	for k := range v.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.metric != b.metric {
			return a.metric < b.metric
		}
		if a.category != b.category {
			return a.category < b.category
		}
		return a.year < b.year
	})

	var out []model.Record
	for _, k := range keys {
		cell := v.cells[k]
		cities := make([]string, 0, len(cell))
		for c := range cell {
			cities = append(cities, c)
		}
		sort.Strings(cities)
		for _, c := range cities {
			out = append(out, model.Record{
				Year: k.year, City: c, Metric: k.metric, Category: k.category,
				Table: v.table, Value: cell[c],
			})
		}
	}
	return out
}
