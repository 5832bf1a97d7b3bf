package analytics

import (
	"sort"
)

// Ranked pairs an item with its standard competition rank.
type Ranked[T any] struct {
	Item T
	Rank int
}

// Ranking is the truncated head of a ranked pool.
type Ranking[T any] struct {
	Entries []Ranked[T]

	// ParticipantTotal is the size of the pool before truncation.
	ParticipantTotal int
}

// Len returns the number of entries kept after truncation.
func (r Ranking[T]) Len() int {
	return len(r.Entries)
}

// RankBy sorts items by descending value and assigns standard competition
// ranks (rank = 1 + number of strictly greater values). Ties keep their input
// order. The ranking is computed over the whole pool and then truncated to n;
// n <= 0 keeps every entry.
func RankBy[T any](items []T, value func(T) float64, n int) Ranking[T] {
	type scored struct {
		item T
		v    float64
	}
	pool := make([]scored, len(items))
	for i, it := range items {
		pool[i] = scored{item: it, v: value(it)}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].v > pool[j].v
	})

	keep := len(pool)
	if n > 0 && n < keep {
		keep = n
	}
	out := Ranking[T]{
		Entries:          make([]Ranked[T], 0, keep),
		ParticipantTotal: len(pool),
	}
	rank := 0
	for i := 0; i < keep; i++ {
		if i == 0 || pool[i].v != pool[i-1].v {
			rank = i + 1
		}
		out.Entries = append(out.Entries, Ranked[T]{Item: pool[i].item, Rank: rank})
	}
	return out
}

// RankOf returns a lookup of every item's rank in the full pool, keyed by key.
func RankOf[T any](items []T, value func(T) float64, key func(T) string) map[string]int {
	r := RankBy(items, value, 0)
	out := make(map[string]int, len(r.Entries))
	for _, e := range r.Entries {
		out[key(e.Item)] = e.Rank
	}
	return out
}

// EntityValue is an aggregated value for one entity.
type EntityValue struct {
	Entity string
	Value  int64
}

// RankedEntry is one row of a value ranking.
type RankedEntry struct {
	Entity           string  `json:"entity"`
	Value            float64 `json:"value"`
	Rank             int     `json:"rank"`
	ParticipantTotal int     `json:"participant_total"`
}

// Entities flattens values into canonical order: entities listed in order
// first, then any others by name.
func Entities(values map[string]int64, order []string) []EntityValue {
	out := make([]EntityValue, 0, len(values))
	listed := make(map[string]bool, len(order))
	for _, name := range order {
		listed[name] = true
		if v, ok := values[name]; ok {
			out = append(out, EntityValue{Entity: name, Value: v})
		}
	}
	var rest []string
	for name := range values {
		if !listed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, EntityValue{Entity: name, Value: values[name]})
	}
	return out
}

// RankValues ranks an entity → value mapping and returns the top n entries.
func RankValues(values map[string]int64, order []string, n int) []RankedEntry {
	r := RankBy(Entities(values, order), func(e EntityValue) float64 { return float64(e.Value) }, n)
	out := make([]RankedEntry, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = RankedEntry{
			Entity:           e.Item.Entity,
			Value:            float64(e.Item.Value),
			Rank:             e.Rank,
			ParticipantTotal: r.ParticipantTotal,
		}
	}
	return out
}
