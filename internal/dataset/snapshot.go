// Package dataset holds the immutable, indexed in-memory record snapshot the
// analytics engine queries.
package dataset

import (
	"sort"

	"github.com/sells-group/lodging-cli/internal/model"
)

// AllTables is the pseudo table id of the unfiltered view.
const AllTables = "*"

// Builder accumulates records with last-write-wins semantics on the record
// uniqueness key.
type Builder struct {
	records map[model.RecordKey]int64
	order   []model.RecordKey
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{records: make(map[model.RecordKey]int64)}
}

// Add validates and merges records. A later record with the same key replaces
// the earlier value. The first invalid record aborts the call.
func (b *Builder) Add(records ...model.Record) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		k := r.Key()
		if _, ok := b.records[k]; !ok {
			b.order = append(b.order, k)
		}
		b.records[k] = r.Value
	}
	return nil
}

// Len returns the number of distinct records merged so far.
func (b *Builder) Len() int {
	return len(b.records)
}

// Build freezes the merged records into a Snapshot. The Builder may keep
// being used afterwards; the Snapshot does not share state with it.
func (b *Builder) Build() *Snapshot {
	s := &Snapshot{
		tables: make(map[string]*View),
		all:    newView(AllTables),
	}
	for _, k := range b.order {
		v := b.records[k]
		tv, ok := s.tables[k.Table]
		if !ok {
			tv = newView(k.Table)
			s.tables[k.Table] = tv
		}
		tv.add(k, v)
		s.all.add(k, v)
		s.size++
	}
	return s
}

// Snapshot is a read-only, indexed record set shared by concurrent queries.
type Snapshot struct {
	tables map[string]*View
	all    *View
	size   int
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return s.size
}

// Tables returns the table tags present, sorted.
func (s *Snapshot) Tables() []string {
	out := make([]string, 0, len(s.tables))
	for t := range s.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Table returns the view restricted to one table tag. AllTables returns the
// unfiltered view. Unknown tags return an empty view.
func (s *Snapshot) Table(table string) *View {
	if table == AllTables {
		return s.all
	}
	if v, ok := s.tables[table]; ok {
		return v
	}
	return newView(table)
}

// All returns the unfiltered view across every table.
func (s *Snapshot) All() *View {
	return s.all
}

// Records returns every record of the snapshot in table, metric, category,
// year, city order.
func (s *Snapshot) Records() []model.Record {
	out := make([]model.Record, 0, s.size)
	for _, t := range s.Tables() {
		out = append(out, s.tables[t].records()...)
	}
	return out
}
