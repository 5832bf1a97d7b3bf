// Package ingest turns the published statistics files into normalized
// records: the long-format CSVs produced by the conversion pipeline and the
// prefecture-wide transition workbook.
package ingest

import (
	"context"
	"io"
	"path"
	"sort"
)

// FileKind tells the loader which parser a file needs.
type FileKind int

// FileKind values.
const (
	KindLongCSV FileKind = iota
	KindTransition
)

func (k FileKind) String() string {
	if k == KindTransition {
		return "transition"
	}
	return "long_csv"
}

// File is one data file within a source, named relative to the source root
// with forward slashes.
type File struct {
	Name string
	Kind FileKind
}

// Source lists and opens data files.
type Source interface {
	// Files returns the data files in load order. Later files win on
	// duplicate record keys.
	Files(ctx context.Context) ([]File, error)

	// Open returns the content of a file returned by Files.
	Open(ctx context.Context, f File) (io.ReadCloser, error)

	String() string
}

// Layout names the files of a data tree relative to its root.
type Layout struct {
	ByYearGlob string
	LongCSV    string
	Transition string
}

// plan orders the present files: transition workbook, integrated long CSV,
// then the by-year files sorted by name so newer years override the
// integrated file.
func (l Layout) plan(names []string) []File {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	var files []File
	if l.Transition != "" && present[l.Transition] {
		files = append(files, File{Name: l.Transition, Kind: KindTransition})
	}
	if l.LongCSV != "" && present[l.LongCSV] {
		files = append(files, File{Name: l.LongCSV, Kind: KindLongCSV})
	}

	var byYear []string
	if l.ByYearGlob != "" {
		for _, n := range names {
			if n == l.LongCSV {
				continue
			}
			if ok, _ := path.Match(l.ByYearGlob, n); ok {
				byYear = append(byYear, n)
			}
		}
	}
	sort.Strings(byYear)
	for _, n := range byYear {
		files = append(files, File{Name: n, Kind: KindLongCSV})
	}
	return files
}
