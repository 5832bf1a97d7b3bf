package ingest

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// DirSource reads the data tree from the local filesystem.
type DirSource struct {
	Root   string
	Layout Layout
}

// Files implements Source.
func (d *DirSource) Files(_ context.Context) ([]File, error) {
	var names []string
	for _, n := range []string{d.Layout.Transition, d.Layout.LongCSV} {
		if n == "" {
			continue
		}
		_, err := os.Stat(filepath.Join(d.Root, filepath.FromSlash(n)))
		switch {
		case err == nil:
			names = append(names, n)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, eris.Wrapf(err, "ingest: stat %s", n)
		}
	}

	if d.Layout.ByYearGlob != "" {
		matches, err := filepath.Glob(filepath.Join(d.Root, filepath.FromSlash(d.Layout.ByYearGlob)))
		if err != nil {
			return nil, eris.Wrap(err, "ingest: glob by-year files")
		}
		for _, m := range matches {
			rel, err := filepath.Rel(d.Root, m)
			if err != nil {
				return nil, eris.Wrap(err, "ingest: relative path")
			}
			names = append(names, filepath.ToSlash(rel))
		}
	}
	return d.Layout.plan(names), nil
}

// Open implements Source.
func (d *DirSource) Open(_ context.Context, f File) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(f.Name)))
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", f.Name)
	}
	return file, nil
}

func (d *DirSource) String() string {
	return "dir:" + d.Root
}
