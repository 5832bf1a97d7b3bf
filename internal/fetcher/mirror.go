package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ManifestName is the file in a mirror directory recording each download's ETag.
const ManifestName = ".fetch-manifest.json"

// MirrorResult reports one linked workbook.
type MirrorResult struct {
	URL     string `json:"url"`
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
	Bytes   int64  `json:"bytes"`
}

// Mirror keeps a local directory in step with the workbooks linked from a
// statistics page.
type Mirror struct {
	Fetcher     Fetcher
	Dir         string
	Concurrency int
}

// Sync downloads every Excel workbook linked from pageURL whose ETag moved
// since the last run.
func (m *Mirror) Sync(ctx context.Context, pageURL string) ([]MirrorResult, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "mirror: parse page url")
	}

	page, err := m.Fetcher.Download(ctx, pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "mirror: fetch page")
	}
	links, err := ExcelLinks(base, page)
	_ = page.Close()
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, eris.Errorf("mirror: no workbooks linked from %s", pageURL)
	}

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "mirror: create directory")
	}
	manifest, err := m.readManifest()
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make([]MirrorResult, len(links))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.Concurrency))
	for i, link := range links {
		g.Go(func() error {
			mu.Lock()
			etag := manifest[link]
			mu.Unlock()

			res, newETag, err := m.syncOne(gctx, link, etag)
			if err != nil {
				return err
			}
			results[i] = res

			mu.Lock()
			if newETag != "" {
				manifest[link] = newETag
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := m.writeManifest(manifest); err != nil {
		return nil, err
	}
	return results, nil
}

func (m *Mirror) syncOne(ctx context.Context, link, etag string) (MirrorResult, string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return MirrorResult{}, "", eris.Wrapf(err, "mirror: parse %s", link)
	}
	dest := filepath.Join(m.Dir, path.Base(u.Path))
	res := MirrorResult{URL: link, Path: dest}

	// A stale ETag is worthless once the local copy is gone.
	if _, err := os.Stat(dest); errors.Is(err, fs.ErrNotExist) {
		etag = ""
	}

	body, newETag, changed, err := m.Fetcher.DownloadIfChanged(ctx, link, etag)
	if err != nil {
		return res, "", eris.Wrapf(err, "mirror: download %s", link)
	}
	if !changed {
		zap.L().Debug("mirror: unchanged", zap.String("url", link))
		return res, newETag, nil
	}
	defer body.Close() //nolint:errcheck

	n, err := writeAtomic(dest, body)
	if err != nil {
		return res, "", eris.Wrapf(err, "mirror: save %s", link)
	}
	res.Changed = true
	res.Bytes = n
	zap.L().Info("mirror: downloaded",
		zap.String("url", link),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return res, newETag, nil
}

func (m *Mirror) readManifest() (map[string]string, error) {
	manifest := make(map[string]string)
	data, err := os.ReadFile(filepath.Join(m.Dir, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return manifest, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "mirror: read manifest")
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		zap.L().Warn("mirror: ignoring corrupt manifest", zap.Error(err))
		return make(map[string]string), nil
	}
	return manifest, nil
}

func (m *Mirror) writeManifest(manifest map[string]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return eris.Wrap(err, "mirror: encode manifest")
	}
	if err := os.WriteFile(filepath.Join(m.Dir, ManifestName), data, 0o644); err != nil {
		return eris.Wrap(err, "mirror: write manifest")
	}
	return nil
}

// writeAtomic writes beside dest and renames, so readers never see a
// partial workbook.
func writeAtomic(dest string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, eris.Wrap(err, "create directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return n, eris.Wrap(err, "write file")
	}
	if err := tmp.Close(); err != nil {
		return n, eris.Wrap(err, "close file")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return n, eris.Wrap(err, "rename file")
	}
	return n, nil
}
