// Package fetcher downloads the prefectural accommodation statistics and
// reads the CSV and Excel files they are published as.
package fetcher

import (
	"context"
	"io"
)

// Fetcher is what Mirror needs from an HTTP client.
type Fetcher interface {
	// Download returns the body of a 200 response.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadIfChanged sends If-None-Match when etag is set. On 304 it
	// returns a nil body, the old etag and changed=false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (body io.ReadCloser, newETag string, changed bool, err error)
}

var _ Fetcher = (*HTTPFetcher)(nil)
