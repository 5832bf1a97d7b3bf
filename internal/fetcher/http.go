package fetcher

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lodging-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher. Zero values take defaults.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	RatePerSec  float64
	BackoffBase time.Duration
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.UserAgent == "" {
		o.UserAgent = "lodging-cli/1.0"
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = 2
	}
	if o.BackoffBase == 0 {
		o.BackoffBase = time.Second
	}
	return o
}

// Throttle paces requests to the statistics site. A 429 halves the rate,
// never below a quarter of the configured one; each success raises it by a
// fifth, never above double.
type Throttle struct {
	mu      sync.Mutex
	lim     *rate.Limiter
	floor   rate.Limit
	ceiling rate.Limit
	current rate.Limit
}

// NewThrottle starts at perSec with the given burst.
func NewThrottle(perSec rate.Limit, burst int) *Throttle {
	return &Throttle{
		lim:     rate.NewLimiter(perSec, burst),
		floor:   perSec / 4,
		ceiling: perSec * 2,
		current: perSec,
	}
}

// Wait blocks until a request may be sent.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.lim.Wait(ctx)
}

// Rate is the current limit.
func (t *Throttle) Rate() rate.Limit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Throttle) set(r rate.Limit) {
	t.current = min(max(r, t.floor), t.ceiling)
	t.lim.SetLimit(t.current)
}

// Recover raises the rate after a successful response.
func (t *Throttle) Recover() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(t.current * 1.2)
}

// SlowDown halves the rate after a 429.
func (t *Throttle) SlowDown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(t.current / 2)
	zap.L().Warn("fetcher: throttled by server", zap.Float64("rate_per_sec", float64(t.current)))
}

// HTTPFetcher is the Fetcher used against the prefecture site. All requests
// share one Throttle.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	throttle *Throttle
}

// NewHTTPFetcher builds a fetcher from opts.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	opts = opts.withDefaults()
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				MaxConnsPerHost:     8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		throttle: NewThrottle(rate.Limit(opts.RatePerSec), max(1, int(math.Ceil(opts.RatePerSec)))),
	}
}

// Throttle exposes the shared request pacing.
func (f *HTTPFetcher) Throttle() *Throttle {
	return f.throttle
}

// statusError is a 429 or 5xx response.
type statusError struct {
	URL  string
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Code, e.URL)
}

// get issues a GET, conditional on etag when set, and returns a 200 or 304
// response. Transport failures, 429 and 5xx are retried.
func (f *HTTPFetcher) get(ctx context.Context, rawURL, etag string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: build request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	policy := resilience.Policy{
		Attempts:   f.opts.MaxRetries,
		Backoff:    f.opts.BackoffBase,
		MaxBackoff: 30 * f.opts.BackoffBase,
		Jitter:     0.25,
	}
	resp, err := resilience.Retry(ctx, policy, "fetch "+rawURL, func(ctx context.Context) (*http.Response, error) {
		if err := f.throttle.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: throttle")
		}
		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, resilience.Transient(err)
		}
		code := resp.StatusCode
		if code == http.StatusTooManyRequests || code >= 500 {
			_ = resp.Body.Close()
			if code == http.StatusTooManyRequests {
				f.throttle.SlowDown()
			}
			return nil, resilience.Transient(&statusError{URL: rawURL, Code: code})
		}
		f.throttle.Recover()
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: gave up after %d attempts", f.opts.MaxRetries)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotModified:
		if etag != "" {
			return resp, nil
		}
	}
	_ = resp.Body.Close()
	return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
}

// Download returns the body of rawURL.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadIfChanged returns the body of rawURL unless the server answers
// 304 for etag.
func (f *HTTPFetcher) DownloadIfChanged(ctx context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error) {
	resp, err := f.get(ctx, rawURL, etag)
	if err != nil {
		return nil, "", false, err
	}
	if resp.StatusCode == http.StatusNotModified {
		_ = resp.Body.Close()
		return nil, etag, false, nil
	}
	return resp.Body, resp.Header.Get("ETag"), true, nil
}
