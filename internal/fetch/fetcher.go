package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/snapetech/skyclip/internal/httpclient"
	"github.com/snapetech/skyclip/internal/metrics"
	"github.com/snapetech/skyclip/internal/safeurl"
)

const (
	// DefaultMaxSegmentBytes caps a single segment body.
	DefaultMaxSegmentBytes = 64 << 20
	// maxPlaylistBytes caps a playlist body; real playlists are a few KiB.
	maxPlaylistBytes = 8 << 20

	DefaultUserAgent = "skyclip/1.0"
)

// ErrUnsupportedScheme is returned for URLs that are not http or https.
var ErrUnsupportedScheme = errors.New("fetch: only http and https URLs are allowed")

// ErrStatus is returned when the upstream answers with a non-2xx status.
type ErrStatus struct {
	URL        string
	StatusCode int
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("get %s: unexpected status %d", safeurl.Redact(e.URL), e.StatusCode)
}

// ErrTooLarge is returned when a body exceeds the configured cap.
type ErrTooLarge struct {
	URL   string
	Limit int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("get %s: body exceeds %d bytes", safeurl.Redact(e.URL), e.Limit)
}

// Config drives a Fetcher. Zero values are replaced with safe defaults by New.
type Config struct {
	// PlaylistClient fetches playlists. Default: httpclient.Default().
	PlaylistClient *http.Client
	// SegmentClient fetches segment payloads; usually a longer timeout.
	// Default: PlaylistClient.
	SegmentClient *http.Client

	// Limiter paces requests per host. nil = unlimited.
	Limiter *httpclient.HostLimiter
	// Retry is applied to every request. Zero value = no retry.
	Retry httpclient.RetryPolicy

	UserAgent       string
	MaxSegmentBytes int64

	Metrics *metrics.Metrics
}

func (c *Config) applyDefaults() {
	if c.PlaylistClient == nil {
		c.PlaylistClient = httpclient.Default()
	}
	if c.SegmentClient == nil {
		c.SegmentClient = c.PlaylistClient
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxSegmentBytes <= 0 {
		c.MaxSegmentBytes = DefaultMaxSegmentBytes
	}
}

// Fetcher retrieves single resources by URL. It is the only component of a
// download that touches the network for playlists and segments.
type Fetcher struct {
	cfg Config
}

func New(cfg Config) *Fetcher {
	cfg.applyDefaults()
	return &Fetcher{cfg: cfg}
}

// FetchPlaylist returns the raw playlist body at url.
func (f *Fetcher) FetchPlaylist(ctx context.Context, url string) ([]byte, error) {
	return f.get(ctx, metrics.KindPlaylist, f.cfg.PlaylistClient, url, maxPlaylistBytes)
}

// FetchSegment returns one segment payload at url.
func (f *Fetcher) FetchSegment(ctx context.Context, url string) ([]byte, error) {
	return f.get(ctx, metrics.KindSegment, f.cfg.SegmentClient, url, f.cfg.MaxSegmentBytes)
}

func (f *Fetcher) get(ctx context.Context, kind string, client *http.Client, url string, limit int64) (body []byte, err error) {
	start := time.Now()
	defer func() {
		f.cfg.Metrics.ObserveFetch(kind, len(body), time.Since(start), err)
	}()

	if !safeurl.IsHTTPOrHTTPS(url) {
		return nil, fmt.Errorf("get %q: %w", url, ErrUnsupportedScheme)
	}
	if err := f.cfg.Limiter.Wait(ctx, url); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: build request: %w", safeurl.Redact(url), err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := httpclient.DoWithRetry(ctx, client, req, f.cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", safeurl.Redact(url), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &ErrStatus{URL: url, StatusCode: resp.StatusCode}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("get %s: read body: %w", safeurl.Redact(url), err)
	}
	if int64(len(body)) > limit {
		return nil, &ErrTooLarge{URL: url, Limit: limit}
	}
	return body, nil
}
