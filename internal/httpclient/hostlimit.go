package httpclient

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter paces requests per upstream host. Segments of one video usually
// come from a single CDN host, so pacing per host keeps a long download from
// tripping origin rate limits.
//
// Usage: wait before sending each request.
//
//	if err := limiter.Wait(ctx, segURL); err != nil { return err }
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewHostLimiter returns a limiter allowing perSecond requests per host with the
// given burst. perSecond <= 0 disables pacing (Wait returns immediately).
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until a request to rawURL's host may be sent or ctx is done.
// A nil limiter never blocks.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil || h.limit == rate.Inf {
		return ctx.Err()
	}
	return h.limiterFor(rawURL).Wait(ctx)
}

func (h *HostLimiter) limiterFor(rawURL string) *rate.Limiter {
	// Normalise: strip path/query, keep scheme+host.
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		key = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[key]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[key] = l
	}
	return l
}
