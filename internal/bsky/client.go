package bsky

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/snapetech/skyclip/internal/httpclient"
	"github.com/snapetech/skyclip/internal/metrics"
)

// DefaultAppView is the public, unauthenticated Bluesky AppView.
const DefaultAppView = "https://public.api.bsky.app"

const maxResponseBytes = 4 << 20

// Client talks to an AppView's XRPC endpoints. Zero fields fall back to defaults.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	UserAgent string
	Retry     httpclient.RetryPolicy
	Metrics   *metrics.Metrics
	// Now supplies the fallback timestamp for posts without one.
	Now func() time.Time
}

// NewClient returns a client for baseURL ("" = DefaultAppView).
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultAppView
	}
	return strings.TrimSuffix(c.BaseURL, "/")
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// query performs GET /xrpc/<method>?params and decodes a JSON answer into out.
func (c *Client) query(ctx context.Context, method string, params url.Values, out any) (err error) {
	start := time.Now()
	var n int
	defer func() {
		c.Metrics.ObserveFetch(metrics.KindAPI, n, time.Since(start), err)
	}()

	endpoint := c.baseURL() + "/xrpc/" + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := c.HTTP
	if client == nil {
		client = httpclient.Default()
	}
	resp, err := httpclient.DoWithRetry(ctx, client, req, c.Retry)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}
	n = len(body)
	if resp.StatusCode != http.StatusOK {
		xe := &ErrXRPC{Method: method, StatusCode: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			xe.Code, xe.Message = payload.Error, payload.Message
		}
		return xe
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", method, err)
	}
	return nil
}
