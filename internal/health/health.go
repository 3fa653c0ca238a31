package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProbeHandle is resolved by CheckAppView. It is the AppView operator's own
// account, so it exists for as long as the service does.
const ProbeHandle = "bsky.app"

// ErrNoAppView is returned when no AppView URL is configured.
var ErrNoAppView = errors.New("no AppView URL configured")

// CheckAppView resolves ProbeHandle through appViewURL and requires a DID back.
// A 200 with a body that is not a resolveHandle answer (captive portal, wrong
// base URL) is reported as an error.
func CheckAppView(ctx context.Context, client *http.Client, appViewURL string) error {
	if strings.TrimSpace(appViewURL) == "" {
		return ErrNoAppView
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	u := strings.TrimSuffix(appViewURL, "/") + "/xrpc/com.atproto.identity.resolveHandle?handle=" + url.QueryEscape(ProbeHandle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("appview unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("appview returned HTTP %d", resp.StatusCode)
	}
	var out struct {
		DID string `json:"did"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return fmt.Errorf("appview answer: %w", err)
	}
	if !strings.HasPrefix(out.DID, "did:") {
		return fmt.Errorf("appview resolved %s to %q, not a DID", ProbeHandle, out.DID)
	}
	return nil
}

// Endpoints are the routes CheckEndpoints expects a running `skyclip serve` to answer.
var Endpoints = []string{"/healthz", "/api/ping", "/metrics"}

// CheckEndpoints hits each of Endpoints on baseURL and returns the first
// failure. /healthz answers 503 when the AppView is down, so a failing
// upstream shows up here too.
func CheckEndpoints(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	base := strings.TrimSuffix(baseURL, "/")
	for _, path := range Endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
		}
	}
	return nil
}
