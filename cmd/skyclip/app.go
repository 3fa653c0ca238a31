package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/snapetech/skyclip/internal/assemble"
	"github.com/snapetech/skyclip/internal/bsky"
	"github.com/snapetech/skyclip/internal/config"
	"github.com/snapetech/skyclip/internal/fetch"
	"github.com/snapetech/skyclip/internal/httpclient"
	"github.com/snapetech/skyclip/internal/manifest"
	"github.com/snapetech/skyclip/internal/materializer"
	"github.com/snapetech/skyclip/internal/metrics"
	"github.com/snapetech/skyclip/internal/naming"
	"github.com/snapetech/skyclip/internal/pipeline"
)

// components are the long-lived pieces shared by every subcommand.
type components struct {
	posts    *bsky.Client
	fetcher  *fetch.Fetcher
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
}

// newComponents wires clients, fetcher and pipeline from cfg. reg may be nil
// for commands that do not expose metrics.
func newComponents(cfg *config.Config, reg prometheus.Registerer) (*components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}
	retry := cfg.RetryPolicy()
	apiClient := httpclient.WithTimeout(cfg.HTTPTimeout)

	posts := bsky.NewClient(cfg.AppViewURL)
	posts.HTTP = apiClient
	posts.UserAgent = cfg.UserAgent
	posts.Retry = retry
	posts.Metrics = m

	f := fetch.New(fetch.Config{
		PlaylistClient:  apiClient,
		SegmentClient:   httpclient.WithTimeout(cfg.SegmentTimeout),
		Limiter:         httpclient.NewHostLimiter(cfg.SegmentRate, cfg.SegmentBurst),
		Retry:           retry,
		UserAgent:       cfg.UserAgent,
		MaxSegmentBytes: cfg.MaxSegmentBytes,
		Metrics:         m,
	})

	p := &pipeline.Pipeline{
		Posts:     posts,
		Manifests: &manifest.Resolver{Fetcher: f},
		Assembler: &assemble.Assembler{Fetcher: f},
		Hosts:     cfg.PostHosts,
		Naming:    naming.Options{Transliterate: cfg.Transliterate, Location: loc},
		Metrics:   m,
	}
	return &components{posts: posts, fetcher: f, pipeline: p, metrics: m}, nil
}

// newStore returns the GCS materializer when bucket is set, else a local one in dir.
func newStore(ctx context.Context, dir, bucket, prefix string) (materializer.Interface, func(), error) {
	if bucket != "" {
		g, err := materializer.NewGCS(ctx, bucket, prefix)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { g.Close() }, nil
	}
	return materializer.NewFile(dir), func() {}, nil
}

// setupLogging sends log output to a size-rotated file as well as stderr when
// cfg.LogFile is set. The returned func flushes and closes the file.
func setupLogging(cfg *config.Config) func() {
	if strings.TrimSpace(cfg.LogFile) == "" {
		return func() {}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, lj))
	return func() {
		log.SetOutput(os.Stderr)
		lj.Close()
	}
}
