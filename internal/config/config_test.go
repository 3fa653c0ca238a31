package config

import (
	"os"
	"testing"
	"time"

	"github.com/snapetech/skyclip/internal/assemble"
	"github.com/snapetech/skyclip/internal/httpclient"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.AppViewURL != "https://public.api.bsky.app" {
		t.Errorf("AppViewURL = %q", c.AppViewURL)
	}
	if len(c.PostHosts) != 1 || c.PostHosts[0] != "bsky.app" {
		t.Errorf("PostHosts = %v", c.PostHosts)
	}
	if c.Format != "mp4" || c.OutputDir != "." || c.Addr != ":8080" {
		t.Errorf("Format=%q OutputDir=%q Addr=%q", c.Format, c.OutputDir, c.Addr)
	}
	if c.HTTPTimeout != 30*time.Second || c.SegmentTimeout != 60*time.Second {
		t.Errorf("timeouts = %v, %v", c.HTTPTimeout, c.SegmentTimeout)
	}
	if c.SegmentRate != 0 || c.SegmentBurst != 1 || c.MaxSegmentBytes != 64<<20 {
		t.Errorf("rate=%v burst=%d max=%d", c.SegmentRate, c.SegmentBurst, c.MaxSegmentBytes)
	}
	if c.Retry || c.Transliterate {
		t.Error("Retry and Transliterate should default to off")
	}
	if c.JobTTL != 10*time.Minute || c.UserAgent != "skyclip/1.0" {
		t.Errorf("JobTTL=%v UserAgent=%q", c.JobTTL, c.UserAgent)
	}
	if c.LogFile != "" || c.LogMaxSizeMB != 50 || c.LogMaxBackups != 3 || c.LogMaxAgeDays != 28 {
		t.Errorf("log settings = %q %d %d %d", c.LogFile, c.LogMaxSizeMB, c.LogMaxBackups, c.LogMaxAgeDays)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_env(t *testing.T) {
	os.Clearenv()
	os.Setenv("SKYCLIP_POST_HOSTS", "bsky.app, staging.bsky.app ,")
	os.Setenv("SKYCLIP_FORMAT", "ts")
	os.Setenv("SKYCLIP_SEGMENT_RATE", "2.5")
	os.Setenv("SKYCLIP_SEGMENT_BURST", "4")
	os.Setenv("SKYCLIP_MAX_SEGMENT_BYTES", "1048576")
	os.Setenv("SKYCLIP_RETRY", "true")
	os.Setenv("SKYCLIP_SEGMENT_TIMEOUT", "2m")
	os.Setenv("SKYCLIP_GCS_BUCKET", "clips")
	c := Load()
	if len(c.PostHosts) != 2 || c.PostHosts[1] != "staging.bsky.app" {
		t.Errorf("PostHosts = %v", c.PostHosts)
	}
	f, err := c.OutputFormat()
	if err != nil || f != assemble.FormatTS {
		t.Errorf("OutputFormat() = %v, %v", f, err)
	}
	if c.SegmentRate != 2.5 || c.SegmentBurst != 4 || c.MaxSegmentBytes != 1<<20 {
		t.Errorf("rate=%v burst=%d max=%d", c.SegmentRate, c.SegmentBurst, c.MaxSegmentBytes)
	}
	if c.SegmentTimeout != 2*time.Minute {
		t.Errorf("SegmentTimeout = %v", c.SegmentTimeout)
	}
	if c.RetryPolicy() != httpclient.DefaultRetryPolicy {
		t.Errorf("RetryPolicy() = %+v", c.RetryPolicy())
	}
	if c.GCSBucket != "clips" {
		t.Errorf("GCSBucket = %q", c.GCSBucket)
	}
}

func TestLoad_badValuesFallBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("SKYCLIP_HTTP_TIMEOUT", "soon")
	os.Setenv("SKYCLIP_SEGMENT_BURST", "0")
	os.Setenv("SKYCLIP_MAX_SEGMENT_BYTES", "lots")
	os.Setenv("SKYCLIP_SEGMENT_RATE", "fast")
	os.Setenv("SKYCLIP_JOB_TTL", "-1m")
	c := Load()
	if c.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v", c.HTTPTimeout)
	}
	if c.SegmentBurst != 1 || c.MaxSegmentBytes != 64<<20 || c.SegmentRate != 0 {
		t.Errorf("burst=%d max=%d rate=%v", c.SegmentBurst, c.MaxSegmentBytes, c.SegmentRate)
	}
	if c.JobTTL != 10*time.Minute {
		t.Errorf("JobTTL = %v", c.JobTTL)
	}
	if c.RetryPolicy() != httpclient.NoRetryPolicy {
		t.Errorf("RetryPolicy() = %+v", c.RetryPolicy())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"format", func(c *Config) { c.Format = "mkv" }},
		{"timezone", func(c *Config) { c.Timezone = "Nowhere/Special" }},
		{"appview", func(c *Config) { c.AppViewURL = "ftp://x" }},
		{"hosts", func(c *Config) { c.PostHosts = nil }},
	}
	for _, tt := range tests {
		os.Clearenv()
		c := Load()
		tt.mod(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil, want error", tt.name)
		}
	}
}

func TestLocation(t *testing.T) {
	c := &Config{Timezone: "UTC"}
	loc, err := c.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location(UTC) = %v, %v", loc, err)
	}
	c.Timezone = "local"
	if loc, _ := c.Location(); loc != time.Local {
		t.Errorf("Location(local) = %v", loc)
	}
}
