package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/snapetech/skyclip/internal/assemble"
	"github.com/snapetech/skyclip/internal/httpclient"
)

// Config holds downloader, storage and server settings.
// Load from env; CLI flags override individual fields.
type Config struct {
	// Bluesky
	AppViewURL string   // XRPC base, e.g. https://public.api.bsky.app
	PostHosts  []string // web hosts whose post URLs are accepted

	// Output
	Format    string // "mp4" | "ts"
	OutputDir string
	GCSBucket string // when set, videos are uploaded instead of written locally
	GCSPrefix string
	// Filenames
	Transliterate bool
	Timezone      string // IANA name or "Local"; renders the filename timestamp

	// Fetching
	HTTPTimeout     time.Duration // API and playlist requests
	SegmentTimeout  time.Duration // per segment request
	SegmentRate     float64       // requests/second per host; 0 = unlimited
	SegmentBurst    int
	MaxSegmentBytes int64
	Retry           bool // retry 429/5xx once
	UserAgent       string

	// Server
	Addr   string
	JobTTL time.Duration // finished jobs are dropped after this

	// Logging: empty LogFile = stderr. Otherwise rotated by size.
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load() to use a .env file.
func Load() *Config {
	c := &Config{
		AppViewURL:      getEnv("SKYCLIP_APPVIEW_URL", "https://public.api.bsky.app"),
		PostHosts:       getEnvList("SKYCLIP_POST_HOSTS", []string{"bsky.app"}),
		Format:          getEnv("SKYCLIP_FORMAT", "mp4"),
		OutputDir:       getEnv("SKYCLIP_OUTPUT_DIR", "."),
		GCSBucket:       os.Getenv("SKYCLIP_GCS_BUCKET"),
		GCSPrefix:       os.Getenv("SKYCLIP_GCS_PREFIX"),
		Transliterate:   getEnvBool("SKYCLIP_TRANSLITERATE", false),
		Timezone:        getEnv("SKYCLIP_TIMEZONE", "Local"),
		HTTPTimeout:     getEnvDuration("SKYCLIP_HTTP_TIMEOUT", 30*time.Second),
		SegmentTimeout:  getEnvDuration("SKYCLIP_SEGMENT_TIMEOUT", 60*time.Second),
		SegmentRate:     getEnvFloat("SKYCLIP_SEGMENT_RATE", 0),
		SegmentBurst:    getEnvInt("SKYCLIP_SEGMENT_BURST", 1),
		MaxSegmentBytes: getEnvInt64("SKYCLIP_MAX_SEGMENT_BYTES", 64<<20),
		Retry:           getEnvBool("SKYCLIP_RETRY", false),
		UserAgent:       getEnv("SKYCLIP_USER_AGENT", "skyclip/1.0"),
		Addr:            getEnv("SKYCLIP_ADDR", ":8080"),
		JobTTL:          getEnvDuration("SKYCLIP_JOB_TTL", 10*time.Minute),
		LogFile:         os.Getenv("SKYCLIP_LOG_FILE"),
		LogMaxSizeMB:    getEnvInt("SKYCLIP_LOG_MAX_SIZE_MB", 50),
		LogMaxBackups:   getEnvInt("SKYCLIP_LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:   getEnvInt("SKYCLIP_LOG_MAX_AGE_DAYS", 28),
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.SegmentTimeout <= 0 {
		c.SegmentTimeout = 60 * time.Second
	}
	if c.SegmentBurst <= 0 {
		c.SegmentBurst = 1
	}
	if c.MaxSegmentBytes <= 0 {
		c.MaxSegmentBytes = 64 << 20
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 10 * time.Minute
	}
	return c
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if _, err := assemble.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("SKYCLIP_FORMAT: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("SKYCLIP_TIMEZONE: %w", err)
	}
	if !strings.HasPrefix(c.AppViewURL, "https://") && !strings.HasPrefix(c.AppViewURL, "http://") {
		return fmt.Errorf("SKYCLIP_APPVIEW_URL: %q is not an http(s) URL", c.AppViewURL)
	}
	if len(c.PostHosts) == 0 {
		return fmt.Errorf("SKYCLIP_POST_HOSTS: no hosts")
	}
	return nil
}

// OutputFormat returns the parsed Format.
func (c *Config) OutputFormat() (assemble.Format, error) {
	return assemble.ParseFormat(c.Format)
}

// Location resolves Timezone ("" and "Local" = time.Local).
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// RetryPolicy is the policy for all upstream requests.
func (c *Config) RetryPolicy() httpclient.RetryPolicy {
	if c.Retry {
		return httpclient.DefaultRetryPolicy
	}
	return httpclient.NoRetryPolicy
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
