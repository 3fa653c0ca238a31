package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch kinds used as the "kind" label.
const (
	KindPlaylist = "playlist"
	KindSegment  = "segment"
	KindAPI      = "api"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Fetch metrics
	Fetches       *prometheus.CounterVec
	FetchBytes    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Download metrics
	ActiveDownloads  prometheus.Gauge
	Downloads        *prometheus.CounterVec
	DownloadDuration prometheus.Histogram
	DownloadSegments prometheus.Histogram
	DownloadBytes    prometheus.Histogram
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyclip_fetches_total",
				Help: "Upstream fetches by kind and result",
			},
			[]string{"kind", "result"},
		),
		FetchBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyclip_fetch_bytes_total",
				Help: "Bytes read from upstream by kind",
			},
			[]string{"kind"},
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skyclip_fetch_duration_seconds",
				Help:    "Upstream fetch latency by kind",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"kind"},
		),
		ActiveDownloads: f.NewGauge(prometheus.GaugeOpts{
			Name: "skyclip_active_downloads",
			Help: "Downloads currently running",
		}),
		Downloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyclip_downloads_total",
				Help: "Finished downloads by outcome and the stage they ended in",
			},
			[]string{"outcome", "stage"},
		),
		DownloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "skyclip_download_duration_seconds",
			Help:    "End-to-end download duration",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		}),
		DownloadSegments: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "skyclip_download_segments",
			Help:    "Segments per completed download",
			Buckets: prometheus.LinearBuckets(5, 10, 10),
		}),
		DownloadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "skyclip_download_bytes",
			Help:    "Assembled video size",
			Buckets: prometheus.ExponentialBuckets(256<<10, 2, 10), // 256KiB to 128MiB
		}),
	}
}

// ObserveFetch records one upstream fetch.
func (m *Metrics) ObserveFetch(kind string, n int, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Fetches.WithLabelValues(kind, result).Inc()
	m.FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
	if n > 0 {
		m.FetchBytes.WithLabelValues(kind).Add(float64(n))
	}
}

// DownloadStarted marks a download as running.
func (m *Metrics) DownloadStarted() {
	if m == nil {
		return
	}
	m.ActiveDownloads.Inc()
}

// DownloadFinished records the outcome of a download started with DownloadStarted.
// stage is the last stage reached; segments and size are only observed on success.
func (m *Metrics) DownloadFinished(stage string, d time.Duration, segments, size int, err error) {
	if m == nil {
		return
	}
	m.ActiveDownloads.Dec()
	outcome := "complete"
	if err != nil {
		outcome = "failed"
	}
	m.Downloads.WithLabelValues(outcome, stage).Inc()
	m.DownloadDuration.Observe(d.Seconds())
	if err == nil {
		m.DownloadSegments.Observe(float64(segments))
		m.DownloadBytes.Observe(float64(size))
	}
}
