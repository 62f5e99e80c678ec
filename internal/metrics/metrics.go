// Package metrics exposes preview engine counters to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	frames        *prometheus.CounterVec
	frameDuration prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	loadFailures  prometheus.Counter
	loadDuration  prometheus.Histogram
	placeholders  *prometheus.CounterVec
	cacheBytes    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "motionpreview",
			Name:      "frames_rendered_total",
			Help:      "Frames composed, by transition effect (none for single-asset frames).",
		}, []string{"effect"}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "motionpreview",
			Name:      "frame_render_seconds",
			Help:      "Time spent composing one frame.",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "motionpreview",
			Name:      "asset_cache_hits_total",
			Help:      "Decoded asset lookups served from cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "motionpreview",
			Name:      "asset_cache_misses_total",
			Help:      "Decoded asset lookups that found nothing.",
		}),
		loadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "motionpreview",
			Name:      "asset_load_failures_total",
			Help:      "Asset sources that could not be decoded.",
		}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "motionpreview",
			Name:      "asset_load_seconds",
			Help:      "Time spent decoding one asset source.",
			Buckets:   prometheus.DefBuckets,
		}),
		placeholders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "motionpreview",
			Name:      "placeholder_draws_total",
			Help:      "Assets drawn as placeholders because no decoded source was available.",
		}, []string{"kind"}),
		cacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "motionpreview",
			Name:      "asset_cache_bytes",
			Help:      "Bytes held by decoded assets.",
		}),
	}

	m.registry.MustRegister(
		m.frames, m.frameDuration,
		m.cacheHits, m.cacheMisses, m.loadFailures, m.loadDuration,
		m.placeholders, m.cacheBytes,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Frame(effect string, d time.Duration) {
	if m == nil {
		return
	}
	if effect == "" {
		effect = "none"
	}
	m.frames.WithLabelValues(effect).Inc()
	m.frameDuration.Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) Load(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(d.Seconds())
	if err != nil {
		m.loadFailures.Inc()
	}
}

func (m *Metrics) Placeholder(kind string) {
	if m == nil {
		return
	}
	m.placeholders.WithLabelValues(kind).Inc()
}

func (m *Metrics) CacheBytes(n int64) {
	if m == nil {
		return
	}
	m.cacheBytes.Set(float64(n))
}
