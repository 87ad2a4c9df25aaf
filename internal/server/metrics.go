package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the server's Prometheus collectors.
type Metrics struct {
	Renders   *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Degraded  prometheus.Counter
	CacheHits prometheus.Counter
	Imports   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segmentweaver_renders_total",
				Help: "Total number of render requests",
			},
			[]string{"format", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "segmentweaver_render_duration_seconds",
				Help:    "Duration of render requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),
		Degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segmentweaver_degraded_total",
			Help: "Unknown or invalid content skipped instead of raised",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segmentweaver_cache_hits_total",
			Help: "Render requests answered from the cache",
		}),
		Imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segmentweaver_imports_total",
				Help: "Total number of import requests",
			},
			[]string{"format", "outcome"},
		),
	}
	reg.MustRegister(m.Renders, m.Duration, m.Degraded, m.CacheHits, m.Imports)
	return m
}
