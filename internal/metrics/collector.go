// Package metrics exposes Prometheus collectors for request latency and
// stream health.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gregiteen/ai-devices/internal/latency"
)

// Session outcomes.
const (
	OutcomeCompleted  = "completed"
	OutcomeAborted    = "aborted"
	OutcomeSuperseded = "superseded"
)

// Collector records reducer activity. A nil *Collector is valid and records nothing.
type Collector struct {
	stageDuration  *prometheus.HistogramVec
	responseTime   prometheus.Histogram
	fragmentsTotal *prometheus.CounterVec
	malformedTotal *prometheus.CounterVec
	sessionsTotal  *prometheus.CounterVec
	registry       *prometheus.Registry
	logger         *zap.Logger
}

// NewCollector registers the collectors on reg. A nil reg gets a fresh registry.
func NewCollector(namespace string, reg *prometheus.Registry, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)
	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.stageDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Elapsed time of each pipeline stage as seen by the client",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"stage"},
	)

	c.responseTime = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_time_seconds",
			Help:      "Sum of stage durations for a completed request",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	c.fragmentsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_total",
			Help:      "Channel updates applied, by channel",
		},
		[]string{"channel"},
	)

	c.malformedTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_channels_total",
			Help:      "Channels dropped because their payload failed validation",
		},
		[]string{"channel"},
	)

	c.sessionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Request sessions by outcome",
		},
		[]string{"outcome"},
	)

	return c
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordChannel counts one applied channel update.
func (c *Collector) RecordChannel(channel string) {
	if c == nil {
		return
	}
	c.fragmentsTotal.WithLabelValues(channel).Inc()
}

// RecordMalformed counts one dropped channel.
func (c *Collector) RecordMalformed(channel string) {
	if c == nil {
		return
	}
	c.malformedTotal.WithLabelValues(channel).Inc()
}

// RecordSession observes a finished session. Stage histograms only see
// stages that were recorded; superseded sessions are counted but not timed.
func (c *Collector) RecordSession(outcome string, report latency.Report, recorded func(latency.Stage) bool) {
	if c == nil {
		return
	}
	c.sessionsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuperseded {
		return
	}
	for _, s := range latency.Stages {
		if recorded != nil && recorded(s) {
			c.stageDuration.WithLabelValues(string(s)).Observe(report.Stage(s).Seconds())
		}
	}
	c.responseTime.Observe(report.Total.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the server fails.
func (c *Collector) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	c.logger.Info("serving metrics", zap.String("addr", addr))
	return srv.ListenAndServe()
}
