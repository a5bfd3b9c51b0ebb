// Package metrics exposes Prometheus collectors for the capture queue and
// the derivative cache.
//
// Every Metrics value owns its own registry so that several vaults (and
// parallel tests) never collide on the process-wide default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glimpse"

// Metrics holds the queue and cache collectors.
type Metrics struct {
	registry *prometheus.Registry

	captures        *prometheus.CounterVec
	captureFailures *prometheus.CounterVec
	evictions       *prometheus.CounterVec
	deletions       prometheus.Counter
	eraseFailures   prometheus.Counter
	queueLength     *prometheus.GaugeVec

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheFallbacks *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	cacheEntries   *prometheus.GaugeVec
}

// New creates a Metrics value with all collectors registered on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		captures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "captures_total",
			Help:      "Captures stored and enqueued.",
		}, []string{"view"}),
		captureFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "capture_failures_total",
			Help:      "Captures that failed before an artifact was enqueued.",
		}, []string{"view"}),
		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "evictions_total",
			Help:      "Artifacts removed from a sequence by overflow or clear.",
		}, []string{"view"}),
		deletions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "deletions_total",
			Help:      "Artifacts deleted on request.",
		}),
		eraseFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "erase",
			Name:      "failures_total",
			Help:      "Secure erases that could not remove the file.",
		}),
		queueLength: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "length",
			Help:      "Artifacts currently held per view.",
		}, []string{"view"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Derivative lookups served from the cache.",
		}, []string{"kind"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Derivative lookups that ran a transform.",
		}, []string{"kind"}),
		cacheFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fallbacks_total",
			Help:      "Derivative lookups answered with raw bytes after a transform failure.",
		}, []string{"kind"}),
		cacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Cache entries dropped by capacity or invalidation.",
		}, []string{"kind"}),
		cacheEntries: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Derivatives currently cached per kind.",
		}, []string{"kind"}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CaptureSucceeded(view string) { m.captures.WithLabelValues(view).Inc() }
func (m *Metrics) CaptureFailed(view string)    { m.captureFailures.WithLabelValues(view).Inc() }
func (m *Metrics) Evicted(view string)          { m.evictions.WithLabelValues(view).Inc() }
func (m *Metrics) Deleted()                     { m.deletions.Inc() }
func (m *Metrics) EraseFailed()                 { m.eraseFailures.Inc() }

// QueueLength records the current length of a view's sequence.
func (m *Metrics) QueueLength(view string, n int) {
	m.queueLength.WithLabelValues(view).Set(float64(n))
}

func (m *Metrics) CacheHit(kind string)      { m.cacheHits.WithLabelValues(kind).Inc() }
func (m *Metrics) CacheMiss(kind string)     { m.cacheMisses.WithLabelValues(kind).Inc() }
func (m *Metrics) CacheFallback(kind string) { m.cacheFallbacks.WithLabelValues(kind).Inc() }
func (m *Metrics) CacheEvicted(kind string)  { m.cacheEvictions.WithLabelValues(kind).Inc() }

// CacheEntries records the current number of cached derivatives of a kind.
func (m *Metrics) CacheEntries(kind string, n int) {
	m.cacheEntries.WithLabelValues(kind).Set(float64(n))
}
