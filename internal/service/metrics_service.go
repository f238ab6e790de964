package service

import (
	"database/sql"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

const metricsNamespace = "grievance"

// durationTally keeps a count and a nanosecond sum so snapshots can report a mean.
type durationTally struct {
	count atomic.Uint64
	nanos atomic.Uint64
}

func (d *durationTally) add(elapsed time.Duration) {
	d.count.Add(1)
	d.nanos.Add(uint64(elapsed.Nanoseconds()))
}

func (d *durationTally) meanMillis() (uint64, float64) {
	n := d.count.Load()
	if n == 0 {
		return 0, 0
	}
	return n, float64(d.nanos.Load()) / float64(n) / float64(time.Millisecond)
}

// MetricsService owns a private Prometheus registry for the portal and keeps
// running totals that back the /analytics/system endpoint.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	dbQueryDuration *prometheus.HistogramVec

	rulesApplied       *prometheus.CounterVec
	escalations        prometheus.Counter
	notifications      prometheus.Counter
	classifierRequests *prometheus.CounterVec
	snapshotDuration   prometheus.Histogram

	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	requests    durationTally
	dbQueries   durationTally
	ruleCount   atomic.Uint64
	escalated   atomic.Uint64
}

func histogram(name, help string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Name: name, Help: help, Buckets: prometheus.DefBuckets,
	})
}

func histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Name: name, Help: help, Buckets: prometheus.DefBuckets,
	}, labels)
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help})
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help}, labels)
}

// NewMetricsService registers the HTTP, cache, database, workflow and runtime collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry:        prometheus.NewRegistry(),
		requestDuration: histogramVec("http_request_duration_seconds", "Duration of HTTP requests in seconds", "method", "path", "status"),
		requestTotal:    counterVec("http_requests_total", "Total number of HTTP requests", "method", "path", "status"),
		cacheLookups:    counterVec("cache_lookups_total", "Analytics cache lookups by result", "result"),
		cacheLatency:    histogram("cache_latency_seconds", "Latency for cache lookups"),
		cacheWrite:      histogram("cache_write_seconds", "Latency for cache writes"),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "cache_hit_ratio", Help: "Ratio of cache hits to total cache lookups",
		}),
		dbQueryDuration: histogramVec("db_query_duration_seconds", "Duration of database queries", "query"),

		rulesApplied:       counterVec("workflow_rules_applied_total", "Workflow rules whose actions were executed", "rule_id"),
		escalations:        counter("workflow_escalations_total", "Escalations performed by workflow rules"),
		notifications:      counter("workflow_notifications_total", "Notifications produced by workflow runs and lifecycle events"),
		classifierRequests: counterVec("classifier_requests_total", "Classifier calls by provider and outcome", "provider", "outcome"),
		snapshotDuration:   histogram("analytics_snapshot_seconds", "Time spent computing an analytics bundle"),
	}

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLookups, m.cacheLatency, m.cacheWrite, m.cacheHitRatio,
		m.dbQueryDuration,
		m.rulesApplied, m.escalations, m.notifications, m.classifierRequests, m.snapshotDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: metricsNamespace}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// RegisterDB exports connection pool statistics for db under the given name.
func (m *MetricsService) RegisterDB(db *sql.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
	m.requests.add(duration)
}

// RecordCacheOperation records a cache hit or miss and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.cacheMisses.Add(1)
	}
	m.cacheHitRatio.Set(m.hitRatio())
}

func (m *MetricsService) hitRatio() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records the time spent in one labelled query.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.dbQueries.add(duration)
}

// RecordWorkflowRun counts matched rules, escalations and notifications of one orchestrator run.
func (m *MetricsService) RecordWorkflowRun(matchedRules []string, escalations, notifications int) {
	if m == nil {
		return
	}
	for _, id := range matchedRules {
		m.rulesApplied.WithLabelValues(id).Inc()
	}
	m.ruleCount.Add(uint64(len(matchedRules)))
	if escalations > 0 {
		m.escalations.Add(float64(escalations))
		m.escalated.Add(uint64(escalations))
	}
	m.RecordNotifications(notifications)
}

func (m *MetricsService) RecordNotifications(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notifications.Add(float64(n))
}

// RecordClassifier counts a classifier call. Outcome is "ok", "error" or "fallback".
func (m *MetricsService) RecordClassifier(provider, outcome string) {
	if m == nil {
		return
	}
	m.classifierRequests.WithLabelValues(provider, outcome).Inc()
}

func (m *MetricsService) ObserveSnapshot(duration time.Duration) {
	if m == nil {
		return
	}
	m.snapshotDuration.Observe(duration.Seconds())
}

// Snapshot returns the running totals exposed by the system analytics endpoint.
func (m *MetricsService) Snapshot() models.AnalyticsSystemMetrics {
	if m == nil {
		return models.AnalyticsSystemMetrics{}
	}
	requests, avgRequestMs := m.requests.meanMillis()
	queries, avgDBMs := m.dbQueries.meanMillis()

	return models.AnalyticsSystemMetrics{
		CacheHitRatio:            m.hitRatio(),
		CacheHits:                m.cacheHits.Load(),
		CacheMisses:              m.cacheMisses.Load(),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DBQueryCount:             queries,
		AverageDBQueryDurationMs: avgDBMs,
		RulesApplied:             m.ruleCount.Load(),
		Escalations:              m.escalated.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
