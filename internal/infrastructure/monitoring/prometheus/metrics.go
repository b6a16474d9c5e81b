package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics is the full set of CompeteIQ metrics.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	AssessmentsTotal    CounterVec
	AssessmentDuration  HistogramVec
	FallbacksTotal      CounterVec
	ProviderCountsTotal CounterVec

	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	EventsPublishedTotal CounterVec
	ReportsArchivedTotal CounterVec

	HealthCheckStatus GaugeVec
}

var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultAssessmentDurationBuckets = []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5}
)

// NewAppMetrics registers every metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path"),
		HTTPActiveRequests:  collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method"),

		AssessmentsTotal:    collector.RegisterCounter("threat_assessments_total", "Threat assessments produced", "kind", "level"),
		AssessmentDuration:  collector.RegisterHistogram("threat_assessment_duration_seconds", "Threat assessment duration", DefaultAssessmentDurationBuckets, "kind"),
		FallbacksTotal:      collector.RegisterCounter("threat_fallbacks_total", "Assessments replaced by the neutral default", "kind", "reason"),
		ProviderCountsTotal: collector.RegisterCounter("provider_counts_total", "Provider attribution requests", "source"),

		CacheHitsTotal:   collector.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal: collector.RegisterCounter("cache_misses_total", "Cache misses", "cache"),

		EventsPublishedTotal: collector.RegisterCounter("events_published_total", "Domain events published", "type", "status"),
		ReportsArchivedTotal: collector.RegisterCounter("reports_archived_total", "Market reports archived", "status"),

		HealthCheckStatus: collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component"),
	}
}

// NewNoopAppMetrics returns metrics that record nothing.
func NewNoopAppMetrics() *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:    noopCounterVec{},
		HTTPRequestDuration:  noopHistogramVec{},
		HTTPActiveRequests:   noopGaugeVec{},
		AssessmentsTotal:     noopCounterVec{},
		AssessmentDuration:   noopHistogramVec{},
		FallbacksTotal:       noopCounterVec{},
		ProviderCountsTotal:  noopCounterVec{},
		CacheHitsTotal:       noopCounterVec{},
		CacheMissesTotal:     noopCounterVec{},
		EventsPublishedTotal: noopCounterVec{},
		ReportsArchivedTotal: noopCounterVec{},
		HealthCheckStatus:    noopGaugeVec{},
	}
}

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordAssessment(m *AppMetrics, kind, level string, duration time.Duration) {
	m.AssessmentsTotal.WithLabelValues(kind, level).Inc()
	m.AssessmentDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordFallback(m *AppMetrics, kind, reason string) {
	m.FallbacksTotal.WithLabelValues(kind, reason).Inc()
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func RecordEvent(m *AppMetrics, eventType string, err error) {
	m.EventsPublishedTotal.WithLabelValues(eventType, outcome(err)).Inc()
}

func RecordArchive(m *AppMetrics, err error) {
	m.ReportsArchivedTotal.WithLabelValues(outcome(err)).Inc()
}

func SetHealth(m *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
