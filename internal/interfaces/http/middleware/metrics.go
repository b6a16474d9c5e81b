package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
)

// RequestMetrics records request counts, latency and in-flight requests. The
// path label is the matched chi route pattern so ids do not explode label
// cardinality; unmatched requests are labelled "unmatched".
func RequestMetrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	if m == nil {
		m = prometheus.NewNoopAppMetrics()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			active := m.HTTPActiveRequests.WithLabelValues(r.Method)
			active.Inc()
			defer active.Dec()

			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			prometheus.RecordHTTPRequest(m, r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
