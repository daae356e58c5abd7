package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	httpMetricsEnabled  bool
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
)

func initHTTPMetricsInstruments(serviceName string) {
	meter := otel.Meter(serviceName)

	var err error
	httpRequestsTotal, err = meter.Int64Counter(
		"snipvault_http_requests_total",
		metric.WithDescription("Total HTTP requests served"),
	)
	if err != nil {
		return
	}

	httpRequestDuration, err = meter.Float64Histogram(
		"snipvault_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return
	}

	httpMetricsEnabled = true
}

// ChiMetricsMiddleware records a count and a latency sample per
// request, labelled by method, matched route and status. A no-op until
// InitMetrics has run.
func ChiMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		if !httpMetricsEnabled {
			return
		}

		attrs := metric.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", routePattern(r)),
			attribute.Int("http.status_code", rec.status),
		)
		httpRequestsTotal.Add(r.Context(), 1, attrs)
		httpRequestDuration.Record(r.Context(), time.Since(start).Seconds(), attrs)
	})
}
