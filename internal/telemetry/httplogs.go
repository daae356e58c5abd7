package telemetry

import (
	"net/http"
	"time"

	otelLog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// ChiLogMiddleware emits one structured log record per completed
// request: method, matched route, target path, status and duration.
func ChiLogMiddleware(serviceName string) func(http.Handler) http.Handler {
	logger := global.Logger(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			severity := severityForStatus(rec.status)
			var logRec otelLog.Record
			logRec.SetEventName("http.request")
			logRec.SetTimestamp(time.Now())
			logRec.SetSeverity(severity)
			logRec.SetSeverityText(severityText(severity))
			logRec.SetBody(otelLog.StringValue("request completed"))
			logRec.AddAttributes(
				otelLog.String("http.method", r.Method),
				otelLog.String("http.route", routePattern(r)),
				otelLog.String("http.target", r.URL.Path),
				otelLog.Int("http.status_code", rec.status),
				otelLog.Int64("http.duration_ms", time.Since(start).Milliseconds()),
			)

			logger.Emit(r.Context(), logRec)
		})
	}
}

func severityForStatus(status int) otelLog.Severity {
	switch {
	case status >= 500:
		return otelLog.SeverityError
	case status >= 400:
		return otelLog.SeverityWarn
	default:
		return otelLog.SeverityInfo
	}
}
