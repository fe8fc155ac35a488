package observe

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// instrumentedWriter captures the status code written downstream. Only the
// first WriteHeader is recorded; later calls would panic in net/http anyway.
type instrumentedWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *instrumentedWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Middleware instruments the metrics listener's handlers (/metrics and the
// health probes): it continues an incoming W3C trace (or starts a fresh one),
// answers with an X-Correlation-ID header, records the request duration to
// [Metrics.HTTPRequestDuration] by method and path, and logs completion at
// debug level — the listener is scraped on a schedule, so per-request info
// logging would drown the real pipeline output.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer().Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			if cid := CorrelationID(ctx); cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			iw := &instrumentedWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(iw, r.WithContext(ctx))
			elapsed := time.Since(start)

			span.SetAttributes(semconv.HTTPResponseStatusCode(iw.status))
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("path", r.URL.Path),
				),
			)

			SpanLogger(ctx).Debug("listener request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", iw.status,
				"duration", elapsed,
			)
		})
	}
}
