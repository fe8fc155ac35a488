package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of all Versecraft spans.
const tracerName = "github.com/MrWong99/versecraft"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Annotation pipeline span attributes.
const (
	attrPhase    = attribute.Key("versecraft.phase")
	attrRevision = attribute.Key("versecraft.document.revision")
	attrWords    = attribute.Key("versecraft.document.words")
	attrLines    = attribute.Key("versecraft.document.lines")
)

// RevisionAttr tags a span with the document revision it observed.
func RevisionAttr(rev uint64) attribute.KeyValue {
	return attrRevision.Int64(int64(rev))
}

// WordsAttr tags a span with the number of word tokens processed.
func WordsAttr(n int) attribute.KeyValue {
	return attrWords.Int(n)
}

// LinesAttr tags a span with the number of display lines produced.
func LinesAttr(n int) attribute.KeyValue {
	return attrLines.Int(n)
}

// StartPhase starts a span for one phase of the annotation pipeline (ingest,
// annotate, alt-lyrics, export). The phase name becomes both the span name
// and a versecraft.phase attribute so exporters can group by phase without
// parsing span names. End the returned span when the phase completes.
func StartPhase(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, phase,
		trace.WithAttributes(append([]attribute.KeyValue{attrPhase.String(phase)}, attrs...)...),
	)
}

// CorrelationID returns the active trace ID, or "" without an active span.
// It is the one identifier shared by spans, logs, and the X-Correlation-ID
// response header of the metrics listener.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanLogger returns the default logger bound to the active span's trace and
// span IDs, or the plain default logger when ctx carries no span.
func SpanLogger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
