// Package observe provides application-wide observability primitives for
// Versecraft: OpenTelemetry metrics, tracing, structured logging, and HTTP
// middleware for the metrics listener.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Versecraft metrics.
const meterName = "github.com/MrWong99/versecraft"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// RecomputeDuration tracks the coalesced recompute pass (rhyme groups,
	// syllable counts, re-flow) latency.
	RecomputeDuration metric.Float64Histogram

	// AltRequestDuration tracks alternative-lyrics provider call latency.
	AltRequestDuration metric.Float64Histogram

	// DictionaryLoadDuration tracks phonetic dictionary load and parse time.
	DictionaryLoadDuration metric.Float64Histogram

	// --- Counters ---

	// Mutations counts annotation-store mutations. Use with attribute:
	//   attribute.String("op", ...)
	Mutations metric.Int64Counter

	// Notifications counts coalesced change notifications delivered to
	// subscribers.
	Notifications metric.Int64Counter

	// AltChunks counts alternative-lyrics chunks by outcome. Use with attribute:
	//   attribute.String("status", "ok"|"malformed")
	AltChunks metric.Int64Counter

	// DictionaryLookups counts phonetic lookups by outcome. Use with attribute:
	//   attribute.String("result", "hit"|"miss")
	DictionaryLookups metric.Int64Counter

	// --- Error counters ---

	// AltErrors counts alternative-lyrics provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	AltErrors metric.Int64Counter

	// --- Gauges ---

	// PendingNotifications tracks debounced notifications scheduled but not yet
	// delivered (0 or 1 per store).
	PendingNotifications metric.Int64UpDownCounter

	// ActiveAltRequests tracks in-flight alternative-lyrics requests.
	ActiveAltRequests metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Recompute
// passes sit in the low milliseconds; provider calls reach tens of seconds.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecomputeDuration, err = m.Float64Histogram("versecraft.recompute.duration",
		metric.WithDescription("Latency of one coalesced recompute pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AltRequestDuration, err = m.Float64Histogram("versecraft.alt.request.duration",
		metric.WithDescription("Latency of alternative-lyrics provider calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DictionaryLoadDuration, err = m.Float64Histogram("versecraft.dictionary.load.duration",
		metric.WithDescription("Phonetic dictionary load and parse time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Mutations, err = m.Int64Counter("versecraft.store.mutations",
		metric.WithDescription("Total annotation-store mutations by operation."),
	); err != nil {
		return nil, err
	}
	if met.Notifications, err = m.Int64Counter("versecraft.store.notifications",
		metric.WithDescription("Total coalesced change notifications delivered."),
	); err != nil {
		return nil, err
	}
	if met.AltChunks, err = m.Int64Counter("versecraft.alt.chunks",
		metric.WithDescription("Total alternative-lyrics chunks by status."),
	); err != nil {
		return nil, err
	}
	if met.DictionaryLookups, err = m.Int64Counter("versecraft.dictionary.lookups",
		metric.WithDescription("Total phonetic dictionary lookups by result."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.AltErrors, err = m.Int64Counter("versecraft.alt.errors",
		metric.WithDescription("Total alternative-lyrics provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.PendingNotifications, err = m.Int64UpDownCounter("versecraft.store.pending_notifications",
		metric.WithDescription("Debounced notifications scheduled but not yet delivered."),
	); err != nil {
		return nil, err
	}
	if met.ActiveAltRequests, err = m.Int64UpDownCounter("versecraft.alt.active_requests",
		metric.WithDescription("In-flight alternative-lyrics requests."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("versecraft.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordMutation records one store mutation with its operation name.
func (m *Metrics) RecordMutation(ctx context.Context, op string) {
	m.Mutations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}

// RecordAltChunk records one alternative-lyrics chunk outcome.
func (m *Metrics) RecordAltChunk(ctx context.Context, status string) {
	m.AltChunks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordDictionaryLookup records one phonetic lookup outcome.
func (m *Metrics) RecordDictionaryLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DictionaryLookups.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordAltError records an alternative-lyrics provider error.
func (m *Metrics) RecordAltError(ctx context.Context, provider, kind string) {
	m.AltErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
