package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// providerSettings collects the InitProvider options.
type providerSettings struct {
	serviceName    string
	serviceVersion string
	traceExporter  sdktrace.SpanExporter
}

// ProviderOption configures [InitProvider].
type ProviderOption func(*providerSettings)

// WithServiceName overrides the service name reported in telemetry.
// Default: "versecraft".
func WithServiceName(name string) ProviderOption {
	return func(s *providerSettings) {
		if name != "" {
			s.serviceName = name
		}
	}
}

// WithServiceVersion sets the service version reported in telemetry.
func WithServiceVersion(version string) ProviderOption {
	return func(s *providerSettings) {
		s.serviceVersion = version
	}
}

// WithTraceExporter attaches a span exporter. Without one, spans are still
// recorded in process (correlation IDs, span attributes) but never leave it;
// that is the default for the one-shot CLI, where metrics carry the
// operational signal and traces matter mainly for log correlation.
func WithTraceExporter(exp sdktrace.SpanExporter) ProviderOption {
	return func(s *providerSettings) {
		s.traceExporter = exp
	}
}

// InitProvider registers the global OTel providers: a meter provider bridged
// to a Prometheus exporter (so the instruments in this package surface on the
// /metrics listener) and a tracer provider feeding the configured exporter,
// if any. The returned shutdown flushes both; defer it from main.
func InitProvider(ctx context.Context, opts ...ProviderOption) (shutdown func(context.Context) error, err error) {
	settings := providerSettings{serviceName: "versecraft"}
	for _, o := range opts {
		o(&settings)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(settings.serviceName),
			semconv.ServiceVersion(settings.serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if settings.traceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(settings.traceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	shutdown = func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}
	return shutdown, nil
}
