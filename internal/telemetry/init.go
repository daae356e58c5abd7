// Package telemetry wires the service to an OTLP collector for logs,
// metrics and traces, and carries the Chi middlewares and helpers the
// rest of the code emits through.
package telemetry

import (
	"context"
	"log"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Each Init installs the global provider for one signal and returns
// its shutdown function. Call them once at startup; the Log and span
// helpers no-op against the default globals until then.

func InitLogger(serviceName string) func(context.Context) error {
	exporter, err := otlploggrpc.New(context.Background(),
		otlploggrpc.WithEndpoint(otlpEndpoint("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		log.Fatal(err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(serviceResource(serviceName)),
	)
	global.SetLoggerProvider(lp)
	return lp.Shutdown
}

func InitMetrics(serviceName string) func(context.Context) error {
	exporter, err := otlpmetricgrpc.New(context.Background(),
		otlpmetricgrpc.WithEndpoint(otlpEndpoint("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		log.Fatal(err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(serviceResource(serviceName)),
	)
	otel.SetMeterProvider(mp)
	initHTTPMetricsInstruments(serviceName)
	return mp.Shutdown
}

func InitTracer(serviceName string) func(context.Context) error {
	exporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(otlpEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		log.Fatal(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(serviceResource(serviceName)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

func serviceResource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)
}

// otlpEndpoint resolves the exporter endpoint for one signal, falling
// back to the shared OTLP variable and then the local collector.
func otlpEndpoint(signalEnv string) string {
	for _, env := range []string{signalEnv, "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		if endpoint := strings.TrimSpace(os.Getenv(env)); endpoint != "" {
			return endpoint
		}
	}
	return "localhost:4317"
}
