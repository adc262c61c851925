package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wonny/aegis-backtest/pkg/config"
)

const tracerName = "github.com/wonny/aegis-backtest"

var (
	mu             sync.Mutex
	tracerProvider *sdktrace.TracerProvider
)

// Init installs a stdout span exporter when tracing is enabled.
// Spans go to stderr so stdout stays free for command output.
func Init(ctx context.Context, cfg config.TracingConfig) error {
	return InitWithWriter(ctx, cfg, os.Stderr)
}

// InitWithWriter is Init with an explicit span destination
func InitWithWriter(ctx context.Context, cfg config.TracingConfig, w io.Writer) error {
	if !cfg.Enabled {
		return nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	mu.Lock()
	tracerProvider = tp
	mu.Unlock()

	otel.SetTracerProvider(tp)
	return nil
}

// Shutdown flushes pending spans
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := tracerProvider
	tracerProvider = nil
	mu.Unlock()

	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// Enabled reports whether Init installed a provider
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return tracerProvider != nil
}

// StartSpan starts a span on the global provider (a no-op until Init runs)
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// TraceID returns the trace id of the span in ctx, if any
func TraceID(ctx context.Context) (string, bool) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", false
	}
	return sc.TraceID().String(), true
}
