// Package telemetry bootstraps the OpenTelemetry SDK (traces, metrics,
// logs, all exported over OTLP-HTTP) when enabled, and otherwise hands
// back the SDK's own no-op providers — mirroring the teacher's
// no-op-behind-an-interface default module, generalized from a single
// metrics-exporter interface to the full otel provider trio.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/bragerone/bragerone-go/internal/config"
)

// Provider bundles the three otel provider handles this client uses and
// the shutdown hook for all of them together.
type Provider struct {
	tracerProvider trace.TracerProvider
	meterProvider  *metric.MeterProvider
	loggerProvider *sdklog.LoggerProvider
	shutdown       func(context.Context) error
}

// Bootstrap builds a Provider from cfg. When cfg.Enabled is false, it
// returns a Provider wrapping otel's built-in no-op implementations —
// every Tracer/Meter/Logger call stays safe and cheap, and Shutdown is a
// no-op, so callers never need to branch on whether telemetry is on.
func Bootstrap(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{
			tracerProvider: noop.NewTracerProvider(),
			shutdown:       func(context.Context) error { return nil },
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	traceExp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)

	metricExp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExp)),
		metric.WithResource(res),
	)

	logExp, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("telemetry: log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return &Provider{
		tracerProvider: tp,
		meterProvider:  mp,
		loggerProvider: lp,
		shutdown: func(ctx context.Context) error {
			var errs []error
			if err := tp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := mp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := lp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("telemetry: shutdown: %v", errs)
			}
			return nil
		},
	}, nil
}

// Tracer returns a named tracer from the bootstrapped (or no-op)
// tracer provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tracerProvider.Tracer(name)
}

// Logger returns an slog.Logger bridged onto the otel log pipeline when
// telemetry is enabled, or slog.Default() otherwise.
func (p *Provider) Logger(name string) *slog.Logger {
	if p.loggerProvider == nil {
		return slog.Default()
	}
	return slog.New(otelslog.NewHandler(name, otelslog.WithLoggerProvider(p.loggerProvider)))
}

// LoggerProvider exposes the raw otel log provider for components (such
// as otelslog bridges constructed elsewhere) that need it directly. Nil
// when telemetry is disabled.
func (p *Provider) LoggerProvider() otellog.LoggerProvider {
	if p.loggerProvider == nil {
		return nil
	}
	return p.loggerProvider
}

// Shutdown flushes and closes every underlying exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
