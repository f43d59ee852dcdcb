package resources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type StopFn func(ctx context.Context, timeout time.Duration)

// Observe installs OTLP trace, metric and log providers and bridges zerolog
// into OTel logs. With telemetry disabled the otel globals stay no-op.
func Observe(ctx context.Context, cfg *Config) (context.Context, StopFn, error) {
	noop := func(context.Context, time.Duration) {}

	if !cfg.Otel.Enabled {
		log.Ctx(ctx).Info().Str("stage", "startup").Str("component", "telemetry").Msg("telemetry disabled")
		return ctx, noop, nil
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.Name),
		attribute.String("service.version", cfg.Version),
		attribute.String("deployment.environment", cfg.App.Env),
	)

	traceExp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Otel.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return ctx, noop, fmt.Errorf("failed to create the OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Otel.Endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return ctx, noop, fmt.Errorf("failed to create the OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	logExp, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(cfg.Otel.Endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return ctx, noop, fmt.Errorf("failed to create the OTLP log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)), sdklog.WithResource(res))
	global.SetLoggerProvider(lp)

	err = runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		return ctx, noop, fmt.Errorf("failed to start runtime instrumentation: %w", err)
	}

	// stdout output is kept; the hook additionally exports each entry via OTLP
	log.Logger = log.Logger.Hook(NewZerologHook(cfg.Name, cfg.Version))
	ctx = log.Logger.WithContext(ctx)

	stop := func(ctx context.Context, timeout time.Duration) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx), lp.Shutdown(ctx))
		if err != nil {
			log.Ctx(ctx).Error().Str("stage", "shut down").Str("component", "telemetry").Err(err).Msg("failed to stop telemetry")
		}
	}

	return ctx, stop, nil
}
