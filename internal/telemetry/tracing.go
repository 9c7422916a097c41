/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package telemetry configures OpenTelemetry tracing for the gateway.
//
// Tracing is strictly fire-and-forget background instrumentation: the
// gateway's concurrency model forbids it from holding a reference to the
// Session or delaying a decision, so every span here is opened and
// closed synchronously around a pipeline stage with no ordering
// guarantee imposed on export.
//
// Custom span attributes use the `spfgate.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "spfgate/pipeline"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initializes the OTel trace provider with an OTLP
// gRPC exporter. If endpoint is empty, tracing is disabled (a no-op
// provider is used) — the gateway ships with tracing off by default.
// Returns a shutdown function that must be called on process exit.
func InitTraceProvider(ctx context.Context, endpoint string, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("spfgate"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartPipelineSpan opens the parent span for one gate pipeline run.
func StartPipelineSpan(ctx context.Context, tool string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "gate.process",
		trace.WithAttributes(
			attribute.String("spfgate.tool", tool),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartStageSpan opens a child span for one of the five pipeline stages.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "gate.stage."+stage)
}

// EndPipelineSpan enriches the pipeline span with the final decision and
// closes it.
func EndPipelineSpan(span trace.Span, tier string, c uint64, allowed bool) {
	span.SetAttributes(
		attribute.String("spfgate.tier", tier),
		attribute.Int64("spfgate.complexity", int64(c)),
		attribute.Bool("spfgate.allowed", allowed),
	)
	span.End()
}
