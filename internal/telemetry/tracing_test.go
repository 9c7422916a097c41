/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span exporter for test assertions.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestInitTraceProviderNoopWhenEmpty(t *testing.T) {
	shutdown, err := InitTraceProvider(context.Background(), "", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestStartPipelineSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	ctx, span := StartPipelineSpan(ctx, "write")
	EndPipelineSpan(span, "LIGHT", 1200, true)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "gate.process" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "gate.process")
	}

	attrs := spans[0].Attributes
	foundTool, foundTier, foundC := false, false, false
	for _, a := range attrs {
		switch string(a.Key) {
		case "spfgate.tool":
			if a.Value.AsString() == "write" {
				foundTool = true
			}
		case "spfgate.tier":
			if a.Value.AsString() == "LIGHT" {
				foundTier = true
			}
		case "spfgate.complexity":
			if a.Value.AsInt64() == 1200 {
				foundC = true
			}
		}
	}
	if !foundTool {
		t.Error("missing spfgate.tool attribute")
	}
	if !foundTier {
		t.Error("missing spfgate.tier attribute")
	}
	if !foundC {
		t.Error("missing spfgate.complexity attribute")
	}

	_ = ctx
}

func TestNestedStageSpans(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	ctx, pipelineSpan := StartPipelineSpan(ctx, "bash")
	_, stageSpan := StartStageSpan(ctx, "validate")
	stageSpan.End()
	pipelineSpan.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}

	stageStub := spans[0]
	pipelineStub := spans[1]

	if stageStub.Parent.TraceID() != pipelineStub.SpanContext.TraceID() {
		t.Error("stage span should share trace ID with pipeline span")
	}
	if !stageStub.Parent.SpanID().IsValid() {
		t.Error("stage span should have a valid parent span ID")
	}
}
