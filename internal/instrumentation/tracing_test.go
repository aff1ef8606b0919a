package instrumentation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// installTestTracer swaps the global tracer provider for one backed by an
// in-memory exporter and restores the previous provider afterwards.
func installTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func createTestSpanContext() (context.Context, trace.Span, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	ctx, span := tp.Tracer(TracerName).Start(context.Background(), "test-span")
	return ctx, span, exporter
}

func attrsToMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, attr := range attrs {
		m[attr.Key] = attr.Value
	}
	return m
}

func TestSpanAttributeBuilder(t *testing.T) {
	t.Run("empty builder", func(t *testing.T) {
		if attrs := NewSpanAttributeBuilder().Build(); len(attrs) != 0 {
			t.Errorf("Empty builder should return 0 attributes, got %d", len(attrs))
		}
	})

	t.Run("request attributes", func(t *testing.T) {
		attrs := attrsToMap(NewSpanAttributeBuilder().
			WithTool("redmine_request").
			WithRequest("get", "/issues/42.json?include=journals").
			Build())

		if got := attrs[SpanAttrTool].AsString(); got != "redmine_request" {
			t.Errorf("tool = %q", got)
		}
		if got := attrs[SpanAttrMethod].AsString(); got != "GET" {
			t.Errorf("method = %q, want GET", got)
		}
		if got := attrs[SpanAttrPath].AsString(); got != "/issues/{id}.json" {
			t.Errorf("path = %q, want normalised path", got)
		}
		if got := attrs[SpanAttrResource].AsString(); got != "issues" {
			t.Errorf("resource = %q, want issues", got)
		}
	})

	t.Run("empty preset is skipped", func(t *testing.T) {
		attrs := NewSpanAttributeBuilder().WithPreset("").WithFiltered(true).Build()
		if len(attrs) != 1 {
			t.Fatalf("Expected 1 attribute, got %d", len(attrs))
		}
		if attrs[0].Key != SpanAttrFiltered || !attrs[0].Value.AsBool() {
			t.Errorf("unexpected attribute %v", attrs[0])
		}
	})

	t.Run("preset", func(t *testing.T) {
		attrs := attrsToMap(NewSpanAttributeBuilder().WithPreset("minimal").Build())
		if got := attrs[SpanAttrPreset].AsString(); got != "minimal" {
			t.Errorf("preset = %q", got)
		}
	})
}

func TestStartRedmineSpan(t *testing.T) {
	exporter := installTestTracer(t)

	_, span := StartRedmineSpan(context.Background(), "POST", "/uploads.json?filename=a.txt",
		attribute.Int(SpanAttrStatusCode, 201))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name != "redmine.post" {
		t.Errorf("span name = %q, want redmine.post", got.Name)
	}
	if got.SpanKind != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", got.SpanKind)
	}
	attrs := attrsToMap(got.Attributes)
	if attrs[SpanAttrResource].AsString() != "uploads" {
		t.Errorf("resource = %q", attrs[SpanAttrResource].AsString())
	}
	if attrs[SpanAttrStatusCode].AsInt64() != 201 {
		t.Errorf("status code = %d", attrs[SpanAttrStatusCode].AsInt64())
	}
}

func TestStartToolSpan(t *testing.T) {
	exporter := installTestTracer(t)

	_, span := StartToolSpan(context.Background(), "redmine_paths_list")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "tool.redmine_paths_list" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if spans[0].SpanKind != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", spans[0].SpanKind)
	}
}

func TestStartSpan(t *testing.T) {
	exporter := installTestTracer(t)

	ctx, span := StartSpan(context.Background(), "response_filter.apply", attribute.String("k", "v"))
	if ctx == nil {
		t.Fatal("context should not be nil")
	}
	span.End()

	if n := len(exporter.GetSpans()); n != 1 {
		t.Fatalf("Expected 1 span, got %d", n)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID() = %q, want empty", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("GetSpanID() = %q, want empty", id)
	}
	if s := SpanContextString(context.Background()); s != "" {
		t.Errorf("SpanContextString() = %q, want empty", s)
	}
}

func TestTraceIDs_WithSpan(t *testing.T) {
	ctx, span, _ := createTestSpanContext()
	defer span.End()

	if traceID := GetTraceID(ctx); len(traceID) != 32 {
		t.Errorf("TraceID should be 32 chars, got %q", traceID)
	}
	if spanID := GetSpanID(ctx); len(spanID) != 16 {
		t.Errorf("SpanID should be 16 chars, got %q", spanID)
	}
	s := SpanContextString(ctx)
	if !strings.HasPrefix(s, "trace_id=") || !strings.Contains(s, " span_id=") {
		t.Errorf("SpanContextString() = %q", s)
	}
}

func TestSetSpanStatus(t *testing.T) {
	tests := []struct {
		name string
		set  func(trace.Span)
		want codes.Code
	}{
		{name: "error", set: func(s trace.Span) { SetSpanError(s, errors.New("boom")) }, want: codes.Error},
		{name: "nil error leaves status unset", set: func(s trace.Span) { SetSpanError(s, nil) }, want: codes.Unset},
		{name: "success", set: SetSpanSuccess, want: codes.Ok},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, span, exporter := createTestSpanContext()
			tt.set(span)
			AddSpanEvent(span, "checked", attribute.Bool("ok", true))
			span.End()

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("Expected 1 span, got %d", len(spans))
			}
			if spans[0].Status.Code != tt.want {
				t.Errorf("status = %v, want %v", spans[0].Status.Code, tt.want)
			}
			events := spans[0].Events
			if len(events) == 0 || events[len(events)-1].Name != "checked" {
				t.Errorf("expected the checked event last, got %v", events)
			}
		})
	}
}
