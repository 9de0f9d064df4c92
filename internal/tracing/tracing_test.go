package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

// restoreGlobals はテスト終了時にグローバルなTracerProviderとプロパゲーターを元に戻す。
func restoreGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestInit_None_ReturnsNoopShutdown(t *testing.T) {
	restoreGlobals(t)

	shutdown, err := Init(context.Background(), Config{ServiceName: "botdir", Exporter: ExporterNone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error = %v, want nil", err)
	}

	fields := otel.GetTextMapPropagator().Fields()
	found := false
	for _, f := range fields {
		if f == "traceparent" {
			found = true
		}
	}
	if !found {
		t.Errorf("propagator fields = %v, want traceparent", fields)
	}
}

func TestInit_Stdout_ExportsSpansOnShutdown(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		ServiceName:    "botdir",
		ServiceVersion: "test",
		Exporter:       ExporterStdout,
		Writer:         &buf,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "submit-bot")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "submit-bot") {
		t.Errorf("exported output should contain span name, got %s", out)
	}
	if !strings.Contains(out, "botdir") {
		t.Errorf("exported output should contain service name, got %s", out)
	}
}

func TestInit_UnknownExporter_ReturnsError(t *testing.T) {
	restoreGlobals(t)

	if _, err := Init(context.Background(), Config{Exporter: "zipkin"}); err == nil {
		t.Error("expected error for unknown exporter")
	}
}
