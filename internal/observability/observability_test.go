// internal/observability/observability_test.go
package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestDisabledConfigIsNoop(t *testing.T) {
	tel, err := Init(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer tel.Cleanup()

	if tel.Metrics() != nil {
		t.Error("expected nil metrics when disabled")
	}

	_, span := tel.TracerProvider().Tracer("test").Start(context.Background(), "op")
	if span.IsRecording() {
		t.Error("expected a non-recording span from the no-op provider")
	}
	span.End()
}

func TestMiddlewarePassesThroughWhenDisabled(t *testing.T) {
	tel, err := Init(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer tel.Cleanup()

	handler := HTTPMiddleware(tel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest("GET", "/teapot", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body altered: %q", rec.Body.String())
	}
}

func TestMiddlewareRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := newMetrics(mp, "test")
	if err != nil {
		t.Fatalf("failed to init metrics: %v", err)
	}

	cfg := DefaultConfig()
	cfg.MetricsEnabled = true
	tel := &Telemetry{config: cfg, meterProvider: mp, metrics: metrics}

	handler := HTTPMiddleware(tel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/tables", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, rec.Code)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected scope metrics to be recorded")
	}

	recorded := make(map[string]bool)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		recorded[m.Name] = true
	}
	for _, name := range []string{
		"http.server.request_count",
		"http.server.request_duration",
		"http.server.response_size",
	} {
		if !recorded[name] {
			t.Errorf("expected metric %s to be recorded", name)
		}
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TABLY_OTEL_EXPORTER", "stdout")
	t.Setenv("TABLY_OTEL_SAMPLE_RATE", "0.5")
	t.Setenv("TABLY_OTEL_TRACES", "false")

	cfg := DefaultConfig().FromEnv()
	if cfg.Exporter != "stdout" {
		t.Errorf("expected exporter stdout, got %s", cfg.Exporter)
	}
	if cfg.SampleRate != 0.5 {
		t.Errorf("expected sample rate 0.5, got %f", cfg.SampleRate)
	}
	if !cfg.MetricsEnabled {
		t.Error("setting an exporter should enable metrics")
	}
	if cfg.TracesEnabled {
		t.Error("TABLY_OTEL_TRACES=false should disable traces")
	}
	if !cfg.Enabled() {
		t.Error("config with exporter and metrics should be enabled")
	}
}
