package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace"
)

func TestInitWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := Init(context.Background(), "gateway")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestParseSampler(t *testing.T) {
	if got := parseSampler("always_on", ""); got.Description() != trace.AlwaysSample().Description() {
		t.Fatalf("always_on = %s", got.Description())
	}
	if got := parseSampler("always_off", ""); got.Description() != trace.NeverSample().Description() {
		t.Fatalf("always_off = %s", got.Description())
	}
	if got := parseSampler("traceidratio", "0.25"); got.Description() != trace.TraceIDRatioBased(0.25).Description() {
		t.Fatalf("ratio = %s", got.Description())
	}
	// Out-of-range args clamp instead of failing.
	if got := parseSampler("traceidratio", "7"); got.Description() != trace.TraceIDRatioBased(1).Description() {
		t.Fatalf("clamped ratio = %s", got.Description())
	}
	if got := parseSampler("", "garbage"); got.Description() != trace.ParentBased(trace.TraceIDRatioBased(1)).Description() {
		t.Fatalf("default = %s", got.Description())
	}
}

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	h := HTTPMiddleware("gateway")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/me", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestInstrumentClient(t *testing.T) {
	client := InstrumentClient(nil)
	if client == nil || client.Transport == nil {
		t.Fatal("instrumented client missing transport")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
