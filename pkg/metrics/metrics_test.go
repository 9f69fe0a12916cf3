package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestObserveAggregates(t *testing.T) {
	r := NewRegistry()
	r.Observe("/v1/me", 200, 10*time.Millisecond)
	r.Observe("/v1/me", 200, 30*time.Millisecond)
	r.Observe("/v1/me", 403, 20*time.Millisecond)

	snap := r.Snapshot()
	stat, ok := snap.Endpoints["/v1/me"]
	if !ok {
		t.Fatal("endpoint missing from snapshot")
	}
	if stat.Count != 3 || stat.ErrorCount != 1 {
		t.Fatalf("count=%d errors=%d", stat.Count, stat.ErrorCount)
	}
	if stat.MaxMillis != 30 || stat.TotalMillis != 60 {
		t.Fatalf("max=%d total=%d", stat.MaxMillis, stat.TotalMillis)
	}
	if stat.AverageMillis != 20 {
		t.Fatalf("avg=%f", stat.AverageMillis)
	}
	if stat.LastStatusCode != 403 {
		t.Fatalf("last status=%d", stat.LastStatusCode)
	}
}

func TestDecisionAndFailureCounters(t *testing.T) {
	r := NewRegistry()
	r.IncDecision("PERMIT", "")
	r.IncDecision("DENY", "role_mismatch")
	r.IncDecision("DENY", "feature_locked")
	r.IncDecision("", "ignored")
	r.IncAuthFailure("missing")
	r.IncAuthFailure("invalid")
	r.IncAuthFailure("invalid")

	snap := r.Snapshot()
	if snap.Decisions["PERMIT"] != 1 || snap.Decisions["DENY"] != 2 {
		t.Fatalf("decisions = %v", snap.Decisions)
	}
	if snap.Reasons["role_mismatch"] != 1 || snap.Reasons["feature_locked"] != 1 {
		t.Fatalf("reasons = %v", snap.Reasons)
	}
	if len(snap.Reasons) != 2 {
		t.Fatalf("permit must not record a reason: %v", snap.Reasons)
	}
	if snap.AuthFailures["invalid"] != 2 || snap.AuthFailures["missing"] != 1 {
		t.Fatalf("auth failures = %v", snap.AuthFailures)
	}
}

func TestJSONHandler(t *testing.T) {
	r := NewRegistry()
	r.Observe("/healthz", 200, time.Millisecond)
	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Endpoints["/healthz"].Count != 1 {
		t.Fatalf("endpoints = %v", snap.Endpoints)
	}
}

func TestPrometheusHandler(t *testing.T) {
	r := NewRegistry()
	r.Observe("/v1/me", 200, time.Millisecond)
	r.IncDecision("DENY", "org_not_approved")
	r.IncAuthFailure("invalid")

	rec := httptest.NewRecorder()
	r.PrometheusHandler()(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
	body := rec.Body.String()
	for _, line := range []string{
		`mandi_endpoint_count{endpoint="/v1/me"} 1`,
		`mandi_decision_total{kind="DENY"} 1`,
		`mandi_deny_reason_total{reason="org_not_approved"} 1`,
		`mandi_auth_failure_total{kind="invalid"} 1`,
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("missing %q in:\n%s", line, body)
		}
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestRegistryConcurrentWrites(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Observe("/v1/me", 200, time.Millisecond)
			r.IncDecision("PERMIT", "")
			r.IncAuthFailure("missing")
		}()
	}
	wg.Wait()
	snap := r.Snapshot()
	if snap.Endpoints["/v1/me"].Count != 20 || snap.Decisions["PERMIT"] != 20 {
		t.Fatalf("lost updates: %+v", snap)
	}
}
