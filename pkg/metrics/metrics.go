package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry is the gateway's in-process metrics store: endpoint stats,
// gate decisions by kind and reason, and auth failures by kind.
type Registry struct {
	mu        sync.RWMutex
	endpoint  map[string]*EndpointStat
	decisions map[string]int64
	reasons   map[string]int64
	authFails map[string]int64
}

type EndpointStat struct {
	Count          int64   `json:"count"`
	ErrorCount     int64   `json:"error_count"`
	TotalMillis    int64   `json:"total_millis"`
	MaxMillis      int64   `json:"max_millis"`
	AverageMillis  float64 `json:"average_millis"`
	LastStatusCode int     `json:"last_status_code"`
}

type Snapshot struct {
	GeneratedAt  string                  `json:"generated_at"`
	Endpoints    map[string]EndpointStat `json:"endpoints"`
	Decisions    map[string]int64        `json:"decisions"`
	Reasons      map[string]int64        `json:"reasons"`
	AuthFailures map[string]int64        `json:"auth_failures"`
}

func NewRegistry() *Registry {
	return &Registry{
		endpoint:  map[string]*EndpointStat{},
		decisions: map[string]int64{},
		reasons:   map[string]int64{},
		authFails: map[string]int64{},
	}
}

func (r *Registry) Observe(path string, status int, d time.Duration) {
	millis := d.Milliseconds()
	r.mu.Lock()
	defer r.mu.Unlock()
	stat, ok := r.endpoint[path]
	if !ok {
		stat = &EndpointStat{}
		r.endpoint[path] = stat
	}
	stat.Count++
	if status >= 400 {
		stat.ErrorCount++
	}
	stat.TotalMillis += millis
	if millis > stat.MaxMillis {
		stat.MaxMillis = millis
	}
	stat.LastStatusCode = status
	stat.AverageMillis = float64(stat.TotalMillis) / float64(stat.Count)
}

// IncDecision counts one gate outcome; reason is empty for permits.
func (r *Registry) IncDecision(kind, reason string) {
	if kind == "" {
		return
	}
	r.mu.Lock()
	r.decisions[kind]++
	if reason != "" {
		r.reasons[reason]++
	}
	r.mu.Unlock()
}

func (r *Registry) IncAuthFailure(kind string) {
	if kind == "" {
		return
	}
	r.mu.Lock()
	r.authFails[kind]++
	r.mu.Unlock()
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Endpoints:    map[string]EndpointStat{},
		Decisions:    map[string]int64{},
		Reasons:      map[string]int64{},
		AuthFailures: map[string]int64{},
	}
	for path, stat := range r.endpoint {
		snap.Endpoints[path] = *stat
	}
	for k, v := range r.decisions {
		snap.Decisions[k] = v
	}
	for k, v := range r.reasons {
		snap.Reasons[k] = v
	}
	for k, v := range r.authFails {
		snap.AuthFailures[k] = v
	}
	return snap
}

func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r.Snapshot())
	}
}

func (r *Registry) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		snap := r.Snapshot()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		b := &strings.Builder{}
		b.WriteString("# HELP mandi_endpoint_count total requests by endpoint\n")
		b.WriteString("# TYPE mandi_endpoint_count counter\n")
		for _, ep := range sortedKeys(snap.Endpoints) {
			fmt.Fprintf(b, "mandi_endpoint_count{endpoint=%q} %d\n", ep, snap.Endpoints[ep].Count)
		}
		b.WriteString("# HELP mandi_endpoint_error_count total endpoint errors\n")
		b.WriteString("# TYPE mandi_endpoint_error_count counter\n")
		for _, ep := range sortedKeys(snap.Endpoints) {
			fmt.Fprintf(b, "mandi_endpoint_error_count{endpoint=%q} %d\n", ep, snap.Endpoints[ep].ErrorCount)
		}
		b.WriteString("# HELP mandi_decision_total gate decisions by kind\n")
		b.WriteString("# TYPE mandi_decision_total counter\n")
		for _, kind := range sortedKeys(snap.Decisions) {
			fmt.Fprintf(b, "mandi_decision_total{kind=%q} %d\n", kind, snap.Decisions[kind])
		}
		b.WriteString("# HELP mandi_deny_reason_total gate denials by reason\n")
		b.WriteString("# TYPE mandi_deny_reason_total counter\n")
		for _, reason := range sortedKeys(snap.Reasons) {
			fmt.Fprintf(b, "mandi_deny_reason_total{reason=%q} %d\n", reason, snap.Reasons[reason])
		}
		b.WriteString("# HELP mandi_auth_failure_total authentication failures by kind\n")
		b.WriteString("# TYPE mandi_auth_failure_total counter\n")
		for _, kind := range sortedKeys(snap.AuthFailures) {
			fmt.Fprintf(b, "mandi_auth_failure_total{kind=%q} %d\n", kind, snap.AuthFailures[kind])
		}
		_, _ = w.Write([]byte(b.String()))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
