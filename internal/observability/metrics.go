package observability

import (
	"strconv"
	"sync"
	"time"

	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// OutcomeOK labels a marketplace operation that committed.
const OutcomeOK = "OK"

// Metrics keeps in-process counters for HTTP traffic and marketplace
// operations. Keys are "route|method|status", "route|method|code" and
// "operation|outcome".
type Metrics struct {
	mu         sync.Mutex
	requests   map[string]int64
	latency    map[string]time.Duration
	errors     map[string]int64
	operations map[string]int64
}

// MetricsSnapshot is a point-in-time copy served at /metrics.
type MetricsSnapshot struct {
	Requests       map[string]int64 `json:"requests"`
	Errors         map[string]int64 `json:"errors"`
	LatencyTotalMS map[string]int64 `json:"latency_total_ms"`
	Operations     map[string]int64 `json:"operations"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:   make(map[string]int64),
		latency:    make(map[string]time.Duration),
		errors:     make(map[string]int64),
		operations: make(map[string]int64),
	}
}

func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := route + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	m.requests[key]++
	m.latency[key] += duration
	m.mu.Unlock()
}

func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.errors[route+"|"+method+"|"+code]++
	m.mu.Unlock()
}

// RecordOperation counts one marketplace operation by the error code it
// failed with, or OutcomeOK.
func (m *Metrics) RecordOperation(name string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	m.mu.Lock()
	m.operations[name+"|"+outcome]++
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{
			Requests:       map[string]int64{},
			Errors:         map[string]int64{},
			LatencyTotalMS: map[string]int64{},
			Operations:     map[string]int64{},
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	latency := make(map[string]int64, len(m.latency))
	for k, d := range m.latency {
		latency[k] = d.Milliseconds()
	}
	return MetricsSnapshot{
		Requests:       copyCounts(m.requests),
		Errors:         copyCounts(m.errors),
		LatencyTotalMS: latency,
		Operations:     copyCounts(m.operations),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
