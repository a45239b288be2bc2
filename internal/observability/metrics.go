package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/uatops/uat-router/internal/domain"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	tierCount     map[domain.ParseTier]int64
	tokenCount    int64
	totalDuration time.Duration
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests          map[string]int64           `json:"requests"`
	Errors            map[string]int64           `json:"errors"`
	ParseTiers        map[domain.ParseTier]int64 `json:"parse_tiers"`
	TotalTokens       int64                      `json:"total_tokens"`
	AverageLatencyMS  float64                    `json:"average_latency_ms"`
	RequestsProcessed int64                      `json:"requests_processed"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		tierCount:    make(map[domain.ParseTier]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.totalDuration += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordRouting counts which normalizer tier produced a result and the tokens it cost.
func (m *Metrics) RecordRouting(tier domain.ParseTier, usage domain.Usage) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tierCount[tier]++
	m.tokenCount += int64(usage.TotalTokens)
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests:    make(map[string]int64, len(m.requestCount)),
		Errors:      make(map[string]int64, len(m.errorCount)),
		ParseTiers:  make(map[domain.ParseTier]int64, len(m.tierCount)),
		TotalTokens: m.tokenCount,
	}
	for k, v := range m.requestCount {
		snap.Requests[k] = v
		snap.RequestsProcessed += v
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.tierCount {
		snap.ParseTiers[k] = v
	}
	if snap.RequestsProcessed > 0 {
		snap.AverageLatencyMS = float64(m.totalDuration.Milliseconds()) / float64(snap.RequestsProcessed)
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
