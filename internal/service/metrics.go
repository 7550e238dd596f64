package service

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
)

// Metrics implements the domain.Metrics interface
type Metrics struct {
	// Global counters
	totalDecisions   int64
	totalDrops       int64
	totalResolutions int64
	totalCompleted   int64
	totalBatches     int64
	batchedRequests  int64
	modeSwitches     int64

	// Per-server and per-algorithm metrics
	serverMetrics   map[int]*ServerMetrics
	algorithmCounts map[domain.Algorithm]int64
	mu              sync.RWMutex

	startTime time.Time
}

// ServerMetrics holds decision metrics for a specific server
type ServerMetrics struct {
	Assigned     int64     `json:"assigned"`
	Resolved     int64     `json:"resolved"`
	LastAssigned time.Time `json:"last_assigned"`
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		serverMetrics:   make(map[int]*ServerMetrics),
		algorithmCounts: make(map[domain.Algorithm]int64),
		startTime:       time.Now(),
	}
}

// RecordDecision counts a successful assignment to serverID
func (m *Metrics) RecordDecision(algorithm domain.Algorithm, serverID int) {
	atomic.AddInt64(&m.totalDecisions, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.algorithmCounts[algorithm]++
	server := m.server(serverID)
	server.Assigned++
	server.LastAssigned = time.Now()
}

// RecordDrop counts a request dropped because no server was healthy
func (m *Metrics) RecordDrop(algorithm domain.Algorithm) {
	atomic.AddInt64(&m.totalDecisions, 1)
	atomic.AddInt64(&m.totalDrops, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.algorithmCounts[algorithm]++
}

// RecordResolution counts a request resolved at serverID
func (m *Metrics) RecordResolution(serverID int) {
	atomic.AddInt64(&m.totalResolutions, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.server(serverID).Resolved++
}

// RecordCompletion counts a request reaching the terminal state
func (m *Metrics) RecordCompletion() {
	atomic.AddInt64(&m.totalCompleted, 1)
}

// RecordBatchExpansion counts one batch expanded into size requests
func (m *Metrics) RecordBatchExpansion(size int) {
	atomic.AddInt64(&m.totalBatches, 1)
	atomic.AddInt64(&m.batchedRequests, int64(size))
}

// RecordModeSwitch counts an operator mode toggle
func (m *Metrics) RecordModeSwitch() {
	atomic.AddInt64(&m.modeSwitches, 1)
}

// server returns the metrics for serverID; callers hold m.mu
func (m *Metrics) server(serverID int) *ServerMetrics {
	if m.serverMetrics[serverID] == nil {
		m.serverMetrics[serverID] = &ServerMetrics{}
	}
	return m.serverMetrics[serverID]
}

// GetStats returns current statistics
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	decisions := atomic.LoadInt64(&m.totalDecisions)
	drops := atomic.LoadInt64(&m.totalDrops)

	var dropRate float64
	if decisions > 0 {
		dropRate = float64(drops) / float64(decisions) * 100
	}

	servers := make(map[string]interface{}, len(m.serverMetrics))
	for id, sm := range m.serverMetrics {
		servers[strconv.Itoa(id)] = map[string]interface{}{
			"assigned":      sm.Assigned,
			"resolved":      sm.Resolved,
			"last_assigned": sm.LastAssigned,
		}
	}

	algorithms := make(map[string]int64, len(m.algorithmCounts))
	for algorithm, count := range m.algorithmCounts {
		algorithms[string(algorithm)] = count
	}

	return map[string]interface{}{
		"total_decisions":   decisions,
		"total_drops":       drops,
		"drop_rate":         dropRate,
		"total_resolutions": atomic.LoadInt64(&m.totalResolutions),
		"total_completed":   atomic.LoadInt64(&m.totalCompleted),
		"total_batches":     atomic.LoadInt64(&m.totalBatches),
		"batched_requests":  atomic.LoadInt64(&m.batchedRequests),
		"mode_switches":     atomic.LoadInt64(&m.modeSwitches),
		"algorithms":        algorithms,
		"servers":           servers,
		"uptime":            time.Since(m.startTime).String(),
	}
}

// GetServerStats returns statistics for a specific server
func (m *Metrics) GetServerStats(serverID int) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sm, exists := m.serverMetrics[serverID]
	if !exists {
		return map[string]interface{}{
			"assigned": int64(0),
			"resolved": int64(0),
		}
	}
	return map[string]interface{}{
		"assigned":      sm.Assigned,
		"resolved":      sm.Resolved,
		"last_assigned": sm.LastAssigned,
	}
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.StoreInt64(&m.totalDecisions, 0)
	atomic.StoreInt64(&m.totalDrops, 0)
	atomic.StoreInt64(&m.totalResolutions, 0)
	atomic.StoreInt64(&m.totalCompleted, 0)
	atomic.StoreInt64(&m.totalBatches, 0)
	atomic.StoreInt64(&m.batchedRequests, 0)
	atomic.StoreInt64(&m.modeSwitches, 0)

	m.serverMetrics = make(map[int]*ServerMetrics)
	m.algorithmCounts = make(map[domain.Algorithm]int64)
}

// GetTotalDecisions returns the number of policy decisions committed
func (m *Metrics) GetTotalDecisions() int64 {
	return atomic.LoadInt64(&m.totalDecisions)
}

// GetTotalDrops returns the number of requests dropped
func (m *Metrics) GetTotalDrops() int64 {
	return atomic.LoadInt64(&m.totalDrops)
}
