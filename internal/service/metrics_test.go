package service

import (
	"sync"
	"testing"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecording(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordDecision(domain.RoundRobin, 0)
	m.RecordDecision(domain.RoundRobin, 1)
	m.RecordDecision(domain.RoundRobin, 0)
	m.RecordDrop(domain.RoundRobin)
	m.RecordResolution(0)
	m.RecordCompletion()
	m.RecordBatchExpansion(5)
	m.RecordModeSwitch()

	stats := m.GetStats()
	assert.Equal(t, int64(4), stats["total_decisions"])
	assert.Equal(t, int64(1), stats["total_drops"])
	assert.InDelta(t, 25.0, stats["drop_rate"], 0.001)
	assert.Equal(t, int64(1), stats["total_resolutions"])
	assert.Equal(t, int64(1), stats["total_completed"])
	assert.Equal(t, int64(1), stats["total_batches"])
	assert.Equal(t, int64(5), stats["batched_requests"])
	assert.Equal(t, int64(1), stats["mode_switches"])
	assert.Equal(t, map[string]int64{"round_robin": 4}, stats["algorithms"])

	server := m.GetServerStats(0)
	assert.Equal(t, int64(2), server["assigned"])
	assert.Equal(t, int64(1), server["resolved"])

	unknown := m.GetServerStats(7)
	assert.Equal(t, int64(0), unknown["assigned"])
}

func TestMetricsReset(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordDecision(domain.IPHash, 2)
	m.RecordDrop(domain.IPHash)
	m.Reset()

	assert.Zero(t, m.GetTotalDecisions())
	assert.Zero(t, m.GetTotalDrops())
	servers, ok := m.GetStats()["servers"].(map[string]interface{})
	require.True(t, ok)
	assert.Empty(t, servers)
}

func TestMetricsConcurrent(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordDecision(domain.LeastConnections, id%3)
				m.RecordResolution(id % 3)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(800), m.GetTotalDecisions())
}
