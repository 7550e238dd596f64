package service

import (
	stderrors "errors"
	"testing"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func servers(loads ...int) []domain.Server {
	out := make([]domain.Server, len(loads))
	for i, load := range loads {
		out[i] = domain.Server{ID: i, ActiveLoad: load, Healthy: true}
	}
	return out
}

func down(pool []domain.Server, ids ...int) []domain.Server {
	for _, id := range ids {
		pool[id].Healthy = false
	}
	return pool
}

func TestRoundRobinStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		servers    []domain.Server
		cursor     uint64
		requests   int
		expected   []int
		lastCursor uint64
	}{
		{
			name:       "three healthy servers from cursor zero",
			servers:    servers(0, 0, 0),
			cursor:     0,
			requests:   5,
			expected:   []int{0, 1, 2, 0, 1},
			lastCursor: 5,
		},
		{
			name:       "starts from the current cursor",
			servers:    servers(0, 0, 0),
			cursor:     4,
			requests:   3,
			expected:   []int{1, 2, 0},
			lastCursor: 7,
		},
		{
			name:       "skips down servers without resetting the cursor",
			servers:    down(servers(0, 0, 0, 0), 1),
			cursor:     0,
			requests:   4,
			expected:   []int{0, 2, 3, 0},
			lastCursor: 4,
		},
		{
			name:       "single server",
			servers:    servers(0),
			cursor:     9,
			requests:   3,
			expected:   []int{0, 0, 0},
			lastCursor: 12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := NewRoundRobinStrategy()
			cursor := tt.cursor

			results := make([]int, tt.requests)
			for i := range results {
				sel := Select(tt.servers, strategy, cursor, 0)
				require.True(t, sel.Found)
				results[i] = sel.ServerID
				cursor = sel.NextCursor
			}

			assert.Equal(t, tt.expected, results)
			assert.Equal(t, tt.lastCursor, cursor)
		})
	}
}

func TestRoundRobinFairness(t *testing.T) {
	t.Parallel()

	strategy := NewRoundRobinStrategy()
	for n := 1; n <= 5; n++ {
		for m := 0; m <= 17; m++ {
			pool := servers(make([]int, n)...)
			counts := make(map[int]int)
			var cursor uint64 = 3
			for i := 0; i < m; i++ {
				sel := Select(pool, strategy, cursor, 0)
				assert.Equal(t, int((3+uint64(i))%uint64(n)), sel.ServerID, "n=%d i=%d", n, i)
				counts[sel.ServerID]++
				cursor = sel.NextCursor
			}
			for id := 0; id < n; id++ {
				assert.GreaterOrEqual(t, counts[id], m/n, "n=%d m=%d id=%d", n, m, id)
				assert.LessOrEqual(t, counts[id], (m+n-1)/n, "n=%d m=%d id=%d", n, m, id)
			}
		}
	}
}

func TestLeastConnectionsStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		servers  []domain.Server
		expected int
	}{
		{name: "all idle picks lowest id", servers: servers(0, 0, 0), expected: 0},
		{name: "fewest active requests", servers: servers(2, 1, 0), expected: 2},
		{name: "tie goes to lowest id", servers: servers(3, 1, 1, 2), expected: 1},
		{name: "ignores down server with lower load", servers: down(servers(0, 4, 5), 0), expected: 1},
		{name: "only one healthy candidate", servers: down(servers(0, 3), 0), expected: 1},
	}

	strategy := NewLeastConnectionsStrategy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Select(tt.servers, strategy, 7, 0)
			require.True(t, sel.Found)
			assert.Equal(t, tt.expected, sel.ServerID)
			assert.Equal(t, uint64(7), sel.NextCursor, "least connections never advances the cursor")

			for _, s := range tt.servers {
				if s.Healthy {
					assert.LessOrEqual(t, tt.servers[sel.ServerID].ActiveLoad, s.ActiveLoad)
				}
			}
		})
	}
}

func TestIPHashStrategy(t *testing.T) {
	t.Parallel()

	strategy := NewIPHashStrategy()
	pool := servers(0, 0, 0)

	for origin := 0; origin < 6; origin++ {
		first := Select(pool, strategy, 0, origin)
		for i := 0; i < 5; i++ {
			again := Select(pool, strategy, uint64(i), origin)
			assert.Equal(t, first.ServerID, again.ServerID, "origin %d should be sticky", origin)
		}
		assert.Equal(t, origin%3, first.ServerID)
	}

	t.Run("mapping shifts when the healthy set changes", func(t *testing.T) {
		before := Select(servers(0, 0, 0), strategy, 0, 2)
		after := Select(down(servers(0, 0, 0), 0), strategy, 0, 2)

		assert.Equal(t, 2, before.ServerID)
		// 2 % 2 = index 0 of [1 2]
		assert.Equal(t, 1, after.ServerID)
	})

	t.Run("negative keys stay in range", func(t *testing.T) {
		sel := Select(pool, strategy, 0, -4)
		assert.Equal(t, 2, sel.ServerID)
	})
}

func TestRandomStrategy(t *testing.T) {
	t.Parallel()

	pool := down(servers(0, 0, 0, 0, 0), 1, 3)
	strategy := NewRandomStrategy(NewRandomSource(42))

	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		sel := Select(pool, strategy, uint64(i), 0)
		require.True(t, sel.Found)
		assert.Contains(t, []int{0, 2, 4}, sel.ServerID)
		seen[sel.ServerID] = true
	}
	assert.Len(t, seen, 3, "every healthy server should eventually be drawn")

	t.Run("same seed replays the same sequence", func(t *testing.T) {
		a := NewRandomStrategy(NewRandomSource(7))
		b := NewRandomStrategy(NewRandomSource(7))
		for i := 0; i < 20; i++ {
			assert.Equal(t, Select(pool, a, 0, 0).ServerID, Select(pool, b, 0, 0).ServerID)
		}
	})
}

func TestNoHealthyServers(t *testing.T) {
	t.Parallel()

	for _, algorithm := range domain.Algorithms() {
		t.Run(string(algorithm), func(t *testing.T) {
			pool := down(servers(1, 2), 0, 1)

			sel, err := SelectByAlgorithm(pool, algorithm, 11, 1, NewRandomSource(1))
			require.NoError(t, err)

			assert.False(t, sel.Found)
			assert.Equal(t, domain.NoServer, sel.ServerID)
			assert.Equal(t, uint64(11), sel.NextCursor)
			assert.True(t, sel.Rationale.Exhausted)
			assert.Equal(t, domain.SeverityError, sel.Rationale.Severity())
			assert.Equal(t, "No active servers available!", sel.Summary)
		})
	}

	t.Run("empty pool", func(t *testing.T) {
		sel := Select(nil, NewRoundRobinStrategy(), 0, 0)
		assert.False(t, sel.Found)
	})
}

func TestRationaleGolden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		algorithm domain.Algorithm
		servers   []domain.Server
		cursor    uint64
		origin    int
		summary   string
		steps     string
	}{
		{
			name:      "round robin",
			algorithm: domain.RoundRobin,
			servers:   servers(0, 0, 0),
			cursor:    4,
			summary:   "[RR] Selected Server 1",
			steps: "1. Checking sequence: the cursor is at position 4.\n" +
				"2. Healthy servers in order: [0 1 2].\n" +
				"3. Index: 4 % 3 = 1.\n" +
				"4. Decision: route to Server 1 and advance the cursor to 5.",
		},
		{
			name:      "least connections",
			algorithm: domain.LeastConnections,
			servers:   down(servers(0, 2, 1), 0),
			summary:   "[LC] Selected Server 2 (Load: 1)",
			steps: "1. Polling server loads: [Server 1: 2 active, Server 2: 1 active].\n" +
				"2. Comparing: Server 2 has the fewest active requests (1); ties go to the lowest id.\n" +
				"3. Decision: route to Server 2 to balance the load.",
		},
		{
			name:      "ip hash",
			algorithm: domain.IPHash,
			servers:   servers(0, 0),
			origin:    3,
			summary:   "[IP-HASH] Client 3 -> Server 1",
			steps: "1. Reading origin: the request is from Client 3.\n" +
				"2. Hashing: 3 % 2 = index 1.\n" +
				"3. Decision: index 1 of [0 1] maps to Server 1.",
		},
		{
			name:      "exhausted",
			algorithm: domain.IPHash,
			servers:   down(servers(0, 0), 0, 1),
			summary:   "No active servers available!",
			steps: "1. Checking server health: 0 of 2 servers are healthy.\n" +
				"2. Result: all servers are offline or unreachable.\n" +
				"3. Action: dropping the request.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := SelectByAlgorithm(tt.servers, tt.algorithm, tt.cursor, tt.origin, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.summary, sel.Summary)
			assert.Equal(t, tt.steps, sel.Rationale.String())

			// identical inputs give identical rationale
			again, _ := SelectByAlgorithm(tt.servers, tt.algorithm, tt.cursor, tt.origin, nil)
			assert.Equal(t, sel.Rationale, again.Rationale)
		})
	}
}

func TestNewStrategy(t *testing.T) {
	t.Parallel()

	for _, algorithm := range domain.Algorithms() {
		strategy, err := NewStrategy(algorithm, NewRandomSource(1))
		require.NoError(t, err)
		assert.Equal(t, algorithm, strategy.Algorithm())
		assert.NotEmpty(t, strategy.Name())
	}

	_, err := NewStrategy("weighted", nil)
	assert.True(t, stderrors.Is(err, lberrors.ErrInvalidConfig))

	_, err = NewStrategy(domain.Random, nil)
	assert.True(t, stderrors.Is(err, lberrors.ErrInvalidConfig))
}
