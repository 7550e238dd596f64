package repository

import (
	stderrors "errors"
	"testing"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemoryServerPool(t *testing.T) {
	t.Parallel()

	t.Run("creates healthy idle servers", func(t *testing.T) {
		pool, err := NewInMemoryServerPool(3)
		require.NoError(t, err)

		assert.Equal(t, []domain.Server{
			{ID: 0, Healthy: true},
			{ID: 1, Healthy: true},
			{ID: 2, Healthy: true},
		}, pool.Snapshot())
	})

	for _, n := range []int{0, -1} {
		_, err := NewInMemoryServerPool(n)
		assert.True(t, stderrors.Is(err, lberrors.ErrInvalidConfig), "n=%d", n)
	}
}

func TestServerPoolLoadAccounting(t *testing.T) {
	t.Parallel()

	pool, err := NewInMemoryServerPool(2)
	require.NoError(t, err)

	require.NoError(t, pool.IncrementLoad(1))
	require.NoError(t, pool.IncrementLoad(1))
	require.NoError(t, pool.DecrementLoad(1))

	server, err := pool.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 1, server.ActiveLoad)
	assert.Equal(t, 1, server.TotalCompleted)

	// decrement clamps at zero but still counts the completion
	require.NoError(t, pool.DecrementLoad(0))
	server, err = pool.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 0, server.ActiveLoad)
	assert.Equal(t, 1, server.TotalCompleted)

	assert.True(t, stderrors.Is(pool.IncrementLoad(5), lberrors.ErrUnknownServer))
	assert.True(t, stderrors.Is(pool.DecrementLoad(-1), lberrors.ErrUnknownServer))
}

func TestServerPoolHealth(t *testing.T) {
	t.Parallel()

	pool, err := NewInMemoryServerPool(3)
	require.NoError(t, err)
	require.NoError(t, pool.IncrementLoad(1))

	healthy, err := pool.ToggleHealth(1)
	require.NoError(t, err)
	assert.False(t, healthy)

	// going down keeps in-flight load
	server, _ := pool.Get(1)
	assert.Equal(t, 1, server.ActiveLoad)
	assert.Equal(t, []int{0, 2}, domain.ServerIDs(pool.Healthy()))

	require.NoError(t, pool.SetHealth(1, true))
	assert.Equal(t, []int{0, 1, 2}, domain.ServerIDs(pool.Healthy()))

	_, err = pool.ToggleHealth(3)
	assert.True(t, stderrors.Is(err, lberrors.ErrUnknownServer))

	stats := pool.GetStats()
	assert.Equal(t, 3, stats["healthy_servers"])
	assert.Equal(t, 1, stats["active_load"])
}

func TestRequestRepositoryOrder(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRequestRepository()
	require.NoError(t, repo.Add(
		domain.Request{ID: "a", Status: domain.StatusAwaitingDecision},
		domain.Request{ID: "b", Kind: domain.KindBatch, BatchSize: 2},
		domain.Request{ID: "c", Status: domain.StatusAwaitingDecision},
	))

	first, ok := repo.FirstWithStatus(domain.StatusAwaitingDecision)
	require.True(t, ok)
	assert.Equal(t, "a", first.ID)

	require.NoError(t, repo.Replace("b", []domain.Request{
		{ID: "b1", Status: domain.StatusAwaitingDecision},
		{ID: "b2", Status: domain.StatusAwaitingDecision},
	}))

	var ids []string
	for _, req := range repo.WithStatus(domain.StatusAwaitingDecision) {
		ids = append(ids, req.ID)
	}
	assert.Equal(t, []string{"a", "c", "b1", "b2"}, ids)

	require.NoError(t, repo.Remove("a"))
	first, ok = repo.FirstWithStatus(domain.StatusAwaitingDecision)
	require.True(t, ok)
	assert.Equal(t, "c", first.ID)
	assert.Equal(t, 3, repo.Count())
}

func TestRequestRepositoryUnknownAndDuplicate(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRequestRepository()
	require.NoError(t, repo.Add(domain.Request{ID: "a"}))

	assert.Error(t, repo.Add(domain.Request{ID: "a"}))
	assert.Error(t, repo.Add(domain.Request{ID: ""}))
	assert.Error(t, repo.Replace("a", []domain.Request{{ID: "x"}, {ID: "x"}}))

	_, err := repo.Get("missing")
	assert.True(t, stderrors.Is(err, lberrors.ErrUnknownRequest))
	assert.True(t, stderrors.Is(repo.Update(domain.Request{ID: "missing"}), lberrors.ErrUnknownRequest))
	assert.True(t, stderrors.Is(repo.Remove("missing"), lberrors.ErrUnknownRequest))

	// a rejected replacement leaves the original in place
	got, err := repo.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	repo.Clear()
	assert.Equal(t, 0, repo.Count())
	assert.Empty(t, repo.All())
}
