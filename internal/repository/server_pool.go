package repository

import (
	"sync"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
)

// serverState is the mutable record behind a domain.Server view
type serverState struct {
	activeLoad     int
	totalCompleted int
	healthy        bool
}

// InMemoryServerPool holds per-server load and health state.
// Server ids are the slice indexes and are never reused.
type InMemoryServerPool struct {
	mu      sync.RWMutex
	servers []serverState
}

// NewInMemoryServerPool creates n healthy, idle servers with ids 0..n-1
func NewInMemoryServerPool(n int) (*InMemoryServerPool, error) {
	if n < 1 {
		return nil, lberrors.NewInvalidConfigError("server_pool", "server count must be at least 1, got %d", n)
	}

	servers := make([]serverState, n)
	for i := range servers {
		servers[i].healthy = true
	}
	return &InMemoryServerPool{servers: servers}, nil
}

// Size returns the number of servers in the pool
func (p *InMemoryServerPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.servers)
}

// Get returns a view of the server with the given id
func (p *InMemoryServerPool) Get(id int) (domain.Server, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.exists(id) {
		return domain.Server{}, lberrors.NewUnknownServerError(id)
	}
	return p.view(id), nil
}

// Snapshot returns views of every server in id order
func (p *InMemoryServerPool) Snapshot() []domain.Server {
	p.mu.RLock()
	defer p.mu.RUnlock()

	servers := make([]domain.Server, len(p.servers))
	for id := range p.servers {
		servers[id] = p.view(id)
	}
	return servers
}

// Healthy returns views of the healthy servers in id order
func (p *InMemoryServerPool) Healthy() []domain.Server {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var healthy []domain.Server
	for id, s := range p.servers {
		if s.healthy {
			healthy = append(healthy, p.view(id))
		}
	}
	return healthy
}

// SetHealth marks a server healthy or down. Load is left untouched.
func (p *InMemoryServerPool) SetHealth(id int, healthy bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.exists(id) {
		return lberrors.NewUnknownServerError(id)
	}
	p.servers[id].healthy = healthy
	return nil
}

// ToggleHealth flips a server's health and returns the new value
func (p *InMemoryServerPool) ToggleHealth(id int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.exists(id) {
		return false, lberrors.NewUnknownServerError(id)
	}
	p.servers[id].healthy = !p.servers[id].healthy
	return p.servers[id].healthy, nil
}

// IncrementLoad records a new assignment on the server
func (p *InMemoryServerPool) IncrementLoad(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.exists(id) {
		return lberrors.NewUnknownServerError(id)
	}
	p.servers[id].activeLoad++
	return nil
}

// DecrementLoad records a resolution on the server. The active load never
// drops below zero; the completed counter always advances.
func (p *InMemoryServerPool) DecrementLoad(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.exists(id) {
		return lberrors.NewUnknownServerError(id)
	}
	if p.servers[id].activeLoad > 0 {
		p.servers[id].activeLoad--
	}
	p.servers[id].totalCompleted++
	return nil
}

// GetStats returns pool statistics
func (p *InMemoryServerPool) GetStats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := map[string]interface{}{
		"total_servers":   len(p.servers),
		"healthy_servers": 0,
		"down_servers":    0,
		"active_load":     0,
		"total_completed": 0,
	}

	for _, s := range p.servers {
		if s.healthy {
			stats["healthy_servers"] = stats["healthy_servers"].(int) + 1
		} else {
			stats["down_servers"] = stats["down_servers"].(int) + 1
		}
		stats["active_load"] = stats["active_load"].(int) + s.activeLoad
		stats["total_completed"] = stats["total_completed"].(int) + s.totalCompleted
	}

	return stats
}

func (p *InMemoryServerPool) exists(id int) bool {
	return id >= 0 && id < len(p.servers)
}

func (p *InMemoryServerPool) view(id int) domain.Server {
	s := p.servers[id]
	return domain.Server{
		ID:             id,
		ActiveLoad:     s.activeLoad,
		TotalCompleted: s.totalCompleted,
		Healthy:        s.healthy,
	}
}
