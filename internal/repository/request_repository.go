package repository

import (
	"fmt"
	"sync"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
)

// InMemoryRequestRepository stores the live requests in arrival order
type InMemoryRequestRepository struct {
	mu       sync.RWMutex
	order    []string
	requests map[string]*domain.Request
}

// NewInMemoryRequestRepository creates a new empty request repository
func NewInMemoryRequestRepository() *InMemoryRequestRepository {
	return &InMemoryRequestRepository{
		requests: make(map[string]*domain.Request),
	}
}

// Add appends requests to the live set in the given order
func (r *InMemoryRequestRepository) Add(requests ...domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateNew(requests); err != nil {
		return err
	}
	r.appendLocked(requests)
	return nil
}

// Get returns the live request with the given id
func (r *InMemoryRequestRepository) Get(id string) (domain.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, exists := r.requests[id]
	if !exists {
		return domain.Request{}, lberrors.NewUnknownRequestError(id)
	}
	return *req, nil
}

// Update overwrites a live request, keeping its position
func (r *InMemoryRequestRepository) Update(req domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.requests[req.ID]
	if !exists {
		return lberrors.NewUnknownRequestError(req.ID)
	}
	*existing = req
	return nil
}

// Replace removes the request with the given id and appends replacements
// at the end of the arrival order, as one step.
func (r *InMemoryRequestRepository) Replace(id string, replacements []domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[id]; !exists {
		return lberrors.NewUnknownRequestError(id)
	}
	if err := r.validateNew(replacements); err != nil {
		return err
	}

	r.removeLocked(id)
	r.appendLocked(replacements)
	return nil
}

// Remove deletes a request from the live set
func (r *InMemoryRequestRepository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[id]; !exists {
		return lberrors.NewUnknownRequestError(id)
	}
	r.removeLocked(id)
	return nil
}

// All returns every live request in arrival order
func (r *InMemoryRequestRepository) All() []domain.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requests := make([]domain.Request, 0, len(r.order))
	for _, id := range r.order {
		requests = append(requests, *r.requests[id])
	}
	return requests
}

// WithStatus returns the live requests in the given state, in arrival order
func (r *InMemoryRequestRepository) WithStatus(status domain.RequestStatus) []domain.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var requests []domain.Request
	for _, id := range r.order {
		if req := r.requests[id]; req.Status == status {
			requests = append(requests, *req)
		}
	}
	return requests
}

// FirstWithStatus returns the oldest live request in the given state
func (r *InMemoryRequestRepository) FirstWithStatus(status domain.RequestStatus) (domain.Request, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if req := r.requests[id]; req.Status == status {
			return *req, true
		}
	}
	return domain.Request{}, false
}

// Count returns the number of live requests
func (r *InMemoryRequestRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear removes all requests
func (r *InMemoryRequestRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.requests = make(map[string]*domain.Request)
}

func (r *InMemoryRequestRepository) validateNew(requests []domain.Request) error {
	seen := make(map[string]bool, len(requests))
	for i, req := range requests {
		if req.ID == "" {
			return fmt.Errorf("request at index %d has empty ID", i)
		}
		if _, exists := r.requests[req.ID]; exists || seen[req.ID] {
			return fmt.Errorf("request at index %d: duplicate ID '%s'", i, req.ID)
		}
		seen[req.ID] = true
	}
	return nil
}

func (r *InMemoryRequestRepository) appendLocked(requests []domain.Request) {
	for _, req := range requests {
		stored := req
		r.requests[req.ID] = &stored
		r.order = append(r.order, req.ID)
	}
}

func (r *InMemoryRequestRepository) removeLocked(id string) {
	delete(r.requests, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
