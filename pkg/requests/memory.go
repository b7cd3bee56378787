package requests

import (
	"context"
	"sync"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-process Repository for local runs and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	requests map[string]Request
}

func NewMemoryRepository(reqs ...Request) *MemoryRepository {
	r := &MemoryRepository{requests: make(map[string]Request)}
	for _, req := range reqs {
		r.requests[req.ID] = req
	}

	return r
}

// Put inserts or replaces a request.
func (r *MemoryRepository) Put(req Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests[req.ID] = req
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, newRequestError("Get", id, ErrRequestNotFound)
	}

	return &req, nil
}

func (r *MemoryRepository) RaisePriority(_ context.Context, id, priority string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return newRequestError("RaisePriority", id, ErrRequestNotFound)
	}

	req.Priority = priority
	r.requests[id] = req

	return nil
}

func (r *MemoryRepository) HealthCheck(_ context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
