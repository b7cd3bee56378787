// Package memory provides an in-process audit store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/fastorc/requestshub/pkg/audit"
)

var _ audit.Store = (*Store)(nil)

// Store keeps audit documents in a map keyed by document id.
type Store struct {
	mu     sync.RWMutex
	events map[string]audit.Event
}

func New() *Store {
	return &Store{events: make(map[string]audit.Event)}
}

// Connect satisfies audit.Connector for "memory://" connection strings.
func Connect(_ context.Context, _ string) (audit.Store, error) {
	return New(), nil
}

func (s *Store) Upsert(_ context.Context, e *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[e.ID] = *e

	return nil
}

func (s *Store) Query(_ context.Context, q audit.Query) (audit.Page, error) {
	s.mu.RLock()

	var matching []audit.Event

	for _, e := range s.events {
		if e.RequestID == q.RequestID {
			matching = append(matching, e)
		}
	}

	s.mu.RUnlock()

	return audit.Paginate(matching, q)
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.events)
}

func (s *Store) Close(_ context.Context) error {
	return nil
}
