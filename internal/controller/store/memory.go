package store

import (
	"context"
	"sync"

	"trafficreg/internal/controller/models"
)

// InMemory holds the single controller record.
type InMemory struct {
	mu     sync.RWMutex
	record models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Load(_ context.Context) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, nil
}

func (s *InMemory) Save(_ context.Context, record models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = record
	return nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := s.record
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.record = saved
		s.mu.Unlock()
	}
}
