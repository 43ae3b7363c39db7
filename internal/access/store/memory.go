package store

import (
	"context"
	"sort"
	"sync"

	"trafficreg/internal/access/models"
	id "trafficreg/pkg/domain"
)

type assignment struct {
	scope     models.Scope
	role      models.Role
	principal id.Address
}

// InMemory keeps role assignments in a set keyed by (scope, role, principal).
type InMemory struct {
	mu      sync.RWMutex
	granted map[assignment]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{granted: make(map[assignment]struct{})}
}

// Grant records the assignment and reports whether it was new.
func (s *InMemory) Grant(_ context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignment{scope, role, principal}
	if _, ok := s.granted[key]; ok {
		return false, nil
	}
	s.granted[key] = struct{}{}
	return true, nil
}

// Revoke removes the assignment and reports whether it existed.
func (s *InMemory) Revoke(_ context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignment{scope, role, principal}
	if _, ok := s.granted[key]; !ok {
		return false, nil
	}
	delete(s.granted, key)
	return true, nil
}

func (s *InMemory) Has(_ context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.granted[assignment{scope, role, principal}]
	return ok, nil
}

// Members lists the principals holding role in scope, ordered by address.
func (s *InMemory) Members(_ context.Context, scope models.Scope, role models.Role) ([]id.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.Address
	for a := range s.granted {
		if a.scope == scope && a.role == role {
			out = append(out, a.principal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out, nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[assignment]struct{}, len(s.granted))
	for k := range s.granted {
		saved[k] = struct{}{}
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.granted = saved
		s.mu.Unlock()
	}
}
