package store

import (
	"context"
	"sort"
	"sync"

	"trafficreg/internal/agency/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
)

// InMemory stores agencies keyed by agency id.
type InMemory struct {
	mu       sync.RWMutex
	agencies map[string]*models.Agency
}

func NewInMemory() *InMemory {
	return &InMemory{agencies: make(map[string]*models.Agency)}
}

// Create inserts a new agency; ErrAlreadyUsed when the id is taken,
// revoked agencies included.
func (s *InMemory) Create(_ context.Context, a *models.Agency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agencies[a.AgencyID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.agencies[a.AgencyID] = a.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, agencyID string) (*models.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agencies[agencyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// List returns up to limit agencies with ids after the cursor, ordered by id.
func (s *InMemory) List(_ context.Context, after string, limit int) ([]*models.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.agencies))
	for agencyID := range s.agencies {
		if agencyID > after {
			ids = append(ids, agencyID)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*models.Agency, 0, len(ids))
	for _, agencyID := range ids {
		out = append(out, s.agencies[agencyID].Clone())
	}
	return out, nil
}

// FindByAddress returns every agency registered at addr, revoked ones
// included, ordered by id.
func (s *InMemory) FindByAddress(_ context.Context, addr id.Address) ([]*models.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Agency
	for _, a := range s.agencies {
		if a.Address == addr {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgencyID < out[j].AgencyID })
	return out, nil
}

// Execute atomically validates and mutates an agency under the store lock.
func (s *InMemory) Execute(_ context.Context, agencyID string, validate func(*models.Agency) error, mutate func(*models.Agency)) (*models.Agency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agencies[agencyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := a.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.agencies[agencyID] = working
	return working.Clone(), nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[string]*models.Agency, len(s.agencies))
	for k, v := range s.agencies {
		saved[k] = v
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.agencies = saved
		s.mu.Unlock()
	}
}
