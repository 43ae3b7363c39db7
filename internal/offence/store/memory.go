package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trafficreg/internal/offence/models"
	"trafficreg/pkg/platform/sentinel"
)

// InMemory keeps the full renew rule history in id order.
type InMemory struct {
	mu     sync.RWMutex
	rules  map[int64]*models.RenewRule
	lastID int64
}

func NewInMemory() *InMemory {
	return &InMemory{rules: make(map[int64]*models.RenewRule)}
}

// Create assigns the next id to r. ErrAlreadyUsed when the license type
// already has an ACTIVE rule.
func (s *InMemory) Create(_ context.Context, r *models.RenewRule) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeLocked(r.LicenseType) != nil {
		return 0, sentinel.ErrAlreadyUsed
	}
	s.lastID++
	stored := r.Clone()
	stored.ID = s.lastID
	s.rules[stored.ID] = stored
	return stored.ID, nil
}

func (s *InMemory) FindActive(_ context.Context, licenseType string) (*models.RenewRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.activeLocked(licenseType)
	if r == nil {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// FindLatest returns the most recently created rule for licenseType,
// whatever its status.
func (s *InMemory) FindLatest(_ context.Context, licenseType string) (*models.RenewRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.RenewRule
	for _, r := range s.rules {
		if r.LicenseType == licenseType && (latest == nil || r.ID > latest.ID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest.Clone(), nil
}

func (s *InMemory) List(context.Context) ([]*models.RenewRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.RenewRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RevokeActive revokes the ACTIVE rule for licenseType. ErrNotFound when
// there is none.
func (s *InMemory) RevokeActive(_ context.Context, licenseType string, at time.Time) (*models.RenewRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.activeLocked(licenseType)
	if r == nil {
		return nil, sentinel.ErrNotFound
	}
	revoked := r.Clone()
	revoked.ApplyRevocation(at)
	s.rules[revoked.ID] = revoked
	return revoked.Clone(), nil
}

func (s *InMemory) activeLocked(licenseType string) *models.RenewRule {
	for _, r := range s.rules {
		if r.LicenseType == licenseType && r.IsActive() {
			return r
		}
	}
	return nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	rules := make(map[int64]*models.RenewRule, len(s.rules))
	for k, v := range s.rules {
		rules[k] = v
	}
	lastID := s.lastID
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.rules = rules
		s.lastID = lastID
		s.mu.Unlock()
	}
}
