package store

import (
	"context"
	"sort"
	"sync"

	"trafficreg/internal/credential/token"
	"trafficreg/internal/vehicle/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
)

// InMemory keeps registrations keyed by plate number.
type InMemory struct {
	mu       sync.RWMutex
	vehicles map[string]*models.VehicleRegistration
	byToken  map[id.TokenID]string
	book     *token.Book
}

func NewInMemory() *InMemory {
	return &InMemory{
		vehicles: make(map[string]*models.VehicleRegistration),
		byToken:  make(map[id.TokenID]string),
		book:     token.NewBook(),
	}
}

func (s *InMemory) Create(_ context.Context, v *models.VehicleRegistration) (id.TokenID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[v.VehiclePlateNo]; ok {
		return 0, sentinel.ErrAlreadyUsed
	}
	stored := v.Clone()
	stored.TokenID = s.book.Mint(v.AddressUser)
	s.vehicles[stored.VehiclePlateNo] = stored
	s.byToken[stored.TokenID] = stored.VehiclePlateNo
	return stored.TokenID, nil
}

func (s *InMemory) FindByPlateNo(_ context.Context, plateNo string) (*models.VehicleRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[plateNo]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return v.Clone(), nil
}

func (s *InMemory) FindByTokenID(_ context.Context, tokenID id.TokenID) (*models.VehicleRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plateNo, ok := s.byToken[tokenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.vehicles[plateNo].Clone(), nil
}

func (s *InMemory) ListByHolder(_ context.Context, holder id.Address) ([]*models.VehicleRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.VehicleRegistration
	for _, v := range s.vehicles {
		if v.AddressUser == holder {
			out = append(out, v.Clone())
		}
	}
	sortByToken(out)
	return out, nil
}

func (s *InMemory) List(_ context.Context, after id.TokenID, limit int) ([]*models.VehicleRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.VehicleRegistration, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		if v.TokenID > after {
			out = append(out, v.Clone())
		}
	}
	sortByToken(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, plateNo string, validate func(*models.VehicleRegistration) error, mutate func(*models.VehicleRegistration)) (*models.VehicleRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[plateNo]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := v.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.TokenID = v.TokenID
	working.VehiclePlateNo = v.VehiclePlateNo
	if working.AddressUser != v.AddressUser {
		s.book.Reassign(working.TokenID, working.AddressUser)
	}
	s.vehicles[plateNo] = working
	return working.Clone(), nil
}

func (s *InMemory) Stats(context.Context) (token.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Stats(), nil
}

func (s *InMemory) BalanceOf(_ context.Context, holder id.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.BalanceOf(holder), nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	vehicles := make(map[string]*models.VehicleRegistration, len(s.vehicles))
	for k, v := range s.vehicles {
		vehicles[k] = v
	}
	byToken := make(map[id.TokenID]string, len(s.byToken))
	for k, v := range s.byToken {
		byToken[k] = v
	}
	book := s.book.Clone()
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.vehicles = vehicles
		s.byToken = byToken
		s.book = book
		s.mu.Unlock()
	}
}

func sortByToken(vehicles []*models.VehicleRegistration) {
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].TokenID < vehicles[j].TokenID })
}
