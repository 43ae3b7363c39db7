package store

import (
	"context"
	"sort"
	"sync"

	"trafficreg/internal/credential/token"
	"trafficreg/internal/license/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
)

// InMemory keeps licenses keyed by license number, with token and holder
// indices maintained on every write.
type InMemory struct {
	mu       sync.RWMutex
	licenses map[string]*models.DriverLicense
	byToken  map[id.TokenID]string
	book     *token.Book
}

func NewInMemory() *InMemory {
	return &InMemory{
		licenses: make(map[string]*models.DriverLicense),
		byToken:  make(map[id.TokenID]string),
		book:     token.NewBook(),
	}
}

// Create mints the next token id for l and stores it. ErrAlreadyUsed when
// the license number was ever issued.
func (s *InMemory) Create(_ context.Context, l *models.DriverLicense) (id.TokenID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.licenses[l.LicenseNo]; ok {
		return 0, sentinel.ErrAlreadyUsed
	}
	stored := l.Clone()
	stored.TokenID = s.book.Mint(l.HolderAddress)
	s.licenses[stored.LicenseNo] = stored
	s.byToken[stored.TokenID] = stored.LicenseNo
	return stored.TokenID, nil
}

func (s *InMemory) FindByLicenseNo(_ context.Context, licenseNo string) (*models.DriverLicense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.licenses[licenseNo]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return l.Clone(), nil
}

func (s *InMemory) FindByTokenID(_ context.Context, tokenID id.TokenID) (*models.DriverLicense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	licenseNo, ok := s.byToken[tokenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.licenses[licenseNo].Clone(), nil
}

// ListByHolder returns the holder's licenses ordered by token id.
func (s *InMemory) ListByHolder(_ context.Context, holder id.Address) ([]*models.DriverLicense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DriverLicense
	for _, l := range s.licenses {
		if l.HolderAddress == holder {
			out = append(out, l.Clone())
		}
	}
	sortByToken(out)
	return out, nil
}

// List returns up to limit licenses with token ids after the cursor. A
// non-positive limit returns all of them.
func (s *InMemory) List(_ context.Context, after id.TokenID, limit int) ([]*models.DriverLicense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.DriverLicense, 0, len(s.licenses))
	for _, l := range s.licenses {
		if l.TokenID > after {
			out = append(out, l.Clone())
		}
	}
	sortByToken(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Execute atomically validates and mutates a license. A holder change is
// mirrored in the token book.
func (s *InMemory) Execute(_ context.Context, licenseNo string, validate func(*models.DriverLicense) error, mutate func(*models.DriverLicense)) (*models.DriverLicense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.licenses[licenseNo]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := l.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.TokenID = l.TokenID
	working.LicenseNo = l.LicenseNo
	if working.HolderAddress != l.HolderAddress {
		s.book.Reassign(working.TokenID, working.HolderAddress)
	}
	s.licenses[licenseNo] = working
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
	licenses := make(map[string]*models.DriverLicense, len(s.licenses))
	for k, v := range s.licenses {
		licenses[k] = v
	}
	byToken := make(map[id.TokenID]string, len(s.byToken))
	for k, v := range s.byToken {
		byToken[k] = v
	}
	book := s.book.Clone()
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.licenses = licenses
		s.byToken = byToken
		s.book = book
		s.mu.Unlock()
	}
}

func sortByToken(licenses []*models.DriverLicense) {
	sort.Slice(licenses, func(i, j int) bool { return licenses[i].TokenID < licenses[j].TokenID })
}
