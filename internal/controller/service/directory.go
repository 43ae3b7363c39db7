package service

import (
	"context"
	"fmt"
	"sync"

	"trafficreg/internal/controller/models"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
)

// Directory maps deployed registry addresses to in-process handles.
//
// The controller record says which address is bound for each kind; the
// directory says what lives at an address. Peers are always resolved
// through both, so rebinding an address in the controller takes effect
// on the next operation without restarting dependents.
type Directory struct {
	mu      sync.RWMutex
	entries map[id.Address]entry
}

type entry struct {
	kind   models.Kind
	handle any
}

func NewDirectory() *Directory {
	return &Directory{entries: make(map[id.Address]entry)}
}

// Register records that handle, a registry of kind, is deployed at addr.
func (d *Directory) Register(kind models.Kind, addr id.Address, handle any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[addr] = entry{kind: kind, handle: handle}
}

// Lookup returns what is deployed at addr.
func (d *Directory) Lookup(addr id.Address) (models.Kind, any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[addr]
	return e.kind, e.handle, ok
}

// Resolve returns the handle currently bound for kind, asserted to T.
func Resolve[T any](ctx context.Context, s *Service, kind models.Kind) (T, error) {
	var zero T
	record, err := s.GetAllCoreContracts(ctx)
	if err != nil {
		return zero, err
	}
	addr := record.Peer(kind)
	if addr.IsZero() {
		return zero, dErrors.New(dErrors.CodeInvalidState, "controller has no "+string(kind)+" bound")
	}
	deployed, handle, ok := s.directory.Lookup(addr)
	if !ok || deployed != kind {
		return zero, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("address %s is not a deployed %s", addr.Hex(), kind))
	}
	typed, ok := handle.(T)
	if !ok {
		return zero, dErrors.New(dErrors.CodeInternal,
			fmt.Sprintf("%s at %s does not provide %T", kind, addr.Hex(), zero))
	}
	return typed, nil
}

// ResolveGovAgency returns the agency registry bound in the controller.
func ResolveGovAgency[T any](ctx context.Context, s *Service) (T, error) {
	return Resolve[T](ctx, s, models.KindGovAgency)
}

// ResolveDriverLicense returns the license registry bound in the controller.
func ResolveDriverLicense[T any](ctx context.Context, s *Service) (T, error) {
	return Resolve[T](ctx, s, models.KindDriverLicense)
}

// ValidateBindings checks that all four peers are bound and that each bound
// address hosts a registry of the right kind. Run it after startup and
// after any peer rebinding.
func (s *Service) ValidateBindings(ctx context.Context) error {
	record, err := s.GetAllCoreContracts(ctx)
	if err != nil {
		return err
	}
	for _, kind := range models.Kinds {
		addr := record.Peer(kind)
		if addr.IsZero() {
			return dErrors.New(dErrors.CodeInvalidState, "controller has no "+string(kind)+" bound")
		}
		deployed, _, ok := s.directory.Lookup(addr)
		if !ok {
			return dErrors.New(dErrors.CodeInvalidState,
				fmt.Sprintf("%s bound to %s which is not deployed", kind, addr.Hex()))
		}
		if deployed != kind {
			return dErrors.New(dErrors.CodeInvalidState,
				fmt.Sprintf("%s bound to %s which hosts %s", kind, addr.Hex(), deployed))
		}
	}
	return nil
}
