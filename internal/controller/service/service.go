package service

import (
	"context"
	"log/slog"

	accessmodels "trafficreg/internal/access/models"
	"trafficreg/internal/controller/models"
	"trafficreg/internal/ledger"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	"trafficreg/pkg/requestcontext"
)

// Store persists the controller record.
type Store interface {
	Load(ctx context.Context) (models.Record, error)
	Save(ctx context.Context, record models.Record) error
}

// Roles is the role registry as the controller uses it.
type Roles interface {
	Require(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) error
	HasRole(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (bool, error)
	Grant(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
	Revoke(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
}

// Service is the controller registry: peer bindings, the pause switch and
// the directory other registries resolve peers through.
type Service struct {
	store     Store
	roles     Roles
	ledger    *ledger.Ledger
	directory *Directory
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDirectory shares an existing peer directory.
func WithDirectory(d *Directory) Option {
	return func(s *Service) {
		s.directory = d
	}
}

func New(store Store, roles Roles, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{store: store, roles: roles, ledger: l}
	for _, opt := range opts {
		opt(s)
	}
	if s.directory == nil {
		s.directory = NewDirectory()
	}
	return s
}

func (s *Service) Directory() *Directory {
	return s.directory
}

func (s *Service) SetGovAgency(ctx context.Context, addr id.Address) (ledger.Receipt, error) {
	return s.SetPeer(ctx, models.KindGovAgency, addr)
}

func (s *Service) SetVehicleRegistration(ctx context.Context, addr id.Address) (ledger.Receipt, error) {
	return s.SetPeer(ctx, models.KindVehicleRegistration, addr)
}

func (s *Service) SetOffenceAndRenewal(ctx context.Context, addr id.Address) (ledger.Receipt, error) {
	return s.SetPeer(ctx, models.KindOffenceAndRenewal, addr)
}

func (s *Service) SetDriverLicense(ctx context.Context, addr id.Address) (ledger.Receipt, error) {
	return s.SetPeer(ctx, models.KindDriverLicense, addr)
}

// SetPeer binds addr as the peer of kind, overwriting any previous binding.
// Setting the current value again succeeds.
func (s *Service) SetPeer(ctx context.Context, kind models.Kind, addr id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "controller.set_"+string(kind), func(ctx context.Context) error {
		if err := s.RequireNotPaused(ctx); err != nil {
			return err
		}
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
		if addr.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "peer address is required")
		}
		record, err := s.load(ctx)
		if err != nil {
			return err
		}
		previous := record.Peer(kind)
		record.SetPeer(kind, addr)
		if err := s.store.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save controller record")
		}
		e := audit.New(audit.ContractController, audit.EventPeerSet, string(kind))
		e.Subject = addr
		ledger.Emit(ctx, e.With("previous", previous.Hex()))
		s.logAudit(ctx, string(audit.EventPeerSet), "kind", kind, "address", addr.Hex())
		return nil
	})
}

// GetAllCoreContracts returns the bound peers and the pause flag.
func (s *Service) GetAllCoreContracts(ctx context.Context) (models.Record, error) {
	var record models.Record
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.load(ctx)
		return err
	})
	return record, err
}

func (s *Service) IsGovAgency(ctx context.Context, addr id.Address) (bool, error) {
	return s.IsPeer(ctx, models.KindGovAgency, addr)
}

func (s *Service) IsVehicleRegistration(ctx context.Context, addr id.Address) (bool, error) {
	return s.IsPeer(ctx, models.KindVehicleRegistration, addr)
}

func (s *Service) IsOffenceAndRenewal(ctx context.Context, addr id.Address) (bool, error) {
	return s.IsPeer(ctx, models.KindOffenceAndRenewal, addr)
}

func (s *Service) IsDriverLicense(ctx context.Context, addr id.Address) (bool, error) {
	return s.IsPeer(ctx, models.KindDriverLicense, addr)
}

// IsPeer reports whether addr is the address currently bound for kind.
// The zero address never matches.
func (s *Service) IsPeer(ctx context.Context, kind models.Kind, addr id.Address) (bool, error) {
	if addr.IsZero() {
		return false, nil
	}
	record, err := s.GetAllCoreContracts(ctx)
	if err != nil {
		return false, err
	}
	return record.Peer(kind) == addr, nil
}

// Pause engages the circuit breaker. Pausing a paused system is reported
// as Unauthorized, the same error every other paused mutation returns.
func (s *Service) Pause(ctx context.Context) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "controller.pause", func(ctx context.Context) error {
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
		record, err := s.load(ctx)
		if err != nil {
			return err
		}
		if err := record.CanPause(); err != nil {
			return dErrors.New(dErrors.CodeUnauthorized, "system is paused")
		}
		record.ApplyPause()
		if err := s.store.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save controller record")
		}
		ledger.Emit(ctx, audit.New(audit.ContractController, audit.EventPaused, ""))
		s.logAudit(ctx, string(audit.EventPaused))
		return nil
	})
}

// Unpause releases the circuit breaker. It is the only mutation allowed
// while paused.
func (s *Service) Unpause(ctx context.Context) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "controller.unpause", func(ctx context.Context) error {
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
		record, err := s.load(ctx)
		if err != nil {
			return err
		}
		if err := record.CanUnpause(); err != nil {
			return dErrors.New(dErrors.CodeInvalidState, "system is not paused")
		}
		record.ApplyUnpause()
		if err := s.store.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save controller record")
		}
		ledger.Emit(ctx, audit.New(audit.ContractController, audit.EventUnpaused, ""))
		s.logAudit(ctx, string(audit.EventUnpaused))
		return nil
	})
}

func (s *Service) IsPaused(ctx context.Context) (bool, error) {
	record, err := s.GetAllCoreContracts(ctx)
	if err != nil {
		return false, err
	}
	return record.Paused, nil
}

// RequireNotPaused is the circuit breaker every mutating entry point calls
// before anything else.
func (s *Service) RequireNotPaused(ctx context.Context) error {
	paused, err := s.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return dErrors.New(dErrors.CodeUnauthorized, "system is paused")
	}
	return nil
}

// GrantRole grants role in the controller scope.
func (s *Service) GrantRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "controller.grant_role", func(ctx context.Context) error {
		if err := s.RequireNotPaused(ctx); err != nil {
			return err
		}
		_, err := s.roles.Grant(ctx, accessmodels.ScopeController, role, principal)
		return err
	})
}

// RevokeRole revokes role in the controller scope.
func (s *Service) RevokeRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "controller.revoke_role", func(ctx context.Context) error {
		if err := s.RequireNotPaused(ctx); err != nil {
			return err
		}
		_, err := s.roles.Revoke(ctx, accessmodels.ScopeController, role, principal)
		return err
	})
}

func (s *Service) HasRole(ctx context.Context, role accessmodels.Role, principal id.Address) (bool, error) {
	return s.roles.HasRole(ctx, accessmodels.ScopeController, role, principal)
}

func (s *Service) requireAdmin(ctx context.Context) error {
	return s.roles.Require(ctx, accessmodels.ScopeController, accessmodels.RoleAdmin, requestcontext.Caller(ctx))
}

func (s *Service) load(ctx context.Context) (models.Record, error) {
	record, err := s.store.Load(ctx)
	if err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load controller record")
	}
	return record, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	attributes = append(attributes, "caller", requestcontext.Caller(ctx).Hex())
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
