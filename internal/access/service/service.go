package service

import (
	"context"
	"log/slog"

	"trafficreg/internal/access/models"
	"trafficreg/internal/ledger"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	"trafficreg/pkg/requestcontext"
)

// Store persists role assignments.
type Store interface {
	Grant(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error)
	Revoke(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error)
	Has(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error)
	Members(ctx context.Context, scope models.Scope, role models.Role) ([]id.Address, error)
}

// Service is the role registry shared by every scope. It knows nothing of
// the pause switch: each registry wraps Grant and Revoke with its own guard.
type Service struct {
	store  Store
	ledger *ledger.Ledger
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{store: store, ledger: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize makes admin the first administrator of scope. It succeeds
// once per scope.
func (s *Service) Initialize(ctx context.Context, scope models.Scope, admin id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "access.initialize", func(ctx context.Context) error {
		if admin.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "admin address is required")
		}
		members, err := s.store.Members(ctx, scope, models.RoleAdmin)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admins")
		}
		if len(members) > 0 {
			return dErrors.New(dErrors.CodeAlreadyExists, "scope already initialized: "+string(scope))
		}
		if _, err := s.store.Grant(ctx, scope, models.RoleAdmin, admin); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant admin")
		}
		emitRoleEvent(ctx, audit.EventAdminInitialized, scope, models.RoleAdmin, admin)
		s.logAudit(ctx, string(audit.EventAdminInitialized), "scope", scope, "principal", admin.Hex())
		return nil
	})
}

// Grant assigns role to principal in scope. The caller must administer
// the scope. Granting an existing assignment succeeds without an event.
func (s *Service) Grant(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "access.grant", func(ctx context.Context) error {
		if err := s.Require(ctx, scope, models.RoleAdmin, requestcontext.Caller(ctx)); err != nil {
			return err
		}
		return s.Assign(ctx, scope, role, principal)
	})
}

// Assign grants a role without checking the caller. Registries use it for
// grants that follow from an operation they already authorised, such as
// issuing an agency.
func (s *Service) Assign(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) error {
	if err := validate(role, principal); err != nil {
		return err
	}
	changed, err := s.store.Grant(ctx, scope, role, principal)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role")
	}
	if changed {
		emitRoleEvent(ctx, audit.EventRoleGranted, scope, role, principal)
		s.logAudit(ctx, string(audit.EventRoleGranted), "scope", scope, "role", role.String(), "principal", principal.Hex())
	}
	return nil
}

// Revoke removes role from principal in scope. The caller must administer
// the scope.
func (s *Service) Revoke(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "access.revoke", func(ctx context.Context) error {
		if err := s.Require(ctx, scope, models.RoleAdmin, requestcontext.Caller(ctx)); err != nil {
			return err
		}
		return s.Unassign(ctx, scope, role, principal)
	})
}

// Unassign is the unchecked counterpart of Assign.
func (s *Service) Unassign(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) error {
	if err := validate(role, principal); err != nil {
		return err
	}
	changed, err := s.store.Revoke(ctx, scope, role, principal)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role")
	}
	if changed {
		emitRoleEvent(ctx, audit.EventRoleRevoked, scope, role, principal)
		s.logAudit(ctx, string(audit.EventRoleRevoked), "scope", scope, "role", role.String(), "principal", principal.Hex())
	}
	return nil
}

func (s *Service) HasRole(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error) {
	var has bool
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		has, err = s.store.Has(ctx, scope, role, principal)
		return err
	})
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check role")
	}
	return has, nil
}

// Require fails with CodeUnauthorized unless principal holds role in scope.
func (s *Service) Require(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) error {
	has, err := s.HasRole(ctx, scope, role, principal)
	if err != nil {
		return err
	}
	if !has {
		return dErrors.New(dErrors.CodeUnauthorized,
			"account "+principal.Hex()+" is missing role "+role.String()+" in "+string(scope))
	}
	return nil
}

func (s *Service) Members(ctx context.Context, scope models.Scope, role models.Role) ([]id.Address, error) {
	var members []id.Address
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		members, err = s.store.Members(ctx, scope, role)
		return err
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list role members")
	}
	return members, nil
}

func validate(role models.Role, principal id.Address) error {
	if !role.IsKnown() {
		return dErrors.New(dErrors.CodeValidation, "unknown role: "+role.Hex())
	}
	if principal.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "principal address is required")
	}
	return nil
}

func emitRoleEvent(ctx context.Context, action audit.AuditEvent, scope models.Scope, role models.Role, principal id.Address) {
	e := audit.New(scopeContract(scope), action, role.String())
	e.Subject = principal
	ledger.Emit(ctx, e.With("scope", string(scope)).With("role", role.Hex()))
}

func scopeContract(scope models.Scope) audit.Contract {
	switch scope {
	case models.ScopeGovAgency:
		return audit.ContractGovAgency
	case models.ScopeDriverLicense:
		return audit.ContractDriverLicense
	case models.ScopeVehicle:
		return audit.ContractVehicle
	case models.ScopeOffence:
		return audit.ContractOffence
	default:
		return audit.ContractController
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
