package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	accessmodels "trafficreg/internal/access/models"
	"trafficreg/internal/agency/models"
	"trafficreg/internal/ledger"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	"trafficreg/pkg/platform/pagination"
	"trafficreg/pkg/platform/sentinel"
	"trafficreg/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, agency *models.Agency) error
	FindByID(ctx context.Context, agencyID string) (*models.Agency, error)
	FindByAddress(ctx context.Context, addr id.Address) ([]*models.Agency, error)
	List(ctx context.Context, after string, limit int) ([]*models.Agency, error)
	Execute(ctx context.Context, agencyID string, validate func(*models.Agency) error, mutate func(*models.Agency)) (*models.Agency, error)
}

// PauseGuard is the controller's circuit breaker.
type PauseGuard interface {
	RequireNotPaused(ctx context.Context) error
}

// Roles is the role registry as the agency registry uses it.
type Roles interface {
	Require(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) error
	HasRole(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (bool, error)
	Grant(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
	Revoke(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
	Assign(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) error
	Unassign(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) error
}

const scope = accessmodels.ScopeGovAgency

// Service is the agency registry: the directory of issuing authorities.
type Service struct {
	store  Store
	roles  Roles
	pause  PauseGuard
	ledger *ledger.Ledger
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, roles Roles, pause PauseGuard, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{store: store, roles: roles, pause: pause, ledger: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueAgency registers an ACTIVE agency and grants its address the
// GOV_AGENCY role in this registry.
func (s *Service) IssueAgency(ctx context.Context, in models.IssueAgencyInput) (*models.Agency, ledger.Receipt, error) {
	var agency *models.Agency
	receipt, err := s.ledger.Submit(ctx, "gov_agency.issue", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		a, err := models.NewAgency(in, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		held, err := s.roles.HasRole(ctx, scope, accessmodels.RoleGovAgency, a.Address)
		if err != nil {
			return err
		}
		a.RoleGranted = !held
		if err := s.store.Create(ctx, a); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyExists, "agency already exists: "+a.AgencyID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create agency")
		}
		if err := s.roles.Assign(ctx, scope, accessmodels.RoleGovAgency, a.Address); err != nil {
			return err
		}
		e := audit.New(audit.ContractGovAgency, audit.EventAgencyIssued, a.AgencyID)
		e.Subject = a.Address
		ledger.Emit(ctx, e.With("timestamp", strconv.FormatInt(a.IssuedAt.Unix(), 10)))
		s.logAudit(ctx, string(audit.EventAgencyIssued), "agency_id", a.AgencyID, "address", a.Address.Hex())
		agency = a
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return agency, receipt, nil
}

// GetAgency returns the agency registered under agencyID.
func (s *Service) GetAgency(ctx context.Context, agencyID string) (*models.Agency, error) {
	var agency *models.Agency
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		a, err := s.store.FindByID(ctx, agencyID)
		if err != nil {
			return wrapAgencyErr(err, agencyID)
		}
		agency = a
		return nil
	})
	return agency, err
}

// ListAgencies returns one page of agencies ordered by agency id.
func (s *Service) ListAgencies(ctx context.Context, page pagination.Page) (pagination.Result[*models.Agency], error) {
	page = page.Normalize()
	var result pagination.Result[*models.Agency]
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		items, err := s.store.List(ctx, page.After, page.Size+1)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agencies")
		}
		result = pagination.Take(items, page.Size, func(a *models.Agency) string { return a.AgencyID })
		return nil
	})
	return result, err
}

// RevokeAgency retires an agency. Revocation is terminal. The GOV_AGENCY
// role is withdrawn from the agency's address only when issuance granted it
// and no other ACTIVE agency shares the address.
func (s *Service) RevokeAgency(ctx context.Context, agencyID string) (*models.Agency, ledger.Receipt, error) {
	var agency *models.Agency
	receipt, err := s.ledger.Submit(ctx, "gov_agency.revoke", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleAdmin); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		a, err := s.store.Execute(ctx, agencyID,
			func(a *models.Agency) error {
				if err := a.CanRevoke(); err != nil {
					return dErrors.New(dErrors.CodeInvalidState, "agency is already revoked: "+agencyID)
				}
				return nil
			},
			func(a *models.Agency) {
				a.ApplyRevocation(now)
			},
		)
		if err != nil {
			return wrapAgencyErr(err, agencyID)
		}
		siblings, err := s.store.FindByAddress(ctx, a.Address)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agencies at address")
		}
		if a.WithdrawsRole(siblings) {
			if err := s.roles.Unassign(ctx, scope, accessmodels.RoleGovAgency, a.Address); err != nil {
				return err
			}
		}
		e := audit.New(audit.ContractGovAgency, audit.EventAgencyRevoked, a.AgencyID)
		e.Subject = a.Address
		ledger.Emit(ctx, e)
		s.logAudit(ctx, string(audit.EventAgencyRevoked), "agency_id", a.AgencyID)
		agency = a
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return agency, receipt, nil
}

// RequireActiveAuthority fails unless agencyID names an ACTIVE agency.
func (s *Service) RequireActiveAuthority(ctx context.Context, agencyID string) error {
	a, err := s.GetAgency(ctx, agencyID)
	if err != nil {
		return err
	}
	if !a.IsActive() {
		return dErrors.New(dErrors.CodeInvalidState, "authority is not active: "+agencyID)
	}
	return nil
}

// GrantRole grants role in the agency registry's scope.
func (s *Service) GrantRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "gov_agency.grant_role", func(ctx context.Context) error {
		if err := s.pause.RequireNotPaused(ctx); err != nil {
			return err
		}
		_, err := s.roles.Grant(ctx, scope, role, principal)
		return err
	})
}

// RevokeRole revokes role in the agency registry's scope.
func (s *Service) RevokeRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "gov_agency.revoke_role", func(ctx context.Context) error {
		if err := s.pause.RequireNotPaused(ctx); err != nil {
			return err
		}
		_, err := s.roles.Revoke(ctx, scope, role, principal)
		return err
	})
}

func (s *Service) HasRole(ctx context.Context, role accessmodels.Role, principal id.Address) (bool, error) {
	return s.roles.HasRole(ctx, scope, role, principal)
}

// guard applies the pause switch, then the role check, in that order.
func (s *Service) guard(ctx context.Context, role accessmodels.Role) error {
	if err := s.pause.RequireNotPaused(ctx); err != nil {
		return err
	}
	return s.roles.Require(ctx, scope, role, requestcontext.Caller(ctx))
}

func wrapAgencyErr(err error, agencyID string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "agency not found: "+agencyID)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agency")
	}
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
