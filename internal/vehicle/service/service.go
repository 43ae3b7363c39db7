package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	accessmodels "trafficreg/internal/access/models"
	"trafficreg/internal/credential/token"
	"trafficreg/internal/credential/validity"
	"trafficreg/internal/ledger"
	"trafficreg/internal/vehicle/models"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	"trafficreg/pkg/platform/pagination"
	"trafficreg/pkg/platform/sentinel"
	"trafficreg/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, v *models.VehicleRegistration) (id.TokenID, error)
	FindByPlateNo(ctx context.Context, plateNo string) (*models.VehicleRegistration, error)
	FindByTokenID(ctx context.Context, tokenID id.TokenID) (*models.VehicleRegistration, error)
	ListByHolder(ctx context.Context, holder id.Address) ([]*models.VehicleRegistration, error)
	List(ctx context.Context, after id.TokenID, limit int) ([]*models.VehicleRegistration, error)
	Execute(ctx context.Context, plateNo string, validate func(*models.VehicleRegistration) error, mutate func(*models.VehicleRegistration)) (*models.VehicleRegistration, error)
	Stats(ctx context.Context) (token.Stats, error)
	BalanceOf(ctx context.Context, holder id.Address) (uint64, error)
}

type PauseGuard interface {
	RequireNotPaused(ctx context.Context) error
}

type Roles interface {
	Require(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) error
	HasRole(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (bool, error)
	Grant(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
	Revoke(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
}

const scope = accessmodels.ScopeVehicle

// Service is the vehicle registration registry.
type Service struct {
	store  Store
	roles  Roles
	pause  PauseGuard
	ledger *ledger.Ledger
	cache  validity.Cache
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithValidityCache(cache validity.Cache) Option {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func New(store Store, roles Roles, pause PauseGuard, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{store: store, roles: roles, pause: pause, ledger: l, cache: validity.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterVehicle issues an ACTIVE registration under the next token id.
func (s *Service) RegisterVehicle(ctx context.Context, in models.RegisterVehicleInput) (*models.VehicleRegistration, ledger.Receipt, error) {
	var registered *models.VehicleRegistration
	receipt, err := s.ledger.Submit(ctx, "vehicle.register", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		v, err := models.NewVehicleRegistration(in)
		if err != nil {
			return err
		}
		tokenID, err := s.store.Create(ctx, v)
		if err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyExists, "vehicle already registered: "+v.VehiclePlateNo)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register vehicle")
		}
		v.TokenID = tokenID

		e := audit.New(audit.ContractVehicle, audit.EventVehicleRegistrationIssued, v.VehiclePlateNo)
		e.Subject = v.AddressUser
		e.TokenID = tokenID
		ledger.Emit(ctx, e.With("color_plate", v.ColorPlate.String()))
		s.invalidate(ctx, tokenID)
		s.logAudit(ctx, string(audit.EventVehicleRegistrationIssued),
			"plate_no", v.VehiclePlateNo, "token_id", tokenID.String())
		registered = v
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return registered, receipt, nil
}

func (s *Service) GetVehicle(ctx context.Context, plateNo string) (*models.VehicleRegistration, error) {
	plateNo = normalizePlate(plateNo)
	var vehicle *models.VehicleRegistration
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		v, err := s.store.FindByPlateNo(ctx, plateNo)
		if err != nil {
			return wrapVehicleErr(err, plateNo)
		}
		vehicle = v
		return nil
	})
	return vehicle, err
}

func (s *Service) GetVehiclesByHolder(ctx context.Context, holder id.Address) ([]*models.VehicleRegistration, error) {
	var out []*models.VehicleRegistration
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.ListByHolder(ctx, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list holder vehicles")
		}
		return nil
	})
	if out == nil {
		out = []*models.VehicleRegistration{}
	}
	return out, err
}

func (s *Service) ListVehicles(ctx context.Context, page pagination.Page) (pagination.Result[*models.VehicleRegistration], error) {
	page = page.Normalize()
	var result pagination.Result[*models.VehicleRegistration]
	var after id.TokenID
	if page.After != "" {
		parsed, err := id.ParseTokenID(page.After)
		if err != nil {
			return result, dErrors.New(dErrors.CodeValidation, "invalid page cursor")
		}
		after = parsed
	}
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		items, err := s.store.List(ctx, after, page.Size+1)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vehicles")
		}
		result = pagination.Take(items, page.Size, func(v *models.VehicleRegistration) string { return v.TokenID.String() })
		return nil
	})
	return result, err
}

func (s *Service) GetAllVehicles(ctx context.Context) ([]*models.VehicleRegistration, error) {
	var out []*models.VehicleRegistration
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.List(ctx, 0, 0)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vehicles")
		}
		return nil
	})
	return out, err
}

// UpdateVehicle changes the registered owner and identity number.
func (s *Service) UpdateVehicle(ctx context.Context, plateNo string, in models.UpdateVehicleInput) (*models.VehicleRegistration, ledger.Receipt, error) {
	plateNo = normalizePlate(plateNo)
	var updated *models.VehicleRegistration
	receipt, err := s.ledger.Submit(ctx, "vehicle.update", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}
		v, err := s.store.Execute(ctx, plateNo,
			func(v *models.VehicleRegistration) error { return v.CanMutate() },
			func(v *models.VehicleRegistration) { v.ApplyUpdate(in) },
		)
		if err != nil {
			return wrapVehicleErr(err, plateNo)
		}
		e := audit.New(audit.ContractVehicle, audit.EventVehicleUpdated, v.VehiclePlateNo)
		e.Subject = v.AddressUser
		e.TokenID = v.TokenID
		ledger.Emit(ctx, e)
		s.invalidate(ctx, v.TokenID)
		s.logAudit(ctx, string(audit.EventVehicleUpdated), "plate_no", v.VehiclePlateNo)
		updated = v
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return updated, receipt, nil
}

// RevokeVehicle revokes a registration. Revocation is terminal.
func (s *Service) RevokeVehicle(ctx context.Context, plateNo string) (*models.VehicleRegistration, ledger.Receipt, error) {
	plateNo = normalizePlate(plateNo)
	var revoked *models.VehicleRegistration
	receipt, err := s.ledger.Submit(ctx, "vehicle.revoke", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		v, err := s.store.Execute(ctx, plateNo,
			func(v *models.VehicleRegistration) error { return v.CanMutate() },
			func(v *models.VehicleRegistration) { v.ApplyRevocation() },
		)
		if err != nil {
			return wrapVehicleErr(err, plateNo)
		}
		e := audit.New(audit.ContractVehicle, audit.EventVehicleRevoked, v.VehiclePlateNo)
		e.Subject = v.AddressUser
		e.TokenID = v.TokenID
		ledger.Emit(ctx, e)
		s.invalidate(ctx, v.TokenID)
		s.logAudit(ctx, string(audit.EventVehicleRevoked), "plate_no", v.VehiclePlateNo)
		revoked = v
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return revoked, receipt, nil
}

func (s *Service) Stats(ctx context.Context) (token.Stats, error) {
	var stats token.Stats
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		stats, err = s.store.Stats(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read token stats")
		}
		return nil
	})
	return stats, err
}

func (s *Service) EmittedCount(ctx context.Context) (uint64, error) {
	stats, err := s.Stats(ctx)
	return stats.EmittedCount, err
}

func (s *Service) HoldersCount(ctx context.Context) (uint64, error) {
	stats, err := s.Stats(ctx)
	return stats.HoldersCount, err
}

func (s *Service) BalanceOf(ctx context.Context, holder id.Address) (uint64, error) {
	var n uint64
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.store.BalanceOf(ctx, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
		}
		return nil
	})
	return n, err
}

func (s *Service) OwnerOf(ctx context.Context, tokenID id.TokenID) (id.Address, error) {
	v, err := s.vehicleByToken(ctx, tokenID)
	if err != nil {
		return id.ZeroAddress, err
	}
	return v.AddressUser, nil
}

// IsValid reports whether the token's registration is ACTIVE.
func (s *Service) IsValid(ctx context.Context, tokenID id.TokenID) (bool, error) {
	now := requestcontext.Now(ctx)
	key := cacheKey(tokenID)
	if validUntil, ok := s.cache.Get(ctx, key); ok {
		return validity.Valid(validUntil, now), nil
	}
	var validUntil time.Time
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		v, err := s.store.FindByTokenID(ctx, tokenID)
		if err != nil {
			return wrapVehicleErr(err, "token "+tokenID.String())
		}
		if v.IsValid() {
			validUntil = validity.Never
		}
		// Set under the read lock: a commit's invalidation cannot land
		// between the read and the Set.
		if !ledger.InOperation(ctx) {
			s.cache.Set(ctx, key, validUntil)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return validity.Valid(validUntil, now), nil
}

func (s *Service) vehicleByToken(ctx context.Context, tokenID id.TokenID) (*models.VehicleRegistration, error) {
	var vehicle *models.VehicleRegistration
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		v, err := s.store.FindByTokenID(ctx, tokenID)
		if err != nil {
			return wrapVehicleErr(err, "token "+tokenID.String())
		}
		vehicle = v
		return nil
	})
	return vehicle, err
}

func (s *Service) GrantRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "vehicle.grant_role", func(ctx context.Context) error {
		if err := s.pause.RequireNotPaused(ctx); err != nil {
			return err
		}
		_, err := s.roles.Grant(ctx, scope, role, principal)
		return err
	})
}

func (s *Service) RevokeRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "vehicle.revoke_role", func(ctx context.Context) error {
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

func (s *Service) guard(ctx context.Context, role accessmodels.Role) error {
	if err := s.pause.RequireNotPaused(ctx); err != nil {
		return err
	}
	return s.roles.Require(ctx, scope, role, requestcontext.Caller(ctx))
}

func (s *Service) invalidate(ctx context.Context, tokenID id.TokenID) {
	ledger.AfterCommit(ctx, func(ctx context.Context) {
		s.cache.Invalidate(ctx, cacheKey(tokenID))
	})
}

func normalizePlate(plateNo string) string {
	return strings.ToUpper(strings.TrimSpace(plateNo))
}

func cacheKey(tokenID id.TokenID) string {
	return "vehicle:" + tokenID.String()
}

func wrapVehicleErr(err error, key string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "vehicle registration not found: "+key)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vehicle registration")
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
