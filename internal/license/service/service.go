package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	accessmodels "trafficreg/internal/access/models"
	"trafficreg/internal/credential/token"
	"trafficreg/internal/credential/validity"
	"trafficreg/internal/ledger"
	"trafficreg/internal/license/metrics"
	"trafficreg/internal/license/models"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	"trafficreg/pkg/platform/pagination"
	"trafficreg/pkg/platform/sentinel"
	"trafficreg/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, l *models.DriverLicense) (id.TokenID, error)
	FindByLicenseNo(ctx context.Context, licenseNo string) (*models.DriverLicense, error)
	FindByTokenID(ctx context.Context, tokenID id.TokenID) (*models.DriverLicense, error)
	ListByHolder(ctx context.Context, holder id.Address) ([]*models.DriverLicense, error)
	List(ctx context.Context, after id.TokenID, limit int) ([]*models.DriverLicense, error)
	Execute(ctx context.Context, licenseNo string, validate func(*models.DriverLicense) error, mutate func(*models.DriverLicense)) (*models.DriverLicense, error)
	Stats(ctx context.Context) (token.Stats, error)
	BalanceOf(ctx context.Context, holder id.Address) (uint64, error)
}

// Controller is the part of the controller registry the license registry
// consults: the pause switch and the offence engine binding.
type Controller interface {
	RequireNotPaused(ctx context.Context) error
	IsOffenceAndRenewal(ctx context.Context, addr id.Address) (bool, error)
}

// Authorities checks issuing authorities.
type Authorities interface {
	RequireActiveAuthority(ctx context.Context, agencyID string) error
}

// AuthorityResolver returns the agency registry currently bound in the
// controller.
type AuthorityResolver func(ctx context.Context) (Authorities, error)

// Roles is the role registry as the license registry uses it.
type Roles interface {
	Require(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) error
	HasRole(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (bool, error)
	Grant(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
	Revoke(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
}

const scope = accessmodels.ScopeDriverLicense

// Service is the driver license registry.
type Service struct {
	store       Store
	roles       Roles
	controller  Controller
	authorities AuthorityResolver
	ledger      *ledger.Ledger
	cache       validity.Cache
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithValidityCache caches IsValid answers. Defaults to no caching.
func WithValidityCache(cache validity.Cache) Option {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func New(store Store, roles Roles, controller Controller, authorities AuthorityResolver, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		roles:       roles,
		controller:  controller,
		authorities: authorities,
		ledger:      l,
		cache:       validity.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueLicense issues an ACTIVE license under the next token id. The
// authority must be an ACTIVE agency of the agency registry bound in the
// controller.
func (s *Service) IssueLicense(ctx context.Context, in models.IssueLicenseInput) (*models.DriverLicense, ledger.Receipt, error) {
	var issued *models.DriverLicense
	receipt, err := s.ledger.Submit(ctx, "driver_license.issue", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		l, err := models.NewDriverLicense(in)
		if err != nil {
			return err
		}
		if err := s.requireAuthority(ctx, l.AuthorityID); err != nil {
			return err
		}
		tokenID, err := s.store.Create(ctx, l)
		if err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyExists, "license already exists: "+l.LicenseNo)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create license")
		}
		l.TokenID = tokenID

		e := audit.New(audit.ContractDriverLicense, audit.EventLicenseIssued, l.LicenseNo)
		e.Subject = l.HolderAddress
		e.TokenID = tokenID
		ledger.Emit(ctx, e.With("issue_date", strconv.FormatInt(l.IssueDate.Unix(), 10)))
		s.invalidate(ctx, tokenID)
		s.logAudit(ctx, string(audit.EventLicenseIssued),
			"license_no", l.LicenseNo, "token_id", tokenID.String(), "holder", l.HolderAddress.Hex())
		issued = l
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	s.metrics.IncrementIssued()
	return issued, receipt, nil
}

func (s *Service) requireAuthority(ctx context.Context, agencyID string) error {
	if s.authorities == nil {
		return dErrors.New(dErrors.CodeInvalidState, "no agency registry is bound")
	}
	authorities, err := s.authorities(ctx)
	if err != nil {
		return err
	}
	return authorities.RequireActiveAuthority(ctx, agencyID)
}

func (s *Service) GetLicense(ctx context.Context, licenseNo string) (*models.DriverLicense, error) {
	var license *models.DriverLicense
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		l, err := s.store.FindByLicenseNo(ctx, licenseNo)
		if err != nil {
			return wrapLicenseErr(err, licenseNo)
		}
		license = l
		return nil
	})
	return license, err
}

// GetLicensesByHolder returns the holder's licenses ordered by token id.
// The result is empty, not an error, for holders without licenses.
func (s *Service) GetLicensesByHolder(ctx context.Context, holder id.Address) ([]*models.DriverLicense, error) {
	var out []*models.DriverLicense
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.ListByHolder(ctx, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list holder licenses")
		}
		return nil
	})
	if out == nil {
		out = []*models.DriverLicense{}
	}
	return out, err
}

// ListLicenses returns one page of licenses ordered by token id. The cursor
// is the last token id of the previous page.
func (s *Service) ListLicenses(ctx context.Context, page pagination.Page) (pagination.Result[*models.DriverLicense], error) {
	page = page.Normalize()
	var result pagination.Result[*models.DriverLicense]
	after, err := parseCursor(page.After)
	if err != nil {
		return result, err
	}
	err = s.ledger.View(ctx, func(ctx context.Context) error {
		items, err := s.store.List(ctx, after, page.Size+1)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list licenses")
		}
		result = pagination.Take(items, page.Size, func(l *models.DriverLicense) string { return l.TokenID.String() })
		return nil
	})
	return result, err
}

// GetAllLicenses scans the whole registry. Prefer ListLicenses outside
// batch jobs.
func (s *Service) GetAllLicenses(ctx context.Context) ([]*models.DriverLicense, error) {
	var out []*models.DriverLicense
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.List(ctx, 0, 0)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list licenses")
		}
		return nil
	})
	return out, err
}

// UpdateLicense overwrites the fields set in in. Revoked licenses cannot
// be updated.
func (s *Service) UpdateLicense(ctx context.Context, licenseNo string, in models.UpdateLicenseInput) (*models.DriverLicense, ledger.Receipt, error) {
	var updated *models.DriverLicense
	receipt, err := s.ledger.Submit(ctx, "driver_license.update", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}
		l, err := s.store.Execute(ctx, licenseNo,
			func(l *models.DriverLicense) error { return l.CanUpdate(in) },
			func(l *models.DriverLicense) { l.ApplyUpdate(in) },
		)
		if err != nil {
			return wrapLicenseErr(err, licenseNo)
		}
		e := audit.New(audit.ContractDriverLicense, audit.EventLicenseUpdated, l.LicenseNo)
		e.Subject = l.HolderAddress
		e.TokenID = l.TokenID
		ledger.Emit(ctx, e.With("status", l.Status.String()).With("point", strconv.Itoa(l.Point)))
		s.invalidate(ctx, l.TokenID)
		s.logAudit(ctx, string(audit.EventLicenseUpdated), "license_no", l.LicenseNo)
		updated = l
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return updated, receipt, nil
}

// RevokeLicense revokes a license. Revocation is terminal.
func (s *Service) RevokeLicense(ctx context.Context, licenseNo string) (*models.DriverLicense, ledger.Receipt, error) {
	var revoked *models.DriverLicense
	receipt, err := s.ledger.Submit(ctx, "driver_license.revoke", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		l, err := s.store.Execute(ctx, licenseNo,
			func(l *models.DriverLicense) error { return l.CanRevoke() },
			func(l *models.DriverLicense) { l.ApplyRevocation() },
		)
		if err != nil {
			return wrapLicenseErr(err, licenseNo)
		}
		e := audit.New(audit.ContractDriverLicense, audit.EventLicenseRevoked, l.LicenseNo)
		e.Subject = l.HolderAddress
		e.TokenID = l.TokenID
		ledger.Emit(ctx, e)
		s.invalidate(ctx, l.TokenID)
		s.logAudit(ctx, string(audit.EventLicenseRevoked), "license_no", l.LicenseNo)
		revoked = l
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	s.metrics.IncrementRevoked()
	return revoked, receipt, nil
}

// UpdateStanding applies a point, status or expiry change on behalf of the
// offence engine. The caller must be the address bound as OffenceAndRenewal
// in the controller.
func (s *Service) UpdateStanding(ctx context.Context, licenseNo string, u models.StandingUpdate) (*models.DriverLicense, ledger.Receipt, error) {
	var updated *models.DriverLicense
	receipt, err := s.ledger.Submit(ctx, "driver_license.update_standing", func(ctx context.Context) error {
		if err := s.controller.RequireNotPaused(ctx); err != nil {
			return err
		}
		caller := requestcontext.Caller(ctx)
		ok, err := s.controller.IsOffenceAndRenewal(ctx, caller)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "account "+caller.Hex()+" is not the bound offence engine")
		}
		if err := u.Validate(); err != nil {
			return err
		}
		l, err := s.store.Execute(ctx, licenseNo,
			func(l *models.DriverLicense) error { return l.CanApplyStanding(u) },
			func(l *models.DriverLicense) { l.ApplyStanding(u) },
		)
		if err != nil {
			return wrapLicenseErr(err, licenseNo)
		}
		e := audit.New(audit.ContractDriverLicense, audit.EventLicenseStandingUpdated, l.LicenseNo)
		e.Subject = l.HolderAddress
		e.TokenID = l.TokenID
		ledger.Emit(ctx, e.
			With("point", strconv.Itoa(l.Point)).
			With("status", l.Status.String()).
			With("expiry_date", strconv.FormatInt(l.ExpiryDate.Unix(), 10)))
		s.invalidate(ctx, l.TokenID)
		updated = l
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	s.metrics.ObserveStanding(updated.Status.String())
	return updated, receipt, nil
}

func (s *Service) EmittedCount(ctx context.Context) (uint64, error) {
	stats, err := s.Stats(ctx)
	return stats.EmittedCount, err
}

func (s *Service) HoldersCount(ctx context.Context) (uint64, error) {
	stats, err := s.Stats(ctx)
	return stats.HoldersCount, err
}

// Stats returns both token counters from one snapshot.
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

// BalanceOf counts the tokens held by holder, revoked ones included.
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
	l, err := s.licenseByToken(ctx, tokenID)
	if err != nil {
		return id.ZeroAddress, err
	}
	return l.HolderAddress, nil
}

// IsValid reports whether the token's license is ACTIVE and unexpired now.
func (s *Service) IsValid(ctx context.Context, tokenID id.TokenID) (bool, error) {
	now := requestcontext.Now(ctx)
	key := cacheKey(tokenID)
	if validUntil, ok := s.cache.Get(ctx, key); ok {
		s.metrics.ObserveValidityCheck(true)
		return validity.Valid(validUntil, now), nil
	}
	var validUntil time.Time
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		l, err := s.store.FindByTokenID(ctx, tokenID)
		if err != nil {
			return wrapLicenseErr(err, "token "+tokenID.String())
		}
		validUntil = l.ValidUntil()
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
	s.metrics.ObserveValidityCheck(false)
	return validity.Valid(validUntil, now), nil
}

func (s *Service) licenseByToken(ctx context.Context, tokenID id.TokenID) (*models.DriverLicense, error) {
	var license *models.DriverLicense
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		l, err := s.store.FindByTokenID(ctx, tokenID)
		if err != nil {
			return wrapLicenseErr(err, "token "+tokenID.String())
		}
		license = l
		return nil
	})
	return license, err
}

// GrantRole grants role in the license registry's scope.
func (s *Service) GrantRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "driver_license.grant_role", func(ctx context.Context) error {
		if err := s.controller.RequireNotPaused(ctx); err != nil {
			return err
		}
		_, err := s.roles.Grant(ctx, scope, role, principal)
		return err
	})
}

// RevokeRole revokes role in the license registry's scope.
func (s *Service) RevokeRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "driver_license.revoke_role", func(ctx context.Context) error {
		if err := s.controller.RequireNotPaused(ctx); err != nil {
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
	if err := s.controller.RequireNotPaused(ctx); err != nil {
		return err
	}
	return s.roles.Require(ctx, scope, role, requestcontext.Caller(ctx))
}

// invalidate drops the cached validity window once the operation commits.
func (s *Service) invalidate(ctx context.Context, tokenID id.TokenID) {
	ledger.AfterCommit(ctx, func(ctx context.Context) {
		s.cache.Invalidate(ctx, cacheKey(tokenID))
	})
}

func cacheKey(tokenID id.TokenID) string {
	return "license:" + tokenID.String()
}

func parseCursor(after string) (id.TokenID, error) {
	if after == "" {
		return 0, nil
	}
	tokenID, err := id.ParseTokenID(after)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid page cursor")
	}
	return tokenID, nil
}

func wrapLicenseErr(err error, key string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "license not found: "+key)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load license")
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

