package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	accessmodels "trafficreg/internal/access/models"
	"trafficreg/internal/ledger"
	licensemodels "trafficreg/internal/license/models"
	"trafficreg/internal/offence/metrics"
	"trafficreg/internal/offence/models"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	"trafficreg/pkg/platform/sentinel"
	strutil "trafficreg/pkg/platform/strings"
	"trafficreg/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.RenewRule) (int64, error)
	FindActive(ctx context.Context, licenseType string) (*models.RenewRule, error)
	FindLatest(ctx context.Context, licenseType string) (*models.RenewRule, error)
	List(ctx context.Context) ([]*models.RenewRule, error)
	RevokeActive(ctx context.Context, licenseType string, at time.Time) (*models.RenewRule, error)
}

// Licenses is the part of the driver license registry the engine drives.
type Licenses interface {
	GetLicense(ctx context.Context, licenseNo string) (*licensemodels.DriverLicense, error)
	GetAllLicenses(ctx context.Context) ([]*licensemodels.DriverLicense, error)
	UpdateStanding(ctx context.Context, licenseNo string, u licensemodels.StandingUpdate) (*licensemodels.DriverLicense, ledger.Receipt, error)
}

// LicenseResolver returns the license registry currently bound in the
// controller.
type LicenseResolver func(ctx context.Context) (Licenses, error)

type PauseGuard interface {
	RequireNotPaused(ctx context.Context) error
}

type Roles interface {
	Require(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) error
	HasRole(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (bool, error)
	Grant(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
	Revoke(ctx context.Context, scope accessmodels.Scope, role accessmodels.Role, principal id.Address) (ledger.Receipt, error)
}

const scope = accessmodels.ScopeOffence

// Service is the offence and renewal engine. It owns the renew rule table
// and changes license points, status and expiry only through the license
// registry's standing update, calling it as its own address.
type Service struct {
	store    Store
	roles    Roles
	pause    PauseGuard
	licenses LicenseResolver
	self     id.Address
	ledger   *ledger.Ledger
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

// New creates the engine deployed at self. The controller must bind self as
// its OffenceAndRenewal peer for standing updates to be accepted.
func New(store Store, roles Roles, pause PauseGuard, licenses LicenseResolver, self id.Address, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{store: store, roles: roles, pause: pause, licenses: licenses, self: self, ledger: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Address() id.Address {
	return s.self
}

// AddRenewRule activates a renew rule for a license type.
func (s *Service) AddRenewRule(ctx context.Context, in models.AddRenewRuleInput) (*models.RenewRule, ledger.Receipt, error) {
	var added *models.RenewRule
	receipt, err := s.ledger.Submit(ctx, "offence.add_renew_rule", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		r, err := models.NewRenewRule(in, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		ruleID, err := s.store.Create(ctx, r)
		if err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeRuleAlreadyActive, "Renew rule already ACTIVE: "+r.LicenseType)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add renew rule")
		}
		r.ID = ruleID
		ledger.Emit(ctx, audit.New(audit.ContractOffence, audit.EventAddRenewRule, r.LicenseType).
			With("bonus_time", strconv.Itoa(r.BonusTime)))
		s.logAudit(ctx, string(audit.EventAddRenewRule), "license_type", r.LicenseType, "bonus_time", r.BonusTime)
		added = r
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return added, receipt, nil
}

// GetRenewRule returns the most recent rule for licenseType, ACTIVE or not.
func (s *Service) GetRenewRule(ctx context.Context, licenseType string) (*models.RenewRule, error) {
	licenseType = normalizeType(licenseType)
	var rule *models.RenewRule
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		r, err := s.store.FindLatest(ctx, licenseType)
		if err != nil {
			return wrapRuleErr(err, licenseType)
		}
		rule = r
		return nil
	})
	return rule, err
}

func (s *Service) GetAllRenewRules(ctx context.Context) ([]*models.RenewRule, error) {
	var rules []*models.RenewRule
	err := s.ledger.View(ctx, func(ctx context.Context) error {
		var err error
		rules, err = s.store.List(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list renew rules")
		}
		return nil
	})
	if rules == nil {
		rules = []*models.RenewRule{}
	}
	return rules, err
}

// RevokeRenewRule retires the ACTIVE rule for licenseType.
func (s *Service) RevokeRenewRule(ctx context.Context, licenseType string) (*models.RenewRule, ledger.Receipt, error) {
	licenseType = normalizeType(licenseType)
	var revoked *models.RenewRule
	receipt, err := s.ledger.Submit(ctx, "offence.revoke_renew_rule", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		r, err := s.store.RevokeActive(ctx, licenseType, requestcontext.Now(ctx))
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no ACTIVE renew rule for license type "+licenseType)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke renew rule")
		}
		ledger.Emit(ctx, audit.New(audit.ContractOffence, audit.EventRenewRuleRevoked, r.LicenseType))
		s.logAudit(ctx, string(audit.EventRenewRuleRevoked), "license_type", r.LicenseType)
		revoked = r
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return revoked, receipt, nil
}

// DeductPoint records an offence against an ACTIVE license. Points floor at
// zero and a license with no points left is SUSPENDED.
func (s *Service) DeductPoint(ctx context.Context, licenseNo string, offence models.Offence) (*licensemodels.DriverLicense, ledger.Receipt, error) {
	var updated *licensemodels.DriverLicense
	var suspended bool
	receipt, err := s.ledger.Submit(ctx, "offence.deduct_point", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		if err := offence.Validate(); err != nil {
			return err
		}
		licenses, err := s.resolveLicenses(ctx)
		if err != nil {
			return err
		}
		l, err := licenses.GetLicense(ctx, licenseNo)
		if err != nil {
			return err
		}
		if l.Status != id.StatusActive {
			return dErrors.New(dErrors.CodeInvalidState, "license is "+l.Status.String()+": "+licenseNo)
		}
		remaining := offence.Deduct(l.Point)
		u := licensemodels.StandingUpdate{Point: &remaining}
		if remaining == 0 {
			status := id.StatusSuspended
			u.Status = &status
			suspended = true
		}
		l, _, err = licenses.UpdateStanding(requestcontext.WithCaller(ctx, s.self), licenseNo, u)
		if err != nil {
			return err
		}

		occurred := offence.Timestamp
		if occurred.IsZero() {
			occurred = requestcontext.Now(ctx)
		}
		e := audit.New(audit.ContractOffence, audit.EventPointDeducted, licenseNo)
		e.Subject = l.HolderAddress
		e.TokenID = l.TokenID
		ledger.Emit(ctx, e.
			With("error_id", offence.ErrorID).
			With("point", strconv.Itoa(offence.Point)).
			With("remaining", strconv.Itoa(remaining)).
			With("description", offence.Description).
			With("location", offence.Location).
			With("timestamp", strconv.FormatInt(occurred.Unix(), 10)))
		s.logAudit(ctx, string(audit.EventPointDeducted),
			"license_no", licenseNo, "error_id", offence.ErrorID, "remaining", remaining)
		updated = l
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	s.metrics.ObserveDeduction(offence.Point, suspended)
	return updated, receipt, nil
}

// RenewLicense extends a license's expiry by the ACTIVE rule for its type
// and re-derives its status.
func (s *Service) RenewLicense(ctx context.Context, licenseNo string) (*licensemodels.DriverLicense, ledger.Receipt, error) {
	var renewed *licensemodels.DriverLicense
	receipt, err := s.ledger.Submit(ctx, "offence.renew_license", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		licenses, err := s.resolveLicenses(ctx)
		if err != nil {
			return err
		}
		l, err := licenses.GetLicense(ctx, licenseNo)
		if err != nil {
			return err
		}
		if err := l.CanMutate(); err != nil {
			return err
		}
		rule, err := s.store.FindActive(ctx, normalizeType(l.LicenseType))
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvalidState, "no ACTIVE renew rule for license type "+l.LicenseType)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load renew rule")
		}

		previous := l.ExpiryDate
		next := l.Clone()
		next.ExpiryDate = rule.Extend(previous)
		status := models.DeriveStatus(next, requestcontext.Now(ctx))
		l, _, err = licenses.UpdateStanding(requestcontext.WithCaller(ctx, s.self), licenseNo,
			licensemodels.StandingUpdate{ExpiryDate: &next.ExpiryDate, Status: &status})
		if err != nil {
			return err
		}

		e := audit.New(audit.ContractOffence, audit.EventLicenseRenewed, licenseNo)
		e.Subject = l.HolderAddress
		e.TokenID = l.TokenID
		ledger.Emit(ctx, e.
			With("bonus_time", strconv.Itoa(rule.BonusTime)).
			With("previous_expiry", strconv.FormatInt(previous.Unix(), 10)).
			With("expiry_date", strconv.FormatInt(l.ExpiryDate.Unix(), 10)).
			With("status", l.Status.String()))
		s.logAudit(ctx, string(audit.EventLicenseRenewed), "license_no", licenseNo, "status", l.Status.String())
		renewed = l
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	s.metrics.IncrementRenewals()
	return renewed, receipt, nil
}

// ResetPointsToMax restores one license to MaxPoint. Status is left to the
// next sweep.
func (s *Service) ResetPointsToMax(ctx context.Context, licenseNo string) (*licensemodels.DriverLicense, ledger.Receipt, error) {
	var reset *licensemodels.DriverLicense
	receipt, err := s.ledger.Submit(ctx, "offence.reset_points", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		licenses, err := s.resolveLicenses(ctx)
		if err != nil {
			return err
		}
		l, err := s.resetOne(ctx, licenses, licenseNo)
		if err != nil {
			return err
		}
		reset = l
		return nil
	})
	if err != nil {
		return nil, ledger.Receipt{}, err
	}
	return reset, receipt, nil
}

// ResetAllPointsToMax restores every non-revoked license below MaxPoint.
// It is an administrative batch and requires the admin role.
func (s *Service) ResetAllPointsToMax(ctx context.Context) (models.ResetResult, ledger.Receipt, error) {
	result := models.ResetResult{Reset: []string{}}
	receipt, err := s.ledger.Submit(ctx, "offence.reset_all_points", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleAdmin); err != nil {
			return err
		}
		licenses, err := s.resolveLicenses(ctx)
		if err != nil {
			return err
		}
		all, err := licenses.GetAllLicenses(ctx)
		if err != nil {
			return err
		}
		result.Scanned = len(all)
		for _, l := range all {
			if l.Status == id.StatusRevoked || l.Point == licensemodels.MaxPoint {
				continue
			}
			if _, err := s.resetOne(ctx, licenses, l.LicenseNo); err != nil {
				return err
			}
			result.Reset = append(result.Reset, l.LicenseNo)
		}
		return nil
	})
	if err != nil {
		return models.ResetResult{}, ledger.Receipt{}, err
	}
	return result, receipt, nil
}

func (s *Service) resetOne(ctx context.Context, licenses Licenses, licenseNo string) (*licensemodels.DriverLicense, error) {
	point := licensemodels.MaxPoint
	l, _, err := licenses.UpdateStanding(requestcontext.WithCaller(ctx, s.self), licenseNo,
		licensemodels.StandingUpdate{Point: &point})
	if err != nil {
		return nil, err
	}
	e := audit.New(audit.ContractOffence, audit.EventPointsReset, licenseNo)
	e.Subject = l.HolderAddress
	e.TokenID = l.TokenID
	ledger.Emit(ctx, e.With("point", strconv.Itoa(point)))
	s.logAudit(ctx, string(audit.EventPointsReset), "license_no", licenseNo)
	return l, nil
}

// UpdateAllLicenseStatuses re-derives the status of every license at the
// operation time. Running it twice without other changes is a no-op the
// second time.
func (s *Service) UpdateAllLicenseStatuses(ctx context.Context) (models.SweepResult, ledger.Receipt, error) {
	start := time.Now()
	result := models.SweepResult{Transitions: map[id.Status]int{}, Changed: []string{}}
	receipt, err := s.ledger.Submit(ctx, "offence.update_all_statuses", func(ctx context.Context) error {
		if err := s.guard(ctx, accessmodels.RoleGovAgency); err != nil {
			return err
		}
		licenses, err := s.resolveLicenses(ctx)
		if err != nil {
			return err
		}
		all, err := licenses.GetAllLicenses(ctx)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		result.Scanned = len(all)
		for _, l := range all {
			status := models.DeriveStatus(l, now)
			if status == l.Status {
				continue
			}
			updated, _, err := licenses.UpdateStanding(requestcontext.WithCaller(ctx, s.self), l.LicenseNo,
				licensemodels.StandingUpdate{Status: &status})
			if err != nil {
				return err
			}
			e := audit.New(audit.ContractOffence, audit.EventLicenseStatusUpdated, l.LicenseNo)
			e.Subject = updated.HolderAddress
			e.TokenID = updated.TokenID
			ledger.Emit(ctx, e.With("from", l.Status.String()).With("to", status.String()))
			result.Transitions[status]++
			result.Changed = append(result.Changed, l.LicenseNo)
		}
		s.logAudit(ctx, string(audit.EventLicenseStatusUpdated), "scanned", result.Scanned, "changed", result.ChangedCount())
		return nil
	})
	if err != nil {
		return models.SweepResult{}, ledger.Receipt{}, err
	}
	transitions := make(map[string]int, len(result.Transitions))
	for status, n := range result.Transitions {
		transitions[status.String()] = n
	}
	s.metrics.ObserveSweep(transitions, time.Since(start))
	return result, receipt, nil
}

func (s *Service) GrantRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "offence.grant_role", func(ctx context.Context) error {
		if err := s.pause.RequireNotPaused(ctx); err != nil {
			return err
		}
		_, err := s.roles.Grant(ctx, scope, role, principal)
		return err
	})
}

func (s *Service) RevokeRole(ctx context.Context, role accessmodels.Role, principal id.Address) (ledger.Receipt, error) {
	return s.ledger.Submit(ctx, "offence.revoke_role", func(ctx context.Context) error {
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

func (s *Service) resolveLicenses(ctx context.Context) (Licenses, error) {
	if s.licenses == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "no driver license registry is bound")
	}
	return s.licenses(ctx)
}

func normalizeType(licenseType string) string {
	return strutil.Code(licenseType)
}

func wrapRuleErr(err error, licenseType string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "renew rule not found: "+licenseType)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load renew rule")
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
