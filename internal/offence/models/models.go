package models

import (
	"strings"
	"time"

	licensemodels "trafficreg/internal/license/models"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	strutil "trafficreg/pkg/platform/strings"
)

const maxDescriptionLength = 512

// RenewRule extends the expiry of licenses of one type by BonusTime years.
// At most one rule per license type is ACTIVE; revoked rules are kept.
type RenewRule struct {
	ID          int64      `json:"id"`
	LicenseType string     `json:"license_type"`
	BonusTime   int        `json:"bonus_time"`
	Description string     `json:"description"`
	Status      id.Status  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

type AddRenewRuleInput struct {
	LicenseType string `json:"license_type"`
	BonusTime   int    `json:"bonus_time"`
	Description string `json:"description"`
}

func (in *AddRenewRuleInput) Normalize() {
	in.LicenseType = strutil.Code(in.LicenseType)
	in.Description = strings.TrimSpace(in.Description)
}

func (in AddRenewRuleInput) Validate() error {
	switch {
	case in.LicenseType == "":
		return dErrors.New(dErrors.CodeValidation, "license type is required")
	case in.BonusTime < 1:
		return dErrors.New(dErrors.CodeValidation, "bonus time must be at least one year")
	case len(in.Description) > maxDescriptionLength:
		return dErrors.New(dErrors.CodeValidation, "description must be at most 512 characters")
	}
	return nil
}

// NewRenewRule builds an ACTIVE rule. The id is assigned by the store.
func NewRenewRule(in AddRenewRuleInput, now time.Time) (*RenewRule, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &RenewRule{
		LicenseType: in.LicenseType,
		BonusTime:   in.BonusTime,
		Description: in.Description,
		Status:      id.StatusActive,
		CreatedAt:   now.UTC(),
	}, nil
}

func (r *RenewRule) IsActive() bool {
	return r.Status == id.StatusActive
}

func (r *RenewRule) ApplyRevocation(now time.Time) {
	at := now.UTC()
	r.Status = id.StatusRevoked
	r.RevokedAt = &at
}

// Extend returns expiry pushed out by the rule's bonus.
func (r *RenewRule) Extend(expiry time.Time) time.Time {
	return expiry.AddDate(r.BonusTime, 0, 0)
}

func (r *RenewRule) Clone() *RenewRule {
	c := *r
	if r.RevokedAt != nil {
		at := *r.RevokedAt
		c.RevokedAt = &at
	}
	return &c
}

// Offence is a recorded traffic violation. It is not stored; its fields
// travel on the PointDeducted event.
type Offence struct {
	ErrorID     string    `json:"error_id"`
	Point       int       `json:"point"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Location    string    `json:"location"`
}

func (o Offence) Validate() error {
	switch {
	case strings.TrimSpace(o.ErrorID) == "":
		return dErrors.New(dErrors.CodeValidation, "offence error id is required")
	case o.Point < 1:
		return dErrors.New(dErrors.CodeValidation, "offence must deduct at least one point")
	case len(o.Description) > maxDescriptionLength:
		return dErrors.New(dErrors.CodeValidation, "description must be at most 512 characters")
	}
	return nil
}

// Deduct subtracts the offence from point, floored at zero.
func (o Offence) Deduct(point int) int {
	return max(point-o.Point, 0)
}

// DeriveStatus recomputes a license status from its points and expiry.
// REVOKED is never left; expiry wins over suspension.
func DeriveStatus(l *licensemodels.DriverLicense, now time.Time) id.Status {
	switch {
	case l.Status == id.StatusRevoked:
		return id.StatusRevoked
	case !now.Before(l.ExpiryDate):
		return id.StatusExpired
	case l.Point == 0:
		return id.StatusSuspended
	default:
		return id.StatusActive
	}
}

// SweepResult summarises one UpdateAllLicenseStatuses run.
type SweepResult struct {
	Scanned     int               `json:"scanned"`
	Transitions map[id.Status]int `json:"transitions"`
	Changed     []string          `json:"changed"`
}

func (r SweepResult) ChangedCount() int {
	return len(r.Changed)
}

// ResetResult summarises one ResetAllPointsToMax run.
type ResetResult struct {
	Scanned int      `json:"scanned"`
	Reset   []string `json:"reset"`
}
