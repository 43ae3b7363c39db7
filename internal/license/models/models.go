package models

import (
	"strings"
	"time"

	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	strutil "trafficreg/pkg/platform/strings"
)

// MaxPoint is the demerit balance a license is issued with and reset to.
const MaxPoint = 12

const maxFieldLength = 128

// reservedLicenseNos are path segments the HTTP API routes under /licenses,
// so a license numbered after one could not be addressed.
var reservedLicenseNos = map[string]bool{
	"tokens":       true,
	"reset-points": true,
	"statuses":     true,
}

// DriverLicense is a non-transferable driving credential.
//
// Invariants:
//   - LicenseNo is unique for the lifetime of the registry
//   - TokenID is assigned once at issuance and never reused
//   - 0 <= Point <= MaxPoint
//   - REVOKED is terminal
type DriverLicense struct {
	TokenID       id.TokenID `json:"token_id"`
	LicenseNo     string     `json:"license_no"`
	HolderAddress id.Address `json:"holder_address"`
	HolderID      string     `json:"holder_id"`
	Name          string     `json:"name"`
	LicenseType   string     `json:"license_type"`
	IssueDate     time.Time  `json:"issue_date"`
	ExpiryDate    time.Time  `json:"expiry_date"`
	AuthorityID   string     `json:"authority_id"`
	Point         int        `json:"point"`
	Status        id.Status  `json:"status"`
}

// IssueLicenseInput carries the issuer-supplied license fields. A zero
// Point issues the license with MaxPoint.
type IssueLicenseInput struct {
	LicenseNo     string     `json:"license_no"`
	HolderAddress id.Address `json:"holder_address"`
	HolderID      string     `json:"holder_id"`
	Name          string     `json:"name"`
	LicenseType   string     `json:"license_type"`
	IssueDate     time.Time  `json:"issue_date"`
	ExpiryDate    time.Time  `json:"expiry_date"`
	AuthorityID   string     `json:"authority_id"`
	Point         int        `json:"point"`
}

func (in *IssueLicenseInput) Normalize() {
	in.LicenseNo = strings.TrimSpace(in.LicenseNo)
	in.HolderID = strings.TrimSpace(in.HolderID)
	in.Name = strings.TrimSpace(in.Name)
	in.LicenseType = strutil.Code(in.LicenseType)
	in.AuthorityID = strings.TrimSpace(in.AuthorityID)
	if in.Point == 0 {
		in.Point = MaxPoint
	}
}

func (in IssueLicenseInput) Validate() error {
	switch {
	case in.LicenseNo == "":
		return dErrors.New(dErrors.CodeValidation, "license number is required")
	case len(in.LicenseNo) > maxFieldLength:
		return dErrors.New(dErrors.CodeValidation, "license number is too long")
	case reservedLicenseNos[in.LicenseNo]:
		return dErrors.New(dErrors.CodeValidation, "license number is reserved: "+in.LicenseNo)
	case in.HolderAddress.IsZero():
		return dErrors.New(dErrors.CodeValidation, "holder address is required")
	case in.HolderID == "" || in.Name == "":
		return dErrors.New(dErrors.CodeValidation, "holder id and name are required")
	case len(in.HolderID) > maxFieldLength || len(in.Name) > maxFieldLength:
		return dErrors.New(dErrors.CodeValidation, "holder id or name is too long")
	case in.LicenseType == "":
		return dErrors.New(dErrors.CodeValidation, "license type is required")
	case in.AuthorityID == "":
		return dErrors.New(dErrors.CodeValidation, "authority id is required")
	case in.IssueDate.IsZero() || !in.ExpiryDate.After(in.IssueDate):
		return dErrors.New(dErrors.CodeValidation, "expiry date must be after issue date")
	}
	return validatePoint(in.Point)
}

// NewDriverLicense builds an ACTIVE license. The token id is assigned by
// the store.
func NewDriverLicense(in IssueLicenseInput) (*DriverLicense, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &DriverLicense{
		LicenseNo:     in.LicenseNo,
		HolderAddress: in.HolderAddress,
		HolderID:      in.HolderID,
		Name:          in.Name,
		LicenseType:   in.LicenseType,
		IssueDate:     in.IssueDate.UTC(),
		ExpiryDate:    in.ExpiryDate.UTC(),
		AuthorityID:   in.AuthorityID,
		Point:         in.Point,
		Status:        id.StatusActive,
	}, nil
}

// UpdateLicenseInput overwrites only the fields that are set.
type UpdateLicenseInput struct {
	HolderAddress *id.Address `json:"holder_address,omitempty"`
	HolderID      *string     `json:"holder_id,omitempty"`
	Name          *string     `json:"name,omitempty"`
	LicenseType   *string     `json:"license_type,omitempty"`
	ExpiryDate    *time.Time  `json:"expiry_date,omitempty"`
	Status        *id.Status  `json:"status,omitempty"`
	Point         *int        `json:"point,omitempty"`
}

func (in UpdateLicenseInput) IsEmpty() bool {
	return in.HolderAddress == nil && in.HolderID == nil && in.Name == nil &&
		in.LicenseType == nil && in.ExpiryDate == nil && in.Status == nil && in.Point == nil
}

func (in UpdateLicenseInput) Validate() error {
	if in.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "update sets no fields")
	}
	if in.HolderAddress != nil && in.HolderAddress.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "holder address cannot be cleared")
	}
	for _, f := range []*string{in.HolderID, in.Name, in.LicenseType} {
		if f != nil && (strings.TrimSpace(*f) == "" || len(*f) > maxFieldLength) {
			return dErrors.New(dErrors.CodeValidation, "holder id, name and license type must be 1-128 characters")
		}
	}
	if in.Status != nil {
		if !in.Status.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "unknown status")
		}
		if *in.Status == id.StatusRevoked {
			return dErrors.New(dErrors.CodeValidation, "use revoke to revoke a license")
		}
	}
	if in.Point != nil {
		return validatePoint(*in.Point)
	}
	return nil
}

// StandingUpdate is the point, status and expiry mutation reserved for the
// offence engine.
type StandingUpdate struct {
	Point      *int       `json:"point,omitempty"`
	Status     *id.Status `json:"status,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

func (u StandingUpdate) Validate() error {
	if u.Point == nil && u.Status == nil && u.ExpiryDate == nil {
		return dErrors.New(dErrors.CodeValidation, "standing update sets no fields")
	}
	if u.Status != nil && (!u.Status.IsValid() || *u.Status == id.StatusRevoked) {
		return dErrors.New(dErrors.CodeValidation, "standing cannot revoke a license")
	}
	if u.Point != nil {
		return validatePoint(*u.Point)
	}
	return nil
}

func validatePoint(point int) error {
	if point < 0 || point > MaxPoint {
		return dErrors.New(dErrors.CodeValidation, "point must be between 0 and 12")
	}
	return nil
}

// CanMutate rejects any change to a revoked license.
func (l *DriverLicense) CanMutate() error {
	if l.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "license is revoked: "+l.LicenseNo)
	}
	return nil
}

// CanUpdate checks an update against the current record. Call after
// UpdateLicenseInput.Validate.
func (l *DriverLicense) CanUpdate(in UpdateLicenseInput) error {
	if err := l.CanMutate(); err != nil {
		return err
	}
	if in.ExpiryDate != nil && !in.ExpiryDate.After(l.IssueDate) {
		return dErrors.New(dErrors.CodeValidation, "expiry date must be after issue date")
	}
	return nil
}

func (l *DriverLicense) ApplyUpdate(in UpdateLicenseInput) {
	if in.HolderAddress != nil {
		l.HolderAddress = *in.HolderAddress
	}
	if in.HolderID != nil {
		l.HolderID = strings.TrimSpace(*in.HolderID)
	}
	if in.Name != nil {
		l.Name = strings.TrimSpace(*in.Name)
	}
	if in.LicenseType != nil {
		l.LicenseType = strutil.Code(*in.LicenseType)
	}
	if in.ExpiryDate != nil {
		l.ExpiryDate = in.ExpiryDate.UTC()
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	if in.Point != nil {
		l.Point = *in.Point
	}
}

func (l *DriverLicense) CanApplyStanding(u StandingUpdate) error {
	if err := l.CanMutate(); err != nil {
		return err
	}
	if u.ExpiryDate != nil && !u.ExpiryDate.After(l.IssueDate) {
		return dErrors.New(dErrors.CodeValidation, "expiry date must be after issue date")
	}
	return nil
}

func (l *DriverLicense) ApplyStanding(u StandingUpdate) {
	if u.Point != nil {
		l.Point = *u.Point
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.ExpiryDate != nil {
		l.ExpiryDate = u.ExpiryDate.UTC()
	}
}

func (l *DriverLicense) CanRevoke() error {
	return l.CanMutate()
}

func (l *DriverLicense) ApplyRevocation() {
	l.Status = id.StatusRevoked
}

// ValidUntil is the instant the license stops being valid: its expiry when
// ACTIVE, the zero time otherwise.
func (l *DriverLicense) ValidUntil() time.Time {
	if l.Status != id.StatusActive {
		return time.Time{}
	}
	return l.ExpiryDate
}

// IsValidAt reports whether the license is ACTIVE and unexpired at now.
func (l *DriverLicense) IsValidAt(now time.Time) bool {
	return now.Before(l.ValidUntil())
}

// Clone returns a copy; DriverLicense holds no references.
func (l *DriverLicense) Clone() *DriverLicense {
	c := *l
	return &c
}
