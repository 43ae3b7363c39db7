package models

import (
	"strings"
	"time"

	accessmodels "trafficreg/internal/access/models"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
)

const maxFieldLength = 128

// Agency is an issuing authority. Its AgencyID is the AuthorityID that
// driver licenses reference.
//
// Invariants:
//   - AgencyID is unique for the lifetime of the registry
//   - Status is ACTIVE or REVOKED; REVOKED is terminal
//   - IssuedAt is immutable after construction
//   - RoleGranted records that issuance, not an administrator, gave Address
//     the GOV_AGENCY role
type Agency struct {
	Address     id.Address        `json:"address"`
	AgencyID    string            `json:"agency_id"`
	Name        string            `json:"name"`
	Location    string            `json:"location"`
	Role        accessmodels.Role `json:"role"`
	Status      id.Status         `json:"status"`
	RoleGranted bool              `json:"role_granted"`
	IssuedAt    time.Time         `json:"issued_at"`
	RevokedAt   *time.Time        `json:"revoked_at,omitempty"`
}

// IssueAgencyInput carries the caller-supplied agency fields.
type IssueAgencyInput struct {
	Address  id.Address `json:"address"`
	AgencyID string     `json:"agency_id"`
	Name     string     `json:"name"`
	Location string     `json:"location"`
}

func (in *IssueAgencyInput) Normalize() {
	in.AgencyID = strings.TrimSpace(in.AgencyID)
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
}

func (in IssueAgencyInput) Validate() error {
	switch {
	case in.Address.IsZero():
		return dErrors.New(dErrors.CodeValidation, "agency address is required")
	case in.AgencyID == "":
		return dErrors.New(dErrors.CodeValidation, "agency id is required")
	case len(in.AgencyID) > maxFieldLength:
		return dErrors.New(dErrors.CodeValidation, "agency id is too long")
	case in.Name == "":
		return dErrors.New(dErrors.CodeValidation, "agency name is required")
	case len(in.Name) > maxFieldLength || len(in.Location) > maxFieldLength:
		return dErrors.New(dErrors.CodeValidation, "agency name or location is too long")
	}
	return nil
}

// NewAgency builds an ACTIVE agency holding the GOV_AGENCY role.
func NewAgency(in IssueAgencyInput, now time.Time) (*Agency, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &Agency{
		Address:  in.Address,
		AgencyID: in.AgencyID,
		Name:     in.Name,
		Location: in.Location,
		Role:     accessmodels.RoleGovAgency,
		Status:   id.StatusActive,
		IssuedAt: now,
	}, nil
}

func (a *Agency) IsActive() bool {
	return a.Status == id.StatusActive
}

// CanRevoke checks the revocation transition.
func (a *Agency) CanRevoke() error {
	if a.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "agency is already revoked")
	}
	return nil
}

// WithdrawsRole reports whether revoking a should take the GOV_AGENCY role
// from its address. siblings are every agency registered at that address,
// a included. The role goes only when issuance granted it and no other
// agency at the address is still ACTIVE.
func (a *Agency) WithdrawsRole(siblings []*Agency) bool {
	granted := a.RoleGranted
	for _, other := range siblings {
		if other.Address != a.Address {
			continue
		}
		if other.AgencyID != a.AgencyID && other.IsActive() {
			return false
		}
		granted = granted || other.RoleGranted
	}
	return granted
}

// ApplyRevocation marks the agency revoked. Call CanRevoke first.
func (a *Agency) ApplyRevocation(now time.Time) {
	a.Status = id.StatusRevoked
	a.RevokedAt = &now
}

// Clone returns a deep copy.
func (a *Agency) Clone() *Agency {
	c := *a
	if a.RevokedAt != nil {
		t := *a.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}
