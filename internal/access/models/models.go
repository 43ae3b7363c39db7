package models

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "trafficreg/pkg/domain-errors"
)

// Role is a 32-byte role identifier. Named roles are the Keccak-256 digest
// of their name; the admin role is all zeroes.
type Role [32]byte

var (
	// RoleAdmin administers every other role in its scope.
	RoleAdmin Role
	// RoleGovAgency may issue agencies and credentials.
	RoleGovAgency = RoleFromName(roleGovAgencyName)
)

const (
	roleAdminName     = "DEFAULT_ADMIN_ROLE"
	roleGovAgencyName = "GOV_AGENCY_ROLE"
)

// knownRoles is the closed set of roles the registries understand.
var knownRoles = map[Role]string{
	RoleAdmin:     roleAdminName,
	RoleGovAgency: roleGovAgencyName,
}

// RoleFromName derives a role id as keccak256(name).
func RoleFromName(name string) Role {
	var r Role
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	copy(r[:], h.Sum(nil))
	return r
}

// ParseRole accepts a role name or its 0x-prefixed id. Only enumerated
// roles are accepted so a typo cannot create an unused role silently.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for r, name := range knownRoles {
		if strings.EqualFold(s, name) {
			return r, nil
		}
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := hex.DecodeString(s[2:])
		if err == nil && len(raw) == len(Role{}) {
			var r Role
			copy(r[:], raw)
			if _, ok := knownRoles[r]; ok {
				return r, nil
			}
		}
	}
	return Role{}, dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
}

func (r Role) IsKnown() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r Role) Hex() string {
	return "0x" + hex.EncodeToString(r[:])
}

// String returns the role name, or its hex id for unknown roles.
func (r Role) String() string {
	if name, ok := knownRoles[r]; ok {
		return name
	}
	return r.Hex()
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scope is the registry instance a role assignment belongs to. Grants in
// one scope never apply in another.
type Scope string

const (
	ScopeController    Scope = "controller"
	ScopeGovAgency     Scope = "gov-agency"
	ScopeDriverLicense Scope = "driver-license"
	ScopeVehicle       Scope = "vehicle"
	ScopeOffence       Scope = "offence"
)

// Scopes lists every registry scope in deployment order.
var Scopes = []Scope{ScopeController, ScopeGovAgency, ScopeDriverLicense, ScopeVehicle, ScopeOffence}

func ParseScope(s string) (Scope, error) {
	for _, sc := range Scopes {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown scope: "+s)
}
