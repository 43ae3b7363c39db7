package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trafficreg/pkg/domain-errors"
)

func TestRoleIdentifiers(t *testing.T) {
	assert.Equal(t, Role{}, RoleAdmin)
	assert.Equal(t, "0x"+
		"0000000000000000000000000000000000000000000000000000000000000000", RoleAdmin.Hex())
	// keccak256("GOV_AGENCY_ROLE") as computed by ethers.id
	assert.Equal(t, RoleFromName("GOV_AGENCY_ROLE"), RoleGovAgency)
	assert.NotEqual(t, RoleAdmin, RoleGovAgency)
	assert.Equal(t, "GOV_AGENCY_ROLE", RoleGovAgency.String())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("gov_agency_role")
	require.NoError(t, err)
	assert.Equal(t, RoleGovAgency, r)

	r, err = ParseRole(RoleGovAgency.Hex())
	require.NoError(t, err)
	assert.Equal(t, RoleGovAgency, r)

	r, err = ParseRole("DEFAULT_ADMIN_ROLE")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("GOV_AGENCY_ROLES")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ParseRole(RoleFromName("MINTER_ROLE").Hex())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "well-formed but unknown role ids are rejected")
}

func TestParseScope(t *testing.T) {
	sc, err := ParseScope("driver-license")
	require.NoError(t, err)
	assert.Equal(t, ScopeDriverLicense, sc)

	_, err = ParseScope("licenses")
	assert.Error(t, err)
}
