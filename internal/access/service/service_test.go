package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficreg/internal/access/models"
	"trafficreg/internal/access/store"
	"trafficreg/internal/ledger"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	auditmemory "trafficreg/pkg/platform/audit/store/memory"
	"trafficreg/pkg/requestcontext"
)

var (
	admin    = id.DeriveAddress("admin")
	stranger = id.DeriveAddress("stranger")
	agency   = id.DeriveAddress("agency")
)

func newService(t *testing.T) *Service {
	t.Helper()
	roles := store.NewInMemory()
	l := ledger.New(ledger.NewMemoryBackend(roles), auditmemory.NewInMemoryStore())
	svc := New(roles, l)
	_, err := svc.Initialize(context.Background(), models.ScopeGovAgency, admin)
	require.NoError(t, err)
	return svc
}

func as(caller id.Address) context.Context {
	return requestcontext.WithCaller(context.Background(), caller)
}

func TestInitialize(t *testing.T) {
	svc := newService(t)

	t.Run("admin holds the admin role", func(t *testing.T) {
		has, err := svc.HasRole(context.Background(), models.ScopeGovAgency, models.RoleAdmin, admin)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("second initialization fails", func(t *testing.T) {
		_, err := svc.Initialize(context.Background(), models.ScopeGovAgency, stranger)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	t.Run("other scopes stay uninitialized", func(t *testing.T) {
		has, err := svc.HasRole(context.Background(), models.ScopeVehicle, models.RoleAdmin, admin)
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestGrant(t *testing.T) {
	t.Run("admin grants and an event is emitted", func(t *testing.T) {
		svc := newService(t)
		receipt, err := svc.Grant(as(admin), models.ScopeGovAgency, models.RoleGovAgency, agency)
		require.NoError(t, err)
		require.Len(t, receipt.Events, 1)
		assert.Equal(t, string(audit.EventRoleGranted), receipt.Events[0].Action)
		assert.Equal(t, agency, receipt.Events[0].Subject)

		require.NoError(t, svc.Require(context.Background(), models.ScopeGovAgency, models.RoleGovAgency, agency))
	})

	t.Run("repeated grant emits nothing", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Grant(as(admin), models.ScopeGovAgency, models.RoleGovAgency, agency)
		require.NoError(t, err)
		receipt, err := svc.Grant(as(admin), models.ScopeGovAgency, models.RoleGovAgency, agency)
		require.NoError(t, err)
		assert.Empty(t, receipt.Events)
	})

	t.Run("non-admin is unauthorized", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Grant(as(stranger), models.ScopeGovAgency, models.RoleGovAgency, stranger)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

		has, err := svc.HasRole(context.Background(), models.ScopeGovAgency, models.RoleGovAgency, stranger)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("grant does not propagate across scopes", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Grant(as(admin), models.ScopeGovAgency, models.RoleGovAgency, agency)
		require.NoError(t, err)
		err = svc.Require(context.Background(), models.ScopeDriverLicense, models.RoleGovAgency, agency)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("unknown role and zero principal are rejected", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Grant(as(admin), models.ScopeGovAgency, models.RoleFromName("MINTER_ROLE"), agency)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = svc.Grant(as(admin), models.ScopeGovAgency, models.RoleGovAgency, id.ZeroAddress)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestRevoke(t *testing.T) {
	svc := newService(t)
	_, err := svc.Grant(as(admin), models.ScopeGovAgency, models.RoleGovAgency, agency)
	require.NoError(t, err)

	_, err = svc.Revoke(as(stranger), models.ScopeGovAgency, models.RoleGovAgency, agency)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	receipt, err := svc.Revoke(as(admin), models.ScopeGovAgency, models.RoleGovAgency, agency)
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, string(audit.EventRoleRevoked), receipt.Events[0].Action)

	has, err := svc.HasRole(context.Background(), models.ScopeGovAgency, models.RoleGovAgency, agency)
	require.NoError(t, err)
	assert.False(t, has)

	members, err := svc.Members(context.Background(), models.ScopeGovAgency, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []id.Address{admin}, members)
}
