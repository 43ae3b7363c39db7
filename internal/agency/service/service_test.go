package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accessmodels "trafficreg/internal/access/models"
	accessservice "trafficreg/internal/access/service"
	accessstore "trafficreg/internal/access/store"
	"trafficreg/internal/agency/models"
	"trafficreg/internal/agency/store"
	"trafficreg/internal/ledger"
	id "trafficreg/pkg/domain"
	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit"
	auditmemory "trafficreg/pkg/platform/audit/store/memory"
	"trafficreg/pkg/platform/pagination"
	"trafficreg/pkg/requestcontext"
)

type switchGuard struct{ paused bool }

func (g *switchGuard) RequireNotPaused(context.Context) error {
	if g.paused {
		return dErrors.New(dErrors.CodeUnauthorized, "system is paused")
	}
	return nil
}

var (
	deployer   = id.DeriveAddress("deployer")
	stranger   = id.DeriveAddress("stranger")
	agencyAddr = id.DeriveAddress("agency-1")
	issuedAt   = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc   *Service
	roles *accessservice.Service
	guard *switchGuard
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	roleStore := accessstore.NewInMemory()
	agencies := store.NewInMemory()
	l := ledger.New(ledger.NewMemoryBackend(roleStore, agencies), auditmemory.NewInMemoryStore(),
		ledger.WithClock(func() time.Time { return issuedAt }))
	roles := accessservice.New(roleStore, l)
	_, err := roles.Initialize(context.Background(), accessmodels.ScopeGovAgency, deployer)
	require.NoError(t, err)

	guard := &switchGuard{}
	svc := New(agencies, roles, guard, l)
	ctx := requestcontext.WithCaller(context.Background(), deployer)
	_, err = svc.GrantRole(ctx, accessmodels.RoleGovAgency, deployer)
	require.NoError(t, err)
	return &fixture{svc: svc, roles: roles, guard: guard, ctx: ctx}
}

func input(agencyID string) models.IssueAgencyInput {
	return models.IssueAgencyInput{
		Address:  agencyAddr,
		AgencyID: agencyID,
		Name:     "Cuc CSGT",
		Location: "Ha Noi",
	}
}

func TestIssueAgency(t *testing.T) {
	t.Run("round trip returns the input plus assigned fields", func(t *testing.T) {
		f := newFixture(t)
		in := input("AG-01")
		issued, receipt, err := f.svc.IssueAgency(f.ctx, in)
		require.NoError(t, err)

		got, err := f.svc.GetAgency(context.Background(), in.AgencyID)
		require.NoError(t, err)
		assert.Equal(t, issued, got)
		assert.Equal(t, in.Address, got.Address)
		assert.Equal(t, in.AgencyID, got.AgencyID)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.Location, got.Location)
		assert.Equal(t, id.StatusActive, got.Status)
		assert.Equal(t, accessmodels.RoleGovAgency, got.Role)
		assert.Equal(t, issuedAt, got.IssuedAt)

		var issuedEvent *audit.Event
		for i := range receipt.Events {
			if receipt.Events[i].Action == string(audit.EventAgencyIssued) {
				issuedEvent = &receipt.Events[i]
			}
		}
		require.NotNil(t, issuedEvent)
		assert.Equal(t, agencyAddr, issuedEvent.Subject)
		assert.Equal(t, "AG-01", issuedEvent.Key)
		assert.Equal(t, strconv.FormatInt(issuedAt.Unix(), 10), issuedEvent.Attributes["timestamp"])
	})

	t.Run("issued agency receives GOV_AGENCY role", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.IssueAgency(f.ctx, input("AG-01"))
		require.NoError(t, err)
		has, err := f.svc.HasRole(context.Background(), accessmodels.RoleGovAgency, agencyAddr)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("duplicate id fails AlreadyExists and keeps the first record", func(t *testing.T) {
		f := newFixture(t)
		first, _, err := f.svc.IssueAgency(f.ctx, input("AG-01"))
		require.NoError(t, err)

		dup := input("AG-01")
		dup.Name = "Other"
		_, _, err = f.svc.IssueAgency(f.ctx, dup)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyExists))

		got, err := f.svc.GetAgency(context.Background(), "AG-01")
		require.NoError(t, err)
		assert.Equal(t, first, got)
	})

	t.Run("caller without GOV_AGENCY role is unauthorized", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.IssueAgency(requestcontext.WithCaller(context.Background(), stranger), input("AG-01"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("paused system rejects issuance, reads continue", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.IssueAgency(f.ctx, input("AG-01"))
		require.NoError(t, err)
		f.guard.paused = true

		_, _, err = f.svc.IssueAgency(f.ctx, input("AG-02"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		_, err = f.svc.GrantRole(f.ctx, accessmodels.RoleGovAgency, stranger)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = f.svc.GetAgency(context.Background(), "AG-01")
		assert.NoError(t, err)
	})
}

func TestGetAgency_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetAgency(context.Background(), "AG-404")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRevokeAgency(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.IssueAgency(f.ctx, input("AG-01"))
	require.NoError(t, err)

	revoked, _, err := f.svc.RevokeAgency(f.ctx, "AG-01")
	require.NoError(t, err)
	assert.Equal(t, id.StatusRevoked, revoked.Status)

	has, err := f.svc.HasRole(context.Background(), accessmodels.RoleGovAgency, agencyAddr)
	require.NoError(t, err)
	assert.False(t, has, "revocation withdraws the agency role")

	_, _, err = f.svc.RevokeAgency(f.ctx, "AG-01")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	err = f.svc.RequireActiveAuthority(context.Background(), "AG-01")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, _, err = f.svc.RevokeAgency(f.ctx, "AG-404")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, _, err = f.svc.IssueAgency(f.ctx, input("AG-01"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyExists), "revoked ids stay taken")
}

func TestRevokeAgency_RoleProvenance(t *testing.T) {
	t.Run("a role held before issuance survives revocation", func(t *testing.T) {
		f := newFixture(t)
		hq := input("AG-HQ")
		hq.Address = deployer
		issued, _, err := f.svc.IssueAgency(f.ctx, hq)
		require.NoError(t, err)
		assert.False(t, issued.RoleGranted)

		_, _, err = f.svc.RevokeAgency(f.ctx, "AG-HQ")
		require.NoError(t, err)

		has, err := f.svc.HasRole(context.Background(), accessmodels.RoleGovAgency, deployer)
		require.NoError(t, err)
		assert.True(t, has)

		next := input("AG-HQ-2")
		next.Address = deployer
		_, _, err = f.svc.IssueAgency(f.ctx, next)
		assert.NoError(t, err)
	})

	t.Run("an operator grant is not withdrawn", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.GrantRole(f.ctx, accessmodels.RoleGovAgency, agencyAddr)
		require.NoError(t, err)
		_, _, err = f.svc.IssueAgency(f.ctx, input("AG-01"))
		require.NoError(t, err)

		_, _, err = f.svc.RevokeAgency(f.ctx, "AG-01")
		require.NoError(t, err)
		has, err := f.svc.HasRole(context.Background(), accessmodels.RoleGovAgency, agencyAddr)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("the role stays while another agency at the address is active", func(t *testing.T) {
		f := newFixture(t)
		first, _, err := f.svc.IssueAgency(f.ctx, input("AG-01"))
		require.NoError(t, err)
		assert.True(t, first.RoleGranted)
		second, _, err := f.svc.IssueAgency(f.ctx, input("AG-02"))
		require.NoError(t, err)
		assert.False(t, second.RoleGranted)

		_, _, err = f.svc.RevokeAgency(f.ctx, "AG-01")
		require.NoError(t, err)
		has, err := f.svc.HasRole(context.Background(), accessmodels.RoleGovAgency, agencyAddr)
		require.NoError(t, err)
		assert.True(t, has, "AG-02 is still active at the address")

		_, _, err = f.svc.RevokeAgency(f.ctx, "AG-02")
		require.NoError(t, err)
		has, err = f.svc.HasRole(context.Background(), accessmodels.RoleGovAgency, agencyAddr)
		require.NoError(t, err)
		assert.False(t, has, "the last active agency takes the issued role with it")
	})
}

func TestListAgencies(t *testing.T) {
	f := newFixture(t)
	for _, agencyID := range []string{"AG-03", "AG-01", "AG-02"} {
		_, _, err := f.svc.IssueAgency(f.ctx, input(agencyID))
		require.NoError(t, err)
	}

	first, err := f.svc.ListAgencies(context.Background(), pagination.Page{Size: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "AG-01", first.Items[0].AgencyID)
	assert.Equal(t, "AG-02", first.NextAfter)

	second, err := f.svc.ListAgencies(context.Background(), pagination.Page{Size: 2, After: first.NextAfter})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "AG-03", second.Items[0].AgencyID)
	assert.Empty(t, second.NextAfter)
}
