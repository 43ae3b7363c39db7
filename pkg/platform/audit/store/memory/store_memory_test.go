package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "trafficreg/pkg/platform/audit"
)

func TestInMemoryStore_ListByKeyAndRecent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.Append(ctx, audit.New(audit.ContractDriverLicense, audit.EventLicenseIssued, "DL-1")))
	require.NoError(t, store.Append(ctx, audit.New(audit.ContractVehicle, audit.EventVehicleRegistrationIssued, "DL-1")))
	require.NoError(t, store.Append(ctx, audit.New(audit.ContractDriverLicense, audit.EventLicenseRevoked, "DL-1")))

	byKey, err := store.ListByKey(ctx, audit.ContractDriverLicense, "DL-1")
	require.NoError(t, err)
	require.Len(t, byKey, 2)
	assert.Equal(t, string(audit.EventLicenseIssued), byKey[0].Action)
	assert.Equal(t, string(audit.EventLicenseRevoked), byKey[1].Action)

	recent, err := store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, string(audit.EventLicenseRevoked), recent[0].Action)
}

func TestInMemoryStore_OutboxFlags(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Append(ctx, audit.New(audit.ContractController, audit.EventPaused, "")))
	require.NoError(t, store.Append(ctx, audit.New(audit.ContractController, audit.EventUnpaused, "")))

	pending, err := store.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.NotEqual(t, uuid.Nil, pending[0].ID)

	require.NoError(t, store.MarkPublished(ctx, []uuid.UUID{pending[0].ID}))
	pending, err = store.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, string(audit.EventUnpaused), pending[0].Action)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
