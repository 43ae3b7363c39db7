package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "trafficreg/pkg/domain"
)

func TestInMemoryLicenseStore(t *testing.T) {
	suite.Run(t, &LicenseStoreSuite{newStore: func() licenseStore { return NewInMemory() }})
}

func TestInMemory_SnapshotRestoresBookAndIndices(t *testing.T) {
	s := NewInMemory()
	ctx := t.Context()
	l, err := modelsFixture("DL-1", alice)
	require.NoError(t, err)
	_, err = s.Create(ctx, l)
	require.NoError(t, err)

	restore := s.Snapshot()
	l2, err := modelsFixture("DL-2", bob)
	require.NoError(t, err)
	_, err = s.Create(ctx, l2)
	require.NoError(t, err)
	restore()

	_, err = s.FindByTokenID(ctx, 2)
	assert.Error(t, err)
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.EmittedCount)

	l3, err := modelsFixture("DL-3", bob)
	require.NoError(t, err)
	tokenID, err := s.Create(ctx, l3)
	require.NoError(t, err)
	assert.Equal(t, id.TokenID(2), tokenID, "restored book reissues the reverted id")
}
