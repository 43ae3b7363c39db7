//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"trafficreg/pkg/testutil/containers"
)

func TestPostgresVehicleStore(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	suite.Run(t, &VehicleStoreSuite{newStore: func() vehicleStore {
		if err := pg.TruncateTables(context.Background(), "vehicle_registrations"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return NewPostgres(pg.DB)
	}})
}
