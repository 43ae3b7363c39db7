//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accessmodels "trafficreg/internal/access/models"
	"trafficreg/pkg/testutil/containers"
)

func TestPostgresLicenseStore(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	suite.Run(t, &LicenseStoreSuite{newStore: func() licenseStore {
		ctx := context.Background()
		if err := pg.TruncateTables(ctx, "driver_licenses", "agencies"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		_, err := pg.DB.ExecContext(ctx, `
			INSERT INTO agencies (address, agency_id, name, location, role, status, issued_at)
			VALUES ($1, 'AG-01', 'Agency', 'Hanoi', $2, 0, $3)
		`, alice, accessmodels.RoleGovAgency.Hex(), time.Now())
		if err != nil {
			t.Fatalf("seed agency: %v", err)
		}
		return NewPostgres(pg.DB)
	}})
}
