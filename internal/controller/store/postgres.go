package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trafficreg/internal/controller/models"
	txcontext "trafficreg/pkg/platform/tx"
)

// PostgresStore keeps the controller record in a single-row table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load returns the zero record until the controller is first written.
func (s *PostgresStore) Load(ctx context.Context) (models.Record, error) {
	var r models.Record
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT gov_agency, vehicle_registration, offence_and_renewal, driver_license, paused
		FROM controller_record WHERE id = 1
	`).Scan(&r.GovAgency, &r.VehicleRegistration, &r.OffenceAndRenewal, &r.DriverLicense, &r.Paused)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, nil
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("load controller record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Save(ctx context.Context, r models.Record) error {
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO controller_record (id, gov_agency, vehicle_registration, offence_and_renewal, driver_license, paused)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			gov_agency = EXCLUDED.gov_agency,
			vehicle_registration = EXCLUDED.vehicle_registration,
			offence_and_renewal = EXCLUDED.offence_and_renewal,
			driver_license = EXCLUDED.driver_license,
			paused = EXCLUDED.paused
	`, r.GovAgency, r.VehicleRegistration, r.OffenceAndRenewal, r.DriverLicense, r.Paused)
	if err != nil {
		return fmt.Errorf("save controller record: %w", err)
	}
	return nil
}
