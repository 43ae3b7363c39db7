package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"trafficreg/internal/credential/token"
	"trafficreg/internal/vehicle/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
	txcontext "trafficreg/pkg/platform/tx"
)

// PostgresStore persists registrations in the vehicle_registrations table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const vehicleColumns = `token_id, plate_no, address_user, identity_no, vehicle_model, chassis_no, color_plate, status`

func (s *PostgresStore) Create(ctx context.Context, v *models.VehicleRegistration) (id.TokenID, error) {
	q := txcontext.Pick(ctx, s.db)
	var next int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(token_id), 0) + 1 FROM vehicle_registrations`).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocate vehicle token: %w", err)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO vehicle_registrations (`+vehicleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, next, v.VehiclePlateNo, v.AddressUser, v.IdentityNo, v.VehicleModel, v.ChassisNo,
		int16(v.ColorPlate), int16(v.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, sentinel.ErrAlreadyUsed
		}
		return 0, fmt.Errorf("insert vehicle: %w", err)
	}
	return id.TokenID(next), nil //nolint:gosec // token ids are positive
}

func (s *PostgresStore) FindByPlateNo(ctx context.Context, plateNo string) (*models.VehicleRegistration, error) {
	return scanVehicle(txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicle_registrations WHERE plate_no = $1`, plateNo))
}

func (s *PostgresStore) FindByTokenID(ctx context.Context, tokenID id.TokenID) (*models.VehicleRegistration, error) {
	return scanVehicle(txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicle_registrations WHERE token_id = $1`, int64(tokenID))) //nolint:gosec // token ids fit in int64
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holder id.Address) ([]*models.VehicleRegistration, error) {
	return s.query(ctx,
		`SELECT `+vehicleColumns+` FROM vehicle_registrations WHERE address_user = $1 ORDER BY token_id`, holder)
}

func (s *PostgresStore) List(ctx context.Context, after id.TokenID, limit int) ([]*models.VehicleRegistration, error) {
	if limit <= 0 {
		return s.query(ctx,
			`SELECT `+vehicleColumns+` FROM vehicle_registrations WHERE token_id > $1 ORDER BY token_id`, int64(after)) //nolint:gosec // token ids fit in int64
	}
	return s.query(ctx,
		`SELECT `+vehicleColumns+` FROM vehicle_registrations WHERE token_id > $1 ORDER BY token_id LIMIT $2`, int64(after), limit) //nolint:gosec // token ids fit in int64
}

func (s *PostgresStore) Execute(ctx context.Context, plateNo string, validate func(*models.VehicleRegistration) error, mutate func(*models.VehicleRegistration)) (*models.VehicleRegistration, error) {
	q := txcontext.Pick(ctx, s.db)
	v, err := scanVehicle(q.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicle_registrations WHERE plate_no = $1 FOR UPDATE`, plateNo))
	if err != nil {
		return nil, err
	}
	if err := validate(v); err != nil {
		return nil, err
	}
	tokenID := v.TokenID
	mutate(v)
	v.TokenID = tokenID
	v.VehiclePlateNo = plateNo
	_, err = q.ExecContext(ctx, `
		UPDATE vehicle_registrations SET address_user = $2, identity_no = $3, status = $4 WHERE plate_no = $1
	`, plateNo, v.AddressUser, v.IdentityNo, int16(v.Status))
	if err != nil {
		return nil, fmt.Errorf("update vehicle: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (token.Stats, error) {
	var emitted, holders int64
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(token_id), 0), COUNT(DISTINCT address_user) FROM vehicle_registrations`).Scan(&emitted, &holders)
	if err != nil {
		return token.Stats{}, fmt.Errorf("vehicle token stats: %w", err)
	}
	return token.Stats{EmittedCount: uint64(emitted), HoldersCount: uint64(holders)}, nil //nolint:gosec // counts are non-negative
}

func (s *PostgresStore) BalanceOf(ctx context.Context, holder id.Address) (uint64, error) {
	var n int64
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicle_registrations WHERE address_user = $1`, holder).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("vehicle balance: %w", err)
	}
	return uint64(n), nil //nolint:gosec // counts are non-negative
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.VehicleRegistration, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()
	var out []*models.VehicleRegistration
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row scanner) (*models.VehicleRegistration, error) {
	var (
		v       models.VehicleRegistration
		tokenID int64
		color   int16
		status  int16
	)
	err := row.Scan(&tokenID, &v.VehiclePlateNo, &v.AddressUser, &v.IdentityNo, &v.VehicleModel, &v.ChassisNo, &color, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan vehicle: %w", err)
	}
	v.TokenID = id.TokenID(tokenID)         //nolint:gosec // token ids are positive
	v.ColorPlate = models.ColorPlate(color) //nolint:gosec // colour column holds 1..4
	v.Status, err = id.StatusFromOrdinal(uint8(status)) //nolint:gosec // status column is constrained to 0..3
	if err != nil {
		return nil, fmt.Errorf("decode vehicle status: %w", err)
	}
	return &v, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
