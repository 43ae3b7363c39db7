package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	accessmodels "trafficreg/internal/access/models"
	"trafficreg/internal/agency/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
	txcontext "trafficreg/pkg/platform/tx"
)

// PostgresStore persists agencies in the agencies table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const agencyColumns = `address, agency_id, name, location, role, status, role_granted, issued_at, revoked_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Agency) error {
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO agencies (`+agencyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.Address, a.AgencyID, a.Name, a.Location, a.Role.Hex(), int16(a.Status), a.RoleGranted, a.IssuedAt, a.RevokedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert agency: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, agencyID string) (*models.Agency, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE agency_id = $1`, agencyID)
	return scanAgency(row)
}

func (s *PostgresStore) List(ctx context.Context, after string, limit int) ([]*models.Agency, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE agency_id > $1 ORDER BY agency_id LIMIT $2`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	return collectAgencies(rows)
}

func (s *PostgresStore) FindByAddress(ctx context.Context, addr id.Address) ([]*models.Agency, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE address = $1 ORDER BY agency_id`, addr)
	if err != nil {
		return nil, fmt.Errorf("find agencies by address: %w", err)
	}
	return collectAgencies(rows)
}

func collectAgencies(rows *sql.Rows) ([]*models.Agency, error) {
	defer rows.Close()
	var out []*models.Agency
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agencies: %w", err)
	}
	return out, nil
}

// Execute locks the row FOR UPDATE, validates, mutates and writes back.
func (s *PostgresStore) Execute(ctx context.Context, agencyID string, validate func(*models.Agency) error, mutate func(*models.Agency)) (*models.Agency, error) {
	q := txcontext.Pick(ctx, s.db)
	a, err := scanAgency(q.QueryRowContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE agency_id = $1 FOR UPDATE`, agencyID))
	if err != nil {
		return nil, err
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)
	_, err = q.ExecContext(ctx, `
		UPDATE agencies SET name = $2, location = $3, status = $4, revoked_at = $5 WHERE agency_id = $1
	`, a.AgencyID, a.Name, a.Location, int16(a.Status), a.RevokedAt)
	if err != nil {
		return nil, fmt.Errorf("update agency: %w", err)
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgency(row scanner) (*models.Agency, error) {
	var (
		a      models.Agency
		role   string
		status int16
	)
	err := row.Scan(&a.Address, &a.AgencyID, &a.Name, &a.Location, &role, &status, &a.RoleGranted, &a.IssuedAt, &a.RevokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan agency: %w", err)
	}
	parsedRole, err := accessmodels.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("decode agency role: %w", err)
	}
	a.Role = parsedRole
	a.Status, err = id.StatusFromOrdinal(uint8(status)) //nolint:gosec // status column is constrained to 0..3
	if err != nil {
		return nil, fmt.Errorf("decode agency status: %w", err)
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
