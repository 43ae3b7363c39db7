package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"trafficreg/internal/credential/token"
	"trafficreg/internal/license/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
	txcontext "trafficreg/pkg/platform/tx"
)

// PostgresStore persists licenses in the driver_licenses table. Token ids
// are allocated as MAX+1, which is gap free because every write runs under
// the ledger's writer lock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const licenseColumns = `token_id, license_no, holder_address, holder_id, name, license_type,
	issue_date, expiry_date, authority_id, point, status`

func (s *PostgresStore) Create(ctx context.Context, l *models.DriverLicense) (id.TokenID, error) {
	q := txcontext.Pick(ctx, s.db)
	var next int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(token_id), 0) + 1 FROM driver_licenses`).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocate license token: %w", err)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO driver_licenses (`+licenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, next, l.LicenseNo, l.HolderAddress, l.HolderID, l.Name, l.LicenseType,
		l.IssueDate, l.ExpiryDate, l.AuthorityID, l.Point, int16(l.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, sentinel.ErrAlreadyUsed
		}
		return 0, fmt.Errorf("insert license: %w", err)
	}
	return id.TokenID(next), nil //nolint:gosec // token ids are positive
}

func (s *PostgresStore) FindByLicenseNo(ctx context.Context, licenseNo string) (*models.DriverLicense, error) {
	return scanLicense(txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM driver_licenses WHERE license_no = $1`, licenseNo))
}

func (s *PostgresStore) FindByTokenID(ctx context.Context, tokenID id.TokenID) (*models.DriverLicense, error) {
	return scanLicense(txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM driver_licenses WHERE token_id = $1`, int64(tokenID))) //nolint:gosec // token ids fit in int64
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holder id.Address) ([]*models.DriverLicense, error) {
	return s.query(ctx,
		`SELECT `+licenseColumns+` FROM driver_licenses WHERE holder_address = $1 ORDER BY token_id`, holder)
}

func (s *PostgresStore) List(ctx context.Context, after id.TokenID, limit int) ([]*models.DriverLicense, error) {
	if limit <= 0 {
		return s.query(ctx,
			`SELECT `+licenseColumns+` FROM driver_licenses WHERE token_id > $1 ORDER BY token_id`, int64(after)) //nolint:gosec // token ids fit in int64
	}
	return s.query(ctx,
		`SELECT `+licenseColumns+` FROM driver_licenses WHERE token_id > $1 ORDER BY token_id LIMIT $2`, int64(after), limit) //nolint:gosec // token ids fit in int64
}

// Execute locks the row FOR UPDATE, validates, mutates and writes back.
func (s *PostgresStore) Execute(ctx context.Context, licenseNo string, validate func(*models.DriverLicense) error, mutate func(*models.DriverLicense)) (*models.DriverLicense, error) {
	q := txcontext.Pick(ctx, s.db)
	l, err := scanLicense(q.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM driver_licenses WHERE license_no = $1 FOR UPDATE`, licenseNo))
	if err != nil {
		return nil, err
	}
	if err := validate(l); err != nil {
		return nil, err
	}
	tokenID := l.TokenID
	mutate(l)
	l.TokenID = tokenID
	l.LicenseNo = licenseNo
	_, err = q.ExecContext(ctx, `
		UPDATE driver_licenses
		SET holder_address = $2, holder_id = $3, name = $4, license_type = $5,
		    expiry_date = $6, point = $7, status = $8
		WHERE license_no = $1
	`, licenseNo, l.HolderAddress, l.HolderID, l.Name, l.LicenseType, l.ExpiryDate, l.Point, int16(l.Status))
	if err != nil {
		return nil, fmt.Errorf("update license: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (token.Stats, error) {
	var emitted, holders int64
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(token_id), 0), COUNT(DISTINCT holder_address) FROM driver_licenses`).Scan(&emitted, &holders)
	if err != nil {
		return token.Stats{}, fmt.Errorf("license token stats: %w", err)
	}
	return token.Stats{EmittedCount: uint64(emitted), HoldersCount: uint64(holders)}, nil //nolint:gosec // counts are non-negative
}

func (s *PostgresStore) BalanceOf(ctx context.Context, holder id.Address) (uint64, error) {
	var n int64
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM driver_licenses WHERE holder_address = $1`, holder).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("license balance: %w", err)
	}
	return uint64(n), nil //nolint:gosec // counts are non-negative
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.DriverLicense, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query licenses: %w", err)
	}
	defer rows.Close()
	var out []*models.DriverLicense
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate licenses: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLicense(row scanner) (*models.DriverLicense, error) {
	var (
		l       models.DriverLicense
		tokenID int64
		status  int16
	)
	err := row.Scan(&tokenID, &l.LicenseNo, &l.HolderAddress, &l.HolderID, &l.Name, &l.LicenseType,
		&l.IssueDate, &l.ExpiryDate, &l.AuthorityID, &l.Point, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan license: %w", err)
	}
	l.TokenID = id.TokenID(tokenID) //nolint:gosec // token ids are positive
	l.IssueDate = l.IssueDate.UTC()
	l.ExpiryDate = l.ExpiryDate.UTC()
	l.Status, err = id.StatusFromOrdinal(uint8(status)) //nolint:gosec // status column is constrained to 0..3
	if err != nil {
		return nil, fmt.Errorf("decode license status: %w", err)
	}
	return &l, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
