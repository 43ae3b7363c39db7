package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"trafficreg/internal/offence/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
	txcontext "trafficreg/pkg/platform/tx"
)

// PostgresStore persists renew rules in the renew_rules table. A partial
// unique index keeps one ACTIVE rule per license type.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const ruleColumns = `id, license_type, bonus_time, description, status, created_at, revoked_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.RenewRule) (int64, error) {
	q := txcontext.Pick(ctx, s.db)
	var next int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM renew_rules`).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocate renew rule id: %w", err)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO renew_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, next, r.LicenseType, r.BonusTime, r.Description, int16(r.Status), r.CreatedAt, r.RevokedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, sentinel.ErrAlreadyUsed
		}
		return 0, fmt.Errorf("insert renew rule: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) FindActive(ctx context.Context, licenseType string) (*models.RenewRule, error) {
	return scanRule(txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM renew_rules WHERE license_type = $1 AND status = $2`,
		licenseType, int16(id.StatusActive)))
}

func (s *PostgresStore) FindLatest(ctx context.Context, licenseType string) (*models.RenewRule, error) {
	return scanRule(txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM renew_rules WHERE license_type = $1 ORDER BY id DESC LIMIT 1`, licenseType))
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.RenewRule, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, `SELECT `+ruleColumns+` FROM renew_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query renew rules: %w", err)
	}
	defer rows.Close()
	var out []*models.RenewRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renew rules: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RevokeActive(ctx context.Context, licenseType string, at time.Time) (*models.RenewRule, error) {
	return scanRule(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		UPDATE renew_rules SET status = $3, revoked_at = $4
		WHERE license_type = $1 AND status = $2
		RETURNING `+ruleColumns,
		licenseType, int16(id.StatusActive), int16(id.StatusRevoked), at.UTC()))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*models.RenewRule, error) {
	var (
		r         models.RenewRule
		status    int16
		revokedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.LicenseType, &r.BonusTime, &r.Description, &status, &r.CreatedAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan renew rule: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if revokedAt.Valid {
		at := revokedAt.Time.UTC()
		r.RevokedAt = &at
	}
	r.Status, err = id.StatusFromOrdinal(uint8(status)) //nolint:gosec // status column is constrained to 0 or 2
	if err != nil {
		return nil, fmt.Errorf("decode renew rule status: %w", err)
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
