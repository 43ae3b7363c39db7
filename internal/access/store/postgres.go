package store

import (
	"context"
	"database/sql"
	"fmt"

	"trafficreg/internal/access/models"
	id "trafficreg/pkg/domain"
	txcontext "trafficreg/pkg/platform/tx"
	"trafficreg/pkg/requestcontext"
)

// PostgresStore persists role assignments in role_assignments.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Grant(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error) {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO role_assignments (scope, role, principal, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, role, principal) DO NOTHING
	`, string(scope), role.Hex(), principal, requestcontext.Now(ctx))
	if err != nil {
		return false, fmt.Errorf("grant role: %w", err)
	}
	return affected(res)
}

func (s *PostgresStore) Revoke(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error) {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		DELETE FROM role_assignments WHERE scope = $1 AND role = $2 AND principal = $3
	`, string(scope), role.Hex(), principal)
	if err != nil {
		return false, fmt.Errorf("revoke role: %w", err)
	}
	return affected(res)
}

func (s *PostgresStore) Has(ctx context.Context, scope models.Scope, role models.Role, principal id.Address) (bool, error) {
	var exists bool
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM role_assignments WHERE scope = $1 AND role = $2 AND principal = $3)
	`, string(scope), role.Hex(), principal).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Members(ctx context.Context, scope models.Scope, role models.Role) ([]id.Address, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT principal FROM role_assignments WHERE scope = $1 AND role = $2 ORDER BY principal
	`, string(scope), role.Hex())
	if err != nil {
		return nil, fmt.Errorf("list role members: %w", err)
	}
	defer rows.Close()
	var out []id.Address
	for rows.Next() {
		var a id.Address
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan role member: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role members: %w", err)
	}
	return out, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
