package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dErrors "trafficreg/pkg/domain-errors"
	txcontext "trafficreg/pkg/platform/tx"
)

const defaultOpTimeout = 5 * time.Second

// writerLockKey is the advisory lock every writer process takes so several
// processes sharing one database still apply operations one at a time.
const writerLockKey int64 = 0x7472616666696300

// PostgresBackend runs every operation in one serializable SQL transaction.
// Stores pick the transaction from context (pkg/platform/tx).
type PostgresBackend struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db, timeout: defaultOpTimeout}
}

func (b *PostgresBackend) Begin(ctx context.Context) (context.Context, Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}

	var cancel context.CancelFunc = func() {}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
	}

	sqlTx, err := b.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("begin ledger tx: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, writerLockKey); err != nil {
		_ = sqlTx.Rollback()
		cancel()
		return nil, nil, fmt.Errorf("acquire writer lock: %w", err)
	}
	return txcontext.WithTx(ctx, sqlTx), &postgresTx{tx: sqlTx, cancel: cancel}, nil
}

type postgresTx struct {
	tx     *sql.Tx
	cancel context.CancelFunc
}

func (t *postgresTx) NextSeq(ctx context.Context) (uint64, error) {
	var seq int64
	err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_ops`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next ledger seq: %w", err)
	}
	return uint64(seq), nil //nolint:gosec // seq is positive
}

func (t *postgresTx) Commit(ctx context.Context, receipt Receipt) error {
	defer t.cancel()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO ledger_ops (seq, operation, caller, committed_at, event_count) VALUES ($1, $2, $3, $4, $5)`,
		int64(receipt.Seq), //nolint:gosec // seq is positive
		receipt.Operation,
		receipt.Caller,
		receipt.CommittedAt,
		len(receipt.Events),
	)
	if err != nil {
		return fmt.Errorf("record ledger op: %w", err)
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback() error {
	defer t.cancel()
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

// RunInTx runs fn inside a plain transaction carried on ctx. It serves
// maintenance work outside the writer path, such as the outbox relay.
func RunInTx(db *sql.DB) func(ctx context.Context, fn func(ctx context.Context) error) error {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		sqlTx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			_ = sqlTx.Rollback()
		}()
		if err := fn(txcontext.WithTx(ctx, sqlTx)); err != nil {
			return err
		}
		return sqlTx.Commit()
	}
}
