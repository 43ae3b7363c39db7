package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "trafficreg/pkg/domain-errors"
	"trafficreg/pkg/platform/audit/worker"
	"trafficreg/pkg/platform/tx"
)

const defaultOutboxTxTimeout = 5 * time.Second

// outboxTx runs each relay batch in one SQL transaction, so the pending
// read and the published mark commit together.
type outboxTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newOutboxTx(db *sql.DB) *outboxTx {
	return &outboxTx{db: db}
}

func (t *outboxTx) Runner() worker.TxRunner {
	return t.RunInTx
}

func (t *outboxTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultOutboxTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}
