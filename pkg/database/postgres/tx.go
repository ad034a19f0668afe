package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lk2023060901/ascend/pkg/database"
)

// WithTx 在事务中执行 fn
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context, tx database.Executor) error) error {
	pgxTx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return database.RunTx(ctx, &tx{tx: pgxTx}, fn)
}

// tx 包装 pgx.Tx，实现 database.TxRunner
type tx struct {
	tx pgx.Tx
}

func (t *tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return execOn(ctx, t.tx, sql, args...)
}

func (t *tx) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return &row{row: t.tx.QueryRow(ctx, sql, args...), cancel: func() {}}
}

func (t *tx) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	r, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &rows{rows: r, cancel: func() {}}, nil
}

func (t *tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
