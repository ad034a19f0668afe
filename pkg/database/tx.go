package database

import (
	"context"
	"errors"
	"fmt"
)

// TxRunner 驱动需要实现的最小事务接口
type TxRunner interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RunTx 统一的事务执行模板：fn 出错或 panic 时回滚，否则提交
func RunTx(ctx context.Context, tx TxRunner, fn func(ctx context.Context, tx Executor) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(context.Background()); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
