// Package database 定义游戏服务依赖的最小数据库抽象，postgres 与 sqlite 两个实现共用同一套 DAO。
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// Dialect SQL 方言
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrNoRows 查询无结果，各驱动的 no rows 错误统一映射为它
var ErrNoRows = errors.New("database: no rows in result set")

// Row 单行结果
type Row interface {
	Scan(dest ...any) error
}

// Rows 多行结果
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Executor 可执行语句的对象（连接池或事务）
type Executor interface {
	// Exec 执行写操作，返回影响行数
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// QueryRow 查询单行，无结果时 Scan 返回 ErrNoRows
	QueryRow(ctx context.Context, query string, args ...any) Row
	// Query 查询多行
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// DB 数据库客户端
type DB interface {
	Executor
	// WithTx 在单个事务中执行 fn，fn 返回错误或 panic 时回滚
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error
	Dialect() Dialect
	Ping(ctx context.Context) error
	Close() error
}

// Builder 按方言返回 squirrel 语句构造器
func Builder(d Dialect) squirrel.StatementBuilderType {
	if d == DialectPostgres {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	}
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// Exec 构造并执行写语句
func Exec(ctx context.Context, ex Executor, b squirrel.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql: %w", err)
	}
	return ex.Exec(ctx, query, args...)
}

// QueryRow 构造并查询单行
func QueryRow(ctx context.Context, ex Executor, b squirrel.Sqlizer) Row {
	query, args, err := b.ToSql()
	if err != nil {
		return errRow{err: fmt.Errorf("failed to build sql: %w", err)}
	}
	return ex.QueryRow(ctx, query, args...)
}

// Query 构造并查询多行
func Query(ctx context.Context, ex Executor, b squirrel.Sqlizer) (Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql: %w", err)
	}
	return ex.Query(ctx, query, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
