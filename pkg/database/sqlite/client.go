package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lk2023060901/ascend/pkg/config"
	"github.com/lk2023060901/ascend/pkg/database"

	_ "modernc.org/sqlite"
)

var _ database.DB = (*Client)(nil)

// Client SQLite 客户端，实现 database.DB
//
// 只保留一个连接：单写者语义，事务期间其它调用排队等待。
type Client struct {
	db  *sql.DB
	cfg *Config
}

// New 打开 SQLite 数据库
func New(ctx context.Context, cfg *Config) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	if !newCfg.inMemory() {
		if dir := filepath.Dir(newCfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", newCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	for _, pragma := range newCfg.pragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	return &Client{db: db, cfg: newCfg}, nil
}

// Dialect 返回方言
func (c *Client) Dialect() database.Dialect {
	return database.DialectSQLite
}

// Ping 检查连接
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close 关闭数据库
func (c *Client) Close() error {
	return c.db.Close()
}

// Exec 执行写操作
func (c *Client) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execOn(ctx, c.db, query, args...)
}

// QueryRow 查询单行
func (c *Client) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return row{row: c.db.QueryRowContext(ctx, query, args...)}
}

// Query 查询多行
func (c *Client) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	r, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows{r}, nil
}

// WithTx 在事务中执行 fn
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context, tx database.Executor) error) error {
	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return database.RunTx(ctx, &tx{tx: sqlTx}, fn)
}

// sqlExecer *sql.DB 与 *sql.Tx 的公共子集
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execOn(ctx context.Context, ex sqlExecer, query string, args ...any) (int64, error) {
	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return affected, nil
}

type row struct {
	row *sql.Row
}

func (r row) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrNoRows
		}
		return err
	}
	return nil
}

type rows struct {
	*sql.Rows
}

func (r rows) Close() {
	_ = r.Rows.Close()
}

type tx struct {
	tx *sql.Tx
}

func (t *tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execOn(ctx, t.tx, query, args...)
}

func (t *tx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return row{row: t.tx.QueryRowContext(ctx, query, args...)}
}

func (t *tx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	r, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows{r}, nil
}

func (t *tx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *tx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
