package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lk2023060901/ascend/pkg/database"
)

var _ database.DB = (*Client)(nil)

// Client PostgreSQL 客户端，实现 database.DB。读写共用一个连接池。
type Client struct {
	pool *pgxpool.Pool
	cfg  *Config
}

// New 创建 PostgreSQL 客户端并验证连通性
func New(ctx context.Context, cfg *Config) (*Client, error) {
	newCfg, err := MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(newCfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolCfg.MaxConns = newCfg.Pool.MaxConns
	poolCfg.MinConns = newCfg.Pool.MinConns
	poolCfg.MaxConnLifetime = newCfg.Pool.MaxConnLifetime
	poolCfg.MaxConnIdleTime = newCfg.Pool.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = newCfg.Pool.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = newCfg.ConnectTimeout

	connectCtx, cancel := context.WithTimeout(ctx, newCfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Client{pool: pool, cfg: newCfg}, nil
}

// Dialect 返回方言
func (c *Client) Dialect() database.Dialect {
	return database.DialectPostgres
}

// Ping 检查数据库连接
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close 关闭连接池
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// Stats 获取连接池状态
func (c *Client) Stats() PoolStats {
	stat := c.pool.Stat()
	return PoolStats{
		AcquiredConns: stat.AcquiredConns(),
		IdleConns:     stat.IdleConns(),
		TotalConns:    stat.TotalConns(),
		MaxConns:      stat.MaxConns(),
		AcquireCount:  stat.AcquireCount(),
	}
}

// PoolStats 连接池统计
type PoolStats struct {
	AcquiredConns int32
	IdleConns     int32
	TotalConns    int32
	MaxConns      int32
	AcquireCount  int64
}

func (c *Client) applyQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}

// Exec 执行写操作（INSERT/UPDATE/DELETE）
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()
	return execOn(ctx, c.pool, sql, args...)
}

// QueryRow 查询单行
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	// 超时 context 需要延续到 Scan，交给 row 自己取消
	ctx, cancel := c.applyQueryTimeout(ctx)
	return &row{row: c.pool.QueryRow(ctx, sql, args...), cancel: cancel}
}

// Query 查询多行
func (c *Client) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	r, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &rows{rows: r, cancel: cancel}, nil
}

// execer pgxpool.Pool 与 pgx.Tx 的公共子集
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func execOn(ctx context.Context, q execer, sql string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

type row struct {
	row    pgx.Row
	cancel context.CancelFunc
}

func (r *row) Scan(dest ...any) error {
	defer r.cancel()
	if err := r.row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.ErrNoRows
		}
		return err
	}
	return nil
}

type rows struct {
	rows   pgx.Rows
	cancel context.CancelFunc
}

func (r *rows) Next() bool             { return r.rows.Next() }
func (r *rows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *rows) Err() error             { return r.rows.Err() }
func (r *rows) Close() {
	r.rows.Close()
	r.cancel()
}
