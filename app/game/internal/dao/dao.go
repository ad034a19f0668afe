// Package dao 游戏数据访问层。所有语句经 squirrel 构造，动态列名只取自 model 中的白名单；
// 余额类扣减一律使用带条件的 UPDATE 并检查影响行数。
package dao

import (
	"context"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/database"
	"github.com/lk2023060901/ascend/pkg/logger"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

type txKey struct{}

// base 各 DAO 共用的执行器、语句构造器与观测
type base struct {
	db      database.DB
	sb      squirrel.StatementBuilderType
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

func newBase(db database.DB, l logger.Logger, m *metrics.GameMetrics, name string) base {
	return base{
		db:      db,
		sb:      database.Builder(db.Dialect()),
		logger:  l.Named(name),
		metrics: m,
	}
}

// ex 当前上下文中的执行器：事务内返回事务，否则返回连接
func (b *base) ex(ctx context.Context) database.Executor {
	if tx, ok := ctx.Value(txKey{}).(database.Executor); ok {
		return tx
	}
	return b.db
}

func (b *base) observe(op string, start time.Time, err error) {
	if b.metrics == nil {
		return
	}
	ok := err == nil || errors.Is(err, database.ErrNoRows)
	b.metrics.RecordDBQuery(op, ok, time.Since(start).Seconds())
}

// exec 执行写语句并返回影响行数
func (b *base) exec(ctx context.Context, op string, q squirrel.Sqlizer) (n int64, err error) {
	start := time.Now()
	defer func() { b.observe(op, start, err) }()

	n, err = database.Exec(ctx, b.ex(ctx), q)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to exec statement", "op", op, "error", err)
		return 0, errcode.Transient(err, "exec "+op)
	}
	return n, nil
}

// scanOne 查询单行，无结果返回 ErrNotFound
func (b *base) scanOne(ctx context.Context, q squirrel.Sqlizer, dest ...any) (err error) {
	start := time.Now()
	defer func() { b.observe("select", start, err) }()

	err = database.QueryRow(ctx, b.ex(ctx), q).Scan(dest...)
	if errors.Is(err, database.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to query row", "error", err)
		return errcode.Transient(err, "query row")
	}
	return nil
}

// scanAll 查询多行，scan 对每行调用一次
func (b *base) scanAll(ctx context.Context, q squirrel.Sqlizer, scan func(database.Rows) error) (err error) {
	start := time.Now()
	defer func() { b.observe("select", start, err) }()

	rows, err := database.Query(ctx, b.ex(ctx), q)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to query rows", "error", err)
		return errcode.Transient(err, "query rows")
	}
	defer rows.Close()

	for rows.Next() {
		if err = scan(rows); err != nil {
			return errcode.Transient(err, "scan row")
		}
	}
	if err = rows.Err(); err != nil {
		return errcode.Transient(err, "iterate rows")
	}
	return nil
}

// owner 主键条件
func owner(userID, serverID string) squirrel.Eq {
	return squirrel.Eq{"user_id": userID, "server_id": serverID}
}

// incr 生成 col = col + ? 表达式
func incr(col string, delta int64) squirrel.Sqlizer {
	return squirrel.Expr(col+" + ?", delta)
}

// decr 生成 col = col - ? 表达式
func decr(col string, delta int64) squirrel.Sqlizer {
	return squirrel.Expr(col+" - ?", delta)
}

// sortedColumns 固定列顺序，保证生成的 SQL 稳定
func sortedColumns(m map[model.Column]int64) []model.Column {
	out := make([]model.Column, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// DAO 聚合全部数据访问对象
type DAO struct {
	db database.DB

	Users    *UserDAO
	Skills   *SkillDAO
	Delve    *DelveDAO
	Slayer   *SlayerDAO
	Ideology *IdeologyDAO
	Items    *ItemDAO
	Events   *EventDAO
}

// New 创建 DAO 集合，m 可为 nil
func New(db database.DB, l logger.Logger, m *metrics.GameMetrics) *DAO {
	return &DAO{
		db:       db,
		Users:    &UserDAO{base: newBase(db, l, m, "dao.user")},
		Skills:   &SkillDAO{base: newBase(db, l, m, "dao.skill")},
		Delve:    &DelveDAO{base: newBase(db, l, m, "dao.delve")},
		Slayer:   &SlayerDAO{base: newBase(db, l, m, "dao.slayer")},
		Ideology: &IdeologyDAO{base: newBase(db, l, m, "dao.ideology")},
		Items:    &ItemDAO{base: newBase(db, l, m, "dao.item")},
		Events:   &EventDAO{base: newBase(db, l, m, "dao.event")},
	}
}

// WithTx 在事务中执行 fn；fn 内的 DAO 调用须使用传入的 ctx。已在事务中时直接复用。
func (d *DAO) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return runTx(ctx, d.db, fn)
}

func runTx(ctx context.Context, db database.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(database.Executor); ok {
		return fn(ctx)
	}
	return db.WithTx(ctx, func(ctx context.Context, tx database.Executor) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// DB 底层数据库
func (d *DAO) DB() database.DB { return d.db }
