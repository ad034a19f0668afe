package dao

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/pkg/database"
	"github.com/lk2023060901/ascend/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT   NOT NULL PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`

// Migrate 按文件名顺序执行尚未应用的迁移，每个文件一个事务
func Migrate(ctx context.Context, db database.DB, l logger.Logger) ([]string, error) {
	log := l.Named("dao.migrate")
	sb := database.Builder(db.Dialect())

	if _, err := db.Exec(ctx, createMigrationsTable); err != nil {
		return nil, errors.Wrap(err, "failed to create schema_migrations")
	}

	// 1. 已应用版本
	applied := make(map[string]bool)
	rows, err := database.Query(ctx, db, sb.Select("version").From("schema_migrations"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list applied migrations")
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan migration version")
		}
		applied[v] = true
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list applied migrations")
	}

	// 2. 待执行文件
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list migrations")
	}
	sort.Strings(files)

	var done []string
	for _, file := range files {
		version := strings.TrimSuffix(strings.TrimPrefix(file, "migrations/"), ".sql")
		if applied[version] {
			continue
		}

		body, err := migrationFS.ReadFile(file)
		if err != nil {
			return done, errors.Wrapf(err, "failed to read %s", file)
		}

		// 3. 语句与版本记录在同一事务内提交
		err = db.WithTx(ctx, func(ctx context.Context, tx database.Executor) error {
			for _, stmt := range splitStatements(string(body)) {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return errors.Wrapf(err, "migration %s", version)
				}
			}
			_, err := database.Exec(ctx, tx, sb.Insert("schema_migrations").
				Columns("version", "applied_at").
				Values(version, time.Now().Unix()))
			return err
		})
		if err != nil {
			return done, err
		}

		log.Info("migration applied", "version", version)
		done = append(done, version)
	}

	return done, nil
}

// splitStatements 按分号切分迁移文件，迁移中不使用存储过程
func splitStatements(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

