package major

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"push-token-service/tool/logx"
)

// PoolConfig 连接池配置，零值使用驱动默认
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
}

// OpenGorm 打开 mysql 或 postgres 连接，开启错误翻译以识别唯一冲突
func OpenGorm(dialect, dsn string, pool PoolConfig) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s dsn 不能为空", dialect)
	}
	var dialector gorm.Dialector
	switch dialect {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("不支持的 gorm 方言: %s", dialect)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("DB init error: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlDB error: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	l := logx.With("major")
	l.Info().Str("driver", dialect).Msg("✅ 数据库连接成功")
	return gdb, nil
}

// OpenSqlx 打开 postgres 或 sqlite 连接
func OpenSqlx(ctx context.Context, driver, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	switch driver {
	case "postgres":
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("postgres dsn 不能为空")
		}
	case "sqlite":
		if dsn == "" {
			dsn = "file:push_registrations?mode=memory&cache=shared"
		} else if !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("创建 sqlite 目录失败: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite" {
		// SQLite 只允许单个写连接
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if pool.MaxOpenConns > 0 {
			db.SetMaxOpenConns(pool.MaxOpenConns)
		}
		if pool.MaxIdleConns > 0 {
			db.SetMaxIdleConns(pool.MaxIdleConns)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	l := logx.With("major")
	l.Info().Str("driver", driver).Msg("✅ 数据库连接成功")
	return db, nil
}
