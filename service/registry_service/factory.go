package registry_service

import (
	"context"
	"fmt"

	"push-token-service/major"
	"push-token-service/service/pebble_service"
)

// Config 注册存储配置
type Config struct {
	Driver       string `yaml:"driver" json:"driver"` // mysql / gorm_postgres / postgres / sqlite / pebble / memory
	DSN          string `yaml:"dsn" json:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns" json:"max_idle_conns"`
}

// DefaultConfig 默认使用嵌入式 pebble
func DefaultConfig() *Config {
	return &Config{Driver: "pebble"}
}

// Open 按驱动创建注册存储，pebble 驱动复用传入的 PebbleService
func Open(ctx context.Context, cfg *Config, ps *pebble_service.PebbleService) (Registry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	pool := major.PoolConfig{MaxOpenConns: cfg.MaxOpenConns, MaxIdleConns: cfg.MaxIdleConns}

	switch cfg.Driver {
	case "", "pebble":
		if ps == nil {
			return nil, fmt.Errorf("pebble 驱动需要 PebbleService")
		}
		return NewPebbleRegistry(ps), nil
	case "memory":
		return NewMemoryRegistry(), nil
	case "mysql", "gorm_postgres":
		dialect := cfg.Driver
		if dialect == "gorm_postgres" {
			dialect = "postgres"
		}
		gdb, err := major.OpenGorm(dialect, cfg.DSN, pool)
		if err != nil {
			return nil, err
		}
		return NewGormRegistry(gdb)
	case "postgres", "sqlite":
		db, err := major.OpenSqlx(ctx, cfg.Driver, cfg.DSN, pool)
		if err != nil {
			return nil, err
		}
		reg, err := NewSQLRegistry(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return reg, nil
	default:
		return nil, fmt.Errorf("不支持的注册存储驱动: %s", cfg.Driver)
	}
}
