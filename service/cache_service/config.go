package cache_service

import (
	"fmt"
	"time"
)

const (
	DefaultMaxEntries    = 100
	DefaultTTL           = 24 * time.Hour
	DefaultSweepInterval = time.Minute
)

// Config 通知缓存配置
type Config struct {
	MaxEntries    int           `yaml:"max_entries" json:"max_entries"`       // 最多保留条数
	TTL           time.Duration `yaml:"ttl" json:"ttl"`                       // 最长保留时间
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"` // 定时清理间隔
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxEntries:    DefaultMaxEntries,
		TTL:           DefaultTTL,
		SweepInterval: DefaultSweepInterval,
	}
}

// ApplyDefaults 填充零值
func (c *Config) ApplyDefaults() {
	if c.MaxEntries == 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = DefaultSweepInterval
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.MaxEntries < 0 {
		return fmt.Errorf("max_entries 不能为负数: %d", c.MaxEntries)
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl 不能为负数: %s", c.TTL)
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("sweep_interval 不能小于 1s: %s", c.SweepInterval)
	}
	return nil
}
