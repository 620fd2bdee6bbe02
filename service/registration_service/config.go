package registration_service

import (
	"fmt"
	"time"
)

const (
	// DefaultStartupDelay 进程启动后第一次申请令牌前的等待，宿主运行时刚启动时可能还不能签发令牌
	DefaultStartupDelay = time.Second
	DefaultMaxRetries   = 3
	DefaultBaseDelay    = 500 * time.Millisecond
)

// Config 注册流程配置
type Config struct {
	StartupDelay time.Duration `yaml:"startup_delay" json:"startup_delay"` // 只有启动后的第一次尝试等待
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`     // 存储临时失败的最大重试次数
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`       // 指数退避基数
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		StartupDelay: DefaultStartupDelay,
		MaxRetries:   DefaultMaxRetries,
		BaseDelay:    DefaultBaseDelay,
	}
}

// ApplyDefaults 填充零值。StartupDelay 为负数表示不等待
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.StartupDelay == 0 {
		c.StartupDelay = defaults.StartupDelay
	}
	if c.StartupDelay < 0 {
		c.StartupDelay = 0
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = defaults.BaseDelay
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries 不能为负数: %d", c.MaxRetries)
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("base_delay 不能为负数: %s", c.BaseDelay)
	}
	return nil
}
