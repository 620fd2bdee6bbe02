package cache_service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"push-token-service/models"
	"push-token-service/tool/logx"
)

// Option 构造选项
type Option func(*Cache)

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache 运行期间收到的通知，按条数和时间双重淘汰。
// CreatedAt 总是记录时的本地时钟，entries 按它升序排列，最旧在前
type Cache struct {
	mu      sync.RWMutex
	cfg     Config
	entries []models.CachedNotification
	ids     map[string]struct{}
	now     func() time.Time
	log     zerolog.Logger

	cronMu sync.Mutex
	cron   *cron.Cron
}

// NewCache 创建通知缓存
func NewCache(cfg *Config, opts ...Option) (*Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("通知缓存配置无效: %w", err)
	}

	cache := &Cache{
		cfg: c,
		ids: make(map[string]struct{}),
		now: time.Now,
		log: logx.With("cache"),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// Record 记录一条通知，CreatedAt 以记录时刻为准，发送方时间应放在 SentAt。
// id 为空或已存在时不做任何修改并返回 false
func (c *Cache) Record(n models.CachedNotification) bool {
	n.ID = strings.TrimSpace(n.ID)
	if n.ID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.ids[n.ID]; exists {
		return false
	}
	n.CreatedAt = c.now()
	n.Active = true

	c.entries = append(c.entries, n)
	c.ids[n.ID] = struct{}{}

	if over := len(c.entries) - c.cfg.MaxEntries; over > 0 {
		for _, old := range c.entries[:over] {
			delete(c.ids, old.ID)
		}
		c.entries = append(c.entries[:0], c.entries[over:]...)
	}
	return true
}

// Sweep 删除所有过期通知，返回删除条数
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	kept := c.entries[:0]
	removed := 0
	for _, n := range c.entries {
		if c.expired(n, now) {
			delete(c.ids, n.ID)
			removed++
			continue
		}
		kept = append(kept, n)
	}
	// 清掉尾部残留引用
	for i := len(kept); i < len(c.entries); i++ {
		c.entries[i] = models.CachedNotification{}
	}
	c.entries = kept
	return removed
}

// Snapshot 返回未过期的通知，最新在前。不修改缓存
func (c *Cache) Snapshot() []models.CachedNotification {
	c.mu.RLock()
	now := c.now()
	out := make([]models.CachedNotification, 0, len(c.entries))
	for i := len(c.entries) - 1; i >= 0; i-- {
		if !c.expired(c.entries[i], now) {
			out = append(out, c.entries[i])
		}
	}
	c.mu.RUnlock()
	return out
}

// Len 返回当前条数，包括尚未清理的过期通知
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) expired(n models.CachedNotification, now time.Time) bool {
	return now.Sub(n.CreatedAt) >= c.cfg.TTL
}

// Start 启动定时清理，重复调用无效果
func (c *Cache) Start() error {
	c.cronMu.Lock()
	defer c.cronMu.Unlock()

	if c.cron != nil {
		return nil
	}
	sched := cron.New()
	spec := fmt.Sprintf("@every %s", c.cfg.SweepInterval)
	if _, err := sched.AddFunc(spec, func() {
		if removed := c.Sweep(); removed > 0 {
			c.log.Debug().Int("removed", removed).Int("left", c.Len()).Msg("🧹 清理过期通知")
		}
	}); err != nil {
		return fmt.Errorf("注册清理任务失败: %w", err)
	}
	sched.Start()
	c.cron = sched
	c.log.Info().Str("interval", c.cfg.SweepInterval.String()).Msg("✅ 通知缓存定时清理已启动")
	return nil
}

// Stop 停止定时清理，等待正在执行的清理结束
func (c *Cache) Stop() {
	c.cronMu.Lock()
	sched := c.cron
	c.cron = nil
	c.cronMu.Unlock()

	if sched == nil {
		return
	}
	<-sched.Stop().Done()
	c.log.Info().Msg("通知缓存定时清理已停止")
}
