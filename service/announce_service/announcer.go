package announce_service

import (
	"strings"
	"sync"
	"time"

	"push-token-service/tool/logx"
)

const (
	DefaultCooldown    = 5 * time.Second
	DefaultHistorySize = 20
)

// Config 提示器配置
type Config struct {
	Cooldown    time.Duration // 相同消息的最短间隔
	HistorySize int           // 保留最近提示条数
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Cooldown:    DefaultCooldown,
		HistorySize: DefaultHistorySize,
	}
}

// ApplyDefaults 填充零值
func (c *Config) ApplyDefaults() {
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
}

// Window 抑制窗口，只在进程内存在
type Window struct {
	LastMessage string
	LastShownAt time.Time
}

// Announcement 已展示的提示
type Announcement struct {
	Message string    `json:"message"`
	ShownAt time.Time `json:"shownAt"`
}

// Surface 宿主提供的展示钩子
type Surface func(message string)

// Option 构造选项
type Option func(*Announcer)

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(a *Announcer) { a.now = now }
}

// WithSurface 设置展示钩子
func WithSurface(s Surface) Option {
	return func(a *Announcer) { a.surface = s }
}

// Announcer 限频的用户错误提示。冷却期内相同消息只展示一次，不同消息立即展示
type Announcer struct {
	mu      sync.Mutex
	cfg     Config
	window  Window
	history []Announcement
	now     func() time.Time
	surface Surface
}

// NewAnnouncer 创建提示器
func NewAnnouncer(cfg *Config, opts ...Option) *Announcer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.ApplyDefaults()

	a := &Announcer{
		cfg: c,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.surface == nil {
		log := logx.With("announce")
		a.surface = func(message string) {
			log.Warn().Str("message", message).Msg("📣 用户提示")
		}
	}
	return a
}

// SetSurface 替换展示钩子，宿主在启动后接入 UI 时使用
func (a *Announcer) SetSurface(s Surface) {
	if s == nil {
		return
	}
	a.mu.Lock()
	a.surface = s
	a.mu.Unlock()
}

// Announce 展示消息，被抑制时返回 false
func (a *Announcer) Announce(message string) bool {
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}

	a.mu.Lock()
	now := a.now()
	if message == a.window.LastMessage && !a.window.LastShownAt.IsZero() && now.Sub(a.window.LastShownAt) < a.cfg.Cooldown {
		a.mu.Unlock()
		return false
	}
	a.window = Window{LastMessage: message, LastShownAt: now}
	a.history = append(a.history, Announcement{Message: message, ShownAt: now})
	if over := len(a.history) - a.cfg.HistorySize; over > 0 {
		a.history = append(a.history[:0], a.history[over:]...)
	}
	surface := a.surface
	a.mu.Unlock()

	// 钩子可能很慢，放在锁外调用
	surface(message)
	return true
}

// Recent 返回最近的提示，最新在前
func (a *Announcer) Recent() []Announcement {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Announcement, len(a.history))
	for i, item := range a.history {
		out[len(a.history)-1-i] = item
	}
	return out
}

// CurrentWindow 返回当前抑制窗口
func (a *Announcer) CurrentWindow() Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.window
}
