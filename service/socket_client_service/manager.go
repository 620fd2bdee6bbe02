package socket_client_service

import (
	"sync"

	"github.com/rs/zerolog"

	"push-token-service/models"
	"push-token-service/tool/logx"
)

// Recorder 接收解析后的通知
type Recorder interface {
	Record(n models.CachedNotification) bool
}

// Manager 把 Socket.IO 推送事件写入通知缓存
type Manager struct {
	client   *Client
	config   *Config
	recorder Recorder
	mu       sync.RWMutex
	log      zerolog.Logger
}

// NewManager 创建管理器
func NewManager(config *Config, recorder Recorder) *Manager {
	m := &Manager{
		config:   config,
		client:   NewClient(config),
		recorder: recorder,
		log:      logx.With("socket"),
	}
	m.client.OnNotification = m.HandleEvent
	m.client.OnError = func(err error) {
		m.log.Warn().Err(err).Msg("🔥 Socket.IO client error")
	}
	return m
}

// Start 启动Socket.IO客户端
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client.Start()
}

// Stop 停止Socket.IO客户端
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client.Stop()
}

// IsRunning 检查是否运行中
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client.IsConnected()
}

// HandleEvent 解析事件并记录，无法解析的事件只记日志
func (m *Manager) HandleEvent(event *NotificationEvent) {
	n, err := ParseNotification(event.Payload, event.ReceivedAt)
	if err != nil {
		m.log.Debug().Err(err).Str("type", event.Type).Msg("忽略无法解析的通知")
		return
	}
	if m.recorder.Record(n) {
		m.log.Info().Str("id", n.ID).Str("category", n.Category).Msg("📥 已缓存通知")
	}
}
