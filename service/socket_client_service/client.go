package socket_client_service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zishang520/socket.io/clients/engine/v3/transports"
	socketio "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"push-token-service/tool/logx"
)

const heartbeatInterval = 5 * time.Second

// Client Socket.IO 客户端，监听推送事件
type Client struct {
	config    *Config
	socket    *socketio.Socket
	connected bool
	stopBeat  chan struct{}
	mu        sync.RWMutex
	log       zerolog.Logger

	// 事件回调
	OnNotification func(*NotificationEvent)
	OnHeartbeat    func()
	OnConnect      func()
	OnDisconnect   func()
	OnError        func(error)
}

// NewClient 创建新的客户端
func NewClient(config *Config) *Client {
	if config.Path == "" {
		config.Path = "/socket.io/"
	}
	if config.Timeout == 0 {
		config.Timeout = 10
	}

	return &Client{
		config: config,
		log:    logx.With("socket"),
	}
}

// Start 启动客户端连接
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.socket != nil && c.connected {
		return nil
	}
	if strings.TrimSpace(c.config.ServerURL) == "" {
		return errors.New("socket server_url 不能为空")
	}

	// 创建Socket.IO连接选项
	options := socketio.DefaultOptions()
	options.SetTransports(types.NewSet(
		transports.Polling,
		transports.WebSocket,
	))
	options.SetPath(c.config.Path)
	options.SetQuery(
		url.Values{
			"extraPushAuthKey": {c.config.ExtraPushAuthKey},
		},
	)
	options.SetTimeout(time.Duration(c.config.Timeout) * time.Second)

	// 连接到服务器
	socket, err := socketio.Connect(c.config.ServerURL, options)
	if err != nil {
		c.log.Error().Err(err).Str("url", c.config.ServerURL).Msg("❌ Failed to connect to Socket.IO server")
		if c.OnError != nil {
			go c.OnError(err)
		}
		return err
	}

	c.socket = socket
	c.setupEventHandlers()

	c.log.Info().Str("url", c.config.ServerURL).Msg("🚀 Socket.IO client connecting")
	return nil
}

// Stop 停止客户端
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.socket != nil {
		c.socket.Disconnect()
		c.socket = nil
	}
	c.connected = false
	c.stopHeartbeatLocked()

	c.log.Info().Msg("📴 Socket.IO client stopped")
}

// IsConnected 检查是否已连接
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.socket == nil {
		return false
	}

	// 安全地检查连接状态，防止 panic
	connected := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Warn().Interface("panic", r).Msg("⚠️ Panic recovered when checking socket.Connected()")
				connected = false
			}
		}()
		connected = c.socket.Connected()
	}()

	return connected
}

// guard 包装事件处理器，吞掉 panic
func (c *Client) guard(event string, fn func(data ...interface{})) func(...interface{}) {
	return func(data ...interface{}) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Warn().Str("event", event).Interface("panic", r).Msg("⚠️ Panic recovered in handler")
				if c.OnError != nil {
					go c.OnError(fmt.Errorf("%s handler panic recovered: %v", event, r))
				}
			}
		}()
		fn(data...)
	}
}

// setupEventHandlers 设置事件处理器
func (c *Client) setupEventHandlers() {
	if c.socket == nil {
		return
	}

	// 连接成功事件
	c.socket.On("connect", c.guard("connect", func(data ...interface{}) {
		c.mu.Lock()
		c.connected = true
		c.stopHeartbeatLocked()
		stop := make(chan struct{})
		c.stopBeat = stop
		c.mu.Unlock()

		c.log.Info().Msg("✅ Socket.IO connected successfully")
		if c.OnConnect != nil {
			go c.OnConnect()
		}

		go c.startHeartbeat(stop)
	}))

	// 断开连接事件
	c.socket.On("disconnect", c.guard("disconnect", func(data ...interface{}) {
		c.mu.Lock()
		c.connected = false
		c.stopHeartbeatLocked()
		c.mu.Unlock()

		c.log.Warn().Msg("❌ Socket.IO disconnected")
		if c.OnDisconnect != nil {
			go c.OnDisconnect()
		}
	}))

	// 连接错误事件
	c.socket.On("connect_error", c.guard("connect_error", func(data ...interface{}) {
		err := eventError("connection error", data)
		c.log.Error().Err(err).Msg("🔥 Socket.IO connect error")
		if c.OnError != nil {
			go c.OnError(err)
		}
	}))

	// 通用错误事件
	c.socket.On("error", c.guard("error", func(data ...interface{}) {
		err := eventError("socket error", data)
		c.log.Error().Err(err).Msg("🔥 Socket.IO error")
		if c.OnError != nil {
			go c.OnError(err)
		}
	}))

	// 服务端的 SocketData 消息格式
	c.socket.On(EventMessage, c.guard(EventMessage, func(data ...interface{}) {
		c.handleSocketData(data)
	}))

	// 标准Socket.IO推送事件
	for _, event := range notificationEvents {
		name := string(event)
		c.socket.On(event, c.guard(name, func(data ...interface{}) {
			c.handleNotification(name, data)
		}))
	}
}

// notificationEvents 直接携带通知负载的事件
var notificationEvents = []types.EventName{EventPushNotification, EventNotification}

func eventError(prefix string, data []interface{}) error {
	if len(data) > 0 && data[0] != nil {
		if e, ok := data[0].(error); ok {
			return e
		}
		return fmt.Errorf("%s: %v", prefix, data[0])
	}
	return fmt.Errorf("%s: unknown error", prefix)
}

// handleNotification 处理推送事件
func (c *Client) handleNotification(eventType string, payload interface{}) {
	if c.OnNotification == nil || payload == nil {
		return
	}
	if list, ok := payload.([]interface{}); ok && len(list) == 0 {
		return
	}

	event := &NotificationEvent{
		Type:       eventType,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
	c.log.Debug().Str("type", eventType).Msg("📨 Received notification event")

	// 异步调用消息处理器
	go c.OnNotification(event)
}

// handleSocketData 处理服务端的SocketData格式消息
func (c *Client) handleSocketData(data []interface{}) {
	socketData, err := DecodeSocketData(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("⚠️ Failed to parse SocketData")
		return
	}

	switch strings.ToUpper(socketData.M) {
	case HEART_BEAT, PONG:
		if c.OnHeartbeat != nil {
			go c.OnHeartbeat()
		}
	case WS_SERVER_NOTIFY_PUSH:
		c.handleNotification(EventPushNotification, socketData.D)
	default:
		c.log.Debug().Str("method", socketData.M).Msg("📨 未知方法")
	}
}

// DecodeSocketData 解析 message 事件参数为 SocketData
func DecodeSocketData(data []interface{}) (*SocketData, error) {
	if len(data) == 0 {
		return nil, errors.New("empty socket data")
	}

	switch msg := data[0].(type) {
	case string:
		socketData := &SocketData{}
		if err := json.Unmarshal([]byte(msg), socketData); err != nil {
			return nil, fmt.Errorf("parse SocketData from string: %w", err)
		}
		return socketData, nil
	case map[string]interface{}:
		socketData := &SocketData{}
		if m, ok := msg["M"].(string); ok {
			socketData.M = m
		}
		if code, ok := msg["C"]; ok {
			socketData.C = code
		}
		if d, ok := msg["D"]; ok {
			socketData.D = d
		}
		return socketData, nil
	default:
		return nil, fmt.Errorf("unknown SocketData format: %T", data[0])
	}
}

// startHeartbeat 启动心跳，stop 关闭或连接断开时退出
func (c *Client) startHeartbeat(stop <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Interface("panic", r).Msg("⚠️ Panic recovered in startHeartbeat")
		}
	}()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.IsConnected() {
				return
			}
			if err := c.sendSocketData(&SocketData{M: PONG, C: WS_CODE_HEART_BEAT}); err != nil {
				c.log.Debug().Err(err).Msg("心跳发送失败")
			}
		}
	}
}

func (c *Client) stopHeartbeatLocked() {
	if c.stopBeat != nil {
		close(c.stopBeat)
		c.stopBeat = nil
	}
}

// sendSocketData 发送SocketData格式消息
func (c *Client) sendSocketData(socketData *SocketData) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("emit panic recovered: %v", r)
		}
	}()

	c.mu.RLock()
	socket := c.socket
	c.mu.RUnlock()

	if socket == nil || !c.IsConnected() {
		return errors.New("client not connected")
	}

	socket.Emit(EventMessage, socketData)
	return nil
}
