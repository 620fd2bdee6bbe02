package socket_client_service

import "time"

// Config Socket.IO 客户端配置
type Config struct {
	ServerURL        string `yaml:"server_url" json:"server_url"`                   // 服务器地址
	ExtraPushAuthKey string `yaml:"extra_push_auth_key" json:"extra_push_auth_key"` // 连接鉴权 key
	Path             string `yaml:"path" json:"path"`                               // Socket.IO路径，默认 "/socket.io/"
	Timeout          int    `yaml:"timeout" json:"timeout"`                         // 连接超时秒数，默认10秒
}

// SocketData WebSocket generic data structure
type SocketData struct {
	M string      `json:"M"`           // method
	C interface{} `json:"C"`           // code
	D interface{} `json:"D,omitempty"` // data
}

// NotificationEvent 收到的原始通知事件
type NotificationEvent struct {
	Type       string    `json:"type"`
	Payload    any       `json:"payload"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// WebSocket method constants
const (
	// Heartbeat
	HEART_BEAT = "HEART_BEAT"
	PONG       = "PONG"

	WS_SERVER_NOTIFY_PUSH = "WS_SERVER_NOTIFY_PUSH"

	// Generic response
	WS_RESPONSE_SUCCESS = "WS_RESPONSE_SUCCESS"
	WS_RESPONSE_ERROR   = "WS_RESPONSE_ERROR"
)

// WebSocket code constants
const (
	WS_CODE_HEART_BEAT = 10
	WS_CODE_SERVER     = 0
)

// Socket.IO 事件名
const (
	EventPushNotification = "push_notification"
	EventNotification     = "notification"
	EventMessage          = "message"
)
