package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DeviceInfo 设备信息，DeviceIdentity 由它派生
type DeviceInfo struct {
	Platform   string `json:"platform" binding:"required"` // 平台 (ios, android, web)
	Model      string `json:"model"`                       // 设备型号
	OSVersion  string `json:"osVersion"`                   // 系统版本
	AppVersion string `json:"appVersion,omitempty"`        // 应用版本
	DeviceName string `json:"deviceName,omitempty"`        // 设备名称
}

// Identity 返回设备身份
func (d DeviceInfo) Identity() string {
	return DeriveDeviceIdentity(d.Platform, d.Model, d.OSVersion)
}

// Metadata 构建注册记录里的设备元数据
func (d DeviceInfo) Metadata() DeviceMetadata {
	md := DeviceMetadata{
		"platform":  normalizeIdentityPart(d.Platform),
		"model":     normalizeIdentityPart(d.Model),
		"osVersion": normalizeIdentityPart(d.OSVersion),
	}
	if d.AppVersion != "" {
		md["appVersion"] = d.AppVersion
	}
	if d.DeviceName != "" {
		md["deviceName"] = d.DeviceName
	}
	return md
}

// DeviceMetadata 设备元数据，数据库中以 JSON 文本存储
type DeviceMetadata map[string]string

// Value 实现 driver.Valuer
func (m DeviceMetadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("序列化设备元数据失败: %w", err)
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner
func (m *DeviceMetadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = DeviceMetadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("不支持的设备元数据类型: %T", src)
	}
	if len(data) == 0 {
		*m = DeviceMetadata{}
		return nil
	}
	out := DeviceMetadata{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("反序列化设备元数据失败: %w", err)
	}
	*m = out
	return nil
}

// PushRegistration 推送令牌注册记录，token 唯一
type PushRegistration struct {
	ID             string         `json:"id" db:"id" gorm:"primaryKey;size:36"`
	Token          string         `json:"token" db:"token" gorm:"uniqueIndex;size:255;not null"`
	DeviceIdentity string         `json:"deviceIdentity" db:"device_identity" gorm:"index;size:255;not null"`
	DeviceMetadata DeviceMetadata `json:"deviceMetadata" db:"device_metadata" gorm:"type:text"`
	IsActive       bool           `json:"isActive" db:"is_active" gorm:"not null"`
	LastActiveAt   time.Time      `json:"lastActiveAt" db:"last_active_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
}

// Clone 返回深拷贝
func (r *PushRegistration) Clone() *PushRegistration {
	if r == nil {
		return nil
	}
	out := *r
	if r.DeviceMetadata != nil {
		out.DeviceMetadata = make(DeviceMetadata, len(r.DeviceMetadata))
		for k, v := range r.DeviceMetadata {
			out.DeviceMetadata[k] = v
		}
	}
	return &out
}

// CachedNotification 运行期间收到的通知
type CachedNotification struct {
	ID        string    `json:"id" binding:"required"` // 通知唯一标识
	Title     string    `json:"title"`                 // 标题
	Body      string    `json:"body"`                  // 内容
	Category  string    `json:"category,omitempty"`    // 分类
	SentAt    time.Time `json:"sentAt,omitempty"`      // 发送方给出的时间，仅用于展示
	CreatedAt time.Time `json:"createdAt"`             // 缓存收到的时间，TTL 和条数淘汰都以它为准
	Active    bool      `json:"active"`                // 是否有效
}
