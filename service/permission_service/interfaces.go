package permission_service

import (
	"context"

	"push-token-service/models"
)

// Platform 平台通知权限能力，RequestPermission 可能弹出系统对话框并长时间阻塞
type Platform interface {
	GetCurrentPermission(ctx context.Context) (models.PermissionState, error)
	RequestPermission(ctx context.Context) (models.PermissionState, error)
}

// FlagStore 持久化 KV，进程重启后保留
type FlagStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Announcer 用户可见的错误提示
type Announcer interface {
	Announce(message string) bool
}
