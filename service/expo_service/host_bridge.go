package expo_service

import (
	"context"
	"sync"

	"push-token-service/models"
)

// PromptFunc asks the user for notification permission
type PromptFunc func(ctx context.Context) (models.PermissionState, error)

// HostBridge is a PlatformBridge fed by the host application.
// The host reports permission, native token and device info as they change.
type HostBridge struct {
	mu         sync.RWMutex
	permission models.PermissionState
	token      *DevicePushToken
	device     models.DeviceInfo
	prompt     PromptFunc
}

// NewHostBridge creates a bridge with unknown permission and no token
func NewHostBridge(device models.DeviceInfo) *HostBridge {
	return &HostBridge{
		permission: models.PermissionUnknown,
		device:     device,
	}
}

// SetPrompt installs the interactive permission request
func (b *HostBridge) SetPrompt(prompt PromptFunc) {
	b.mu.Lock()
	b.prompt = prompt
	b.mu.Unlock()
}

// Report updates the platform state. Zero values leave the field unchanged.
func (b *HostBridge) Report(permission models.PermissionState, token *DevicePushToken, device *models.DeviceInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if permission != "" {
		b.permission = permission
	}
	if token != nil && token.Data != "" {
		t := *token
		b.token = &t
	}
	if device != nil && device.Platform != "" {
		b.device = *device
	}
}

func (b *HostBridge) GetCurrentPermission(_ context.Context) (models.PermissionState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.permission, nil
}

// RequestPermission runs the installed prompt. Without one nothing is
// shown to the user, so the last reported state comes back together with
// ErrPromptUnavailable.
func (b *HostBridge) RequestPermission(ctx context.Context) (models.PermissionState, error) {
	b.mu.RLock()
	prompt := b.prompt
	b.mu.RUnlock()

	if prompt == nil {
		state, _ := b.GetCurrentPermission(ctx)
		return state, ErrPromptUnavailable
	}
	state, err := prompt(ctx)
	if err != nil {
		return models.PermissionUnknown, err
	}
	b.mu.Lock()
	b.permission = state
	b.mu.Unlock()
	return state, nil
}

func (b *HostBridge) GetDevicePushToken(_ context.Context) (*DevicePushToken, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.token == nil {
		return nil, &TokenError{Code: CodeDeviceTokenUnavailable, Message: "device token not reported yet"}
	}
	t := *b.token
	return &t, nil
}

// DeviceInfo returns the last reported device info
func (b *HostBridge) DeviceInfo() models.DeviceInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.device
}
