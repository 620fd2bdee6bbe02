package expo_service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"push-token-service/models"
	"push-token-service/tool/logx"
)

// DevicePushToken is the native token minted by APNs or FCM
type DevicePushToken struct {
	Type     string `json:"type" binding:"required"` // "apns" or "fcm"
	Data     string `json:"data" binding:"required"` // Native token
	DeviceID string `json:"deviceId,omitempty"`      // Installation id
}

// PlatformBridge is the host side of the notification platform
type PlatformBridge interface {
	GetCurrentPermission(ctx context.Context) (models.PermissionState, error)
	RequestPermission(ctx context.Context) (models.PermissionState, error)
	GetDevicePushToken(ctx context.Context) (*DevicePushToken, error)
}

// Exchanger swaps a native token for an Expo push token
type Exchanger interface {
	GetExpoPushToken(ctx context.Context, request *TokenRequest) (string, error)
}

// Provider mints Expo push tokens for this device
type Provider struct {
	bridge    PlatformBridge
	exchanger Exchanger
	config    *Config
	log       zerolog.Logger
}

// NewProvider creates a token provider
func NewProvider(bridge PlatformBridge, exchanger Exchanger, config *Config) *Provider {
	if config == nil {
		config = DefaultConfig()
	}
	return &Provider{
		bridge:    bridge,
		exchanger: exchanger,
		config:    config,
		log:       logx.With("expo"),
	}
}

// GetCurrentPermission reports the platform permission without prompting
func (p *Provider) GetCurrentPermission(ctx context.Context) (models.PermissionState, error) {
	return p.bridge.GetCurrentPermission(ctx)
}

// RequestPermission shows the platform permission dialog
func (p *Provider) RequestPermission(ctx context.Context) (models.PermissionState, error) {
	return p.bridge.RequestPermission(ctx)
}

// GetToken returns an Expo push token for the given project.
// Failures are *TokenError values carrying a classification code.
func (p *Provider) GetToken(ctx context.Context, projectID string) (string, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", &TokenError{Code: CodeValidationError, Err: ErrMissingProjectID}
	}

	state, err := p.bridge.GetCurrentPermission(ctx)
	if err != nil {
		return "", &TokenError{Code: CodeUnknown, Message: "failed to read permission", Err: err}
	}
	if !state.IsGranted() {
		return "", &TokenError{Code: CodePermissionDenied, Message: string(state), Err: ErrPermissionDenied}
	}

	native, err := p.bridge.GetDevicePushToken(ctx)
	if err != nil {
		if _, ok := AsTokenError(err); ok {
			return "", err
		}
		return "", &TokenError{Code: CodeDeviceTokenUnavailable, Message: "failed to get device token", Err: err}
	}
	if native == nil || native.Data == "" {
		return "", &TokenError{Code: CodeDeviceTokenUnavailable, Message: "device token not ready"}
	}

	deviceID := native.DeviceID
	if deviceID == "" {
		deviceID = p.config.DeviceID
	}
	token, err := p.exchanger.GetExpoPushToken(ctx, &TokenRequest{
		Type:        native.Type,
		DeviceID:    deviceID,
		Development: p.config.Development,
		AppID:       p.config.AppID,
		DeviceToken: native.Data,
		ProjectID:   projectID,
	})
	if err != nil {
		var te *TokenError
		if errors.As(err, &te) {
			return "", err
		}
		return "", fmt.Errorf("token exchange failed: %w", err)
	}

	p.log.Debug().Str("type", native.Type).Str("token", maskToken(token)).Msg("✅ Expo push token acquired")
	return token, nil
}

// maskToken keeps logs free of full tokens
func maskToken(token string) string {
	if len(token) <= 24 {
		return token
	}
	return token[:20] + "..." + token[len(token)-4:]
}
