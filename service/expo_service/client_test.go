package expo_service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-token-service/models"
)

const validToken = "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &Config{TokenURL: srv.URL, AccessToken: "secret"}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return NewClient(cfg)
}

func TestGetExpoPushTokenSuccess(t *testing.T) {
	var got TokenRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"expoPushToken":"` + validToken + `"}}`))
	})

	token, err := c.GetExpoPushToken(context.Background(), &TokenRequest{
		Type: "fcm", DeviceToken: "native", ProjectID: "proj", AppID: "com.example.app",
	})
	require.NoError(t, err)
	assert.Equal(t, validToken, token)
	assert.Equal(t, "proj", got.ProjectID)
	assert.Equal(t, "native", got.DeviceToken)
	assert.Equal(t, "com.example.app", got.AppID)
}

func TestGetExpoPushTokenErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"api error code", http.StatusBadRequest, `{"errors":[{"code":"PROJECT_NOT_FOUND","message":"no such project"}]}`, CodeProjectNotFound},
		{"rate limited", http.StatusTooManyRequests, `slow down`, CodeTooManyRequests},
		{"server error", http.StatusBadGateway, `<html>`, CodeInternalServerError},
		{"unauthorized", http.StatusUnauthorized, ``, CodeUnauthorized},
		{"ok without token", http.StatusOK, `{"data":{}}`, CodeUnknown},
		{"ok with garbage token", http.StatusOK, `{"data":{"expoPushToken":"nope"}}`, CodeUnknown},
		{"ok with errors", http.StatusOK, `{"errors":[{"code":"VALIDATION_ERROR","message":"bad"}]}`, CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GetExpoPushToken(context.Background(), &TokenRequest{DeviceToken: "n", ProjectID: "p"})
			te, ok := AsTokenError(err)
			require.True(t, ok, "expected TokenError, got %v", err)
			assert.Equal(t, tt.code, te.Code)
		})
	}
}

func TestGetExpoPushTokenNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(&Config{TokenURL: url, Timeout: time.Second})
	_, err := c.GetExpoPushToken(context.Background(), &TokenRequest{DeviceToken: "n", ProjectID: "p"})
	te, ok := AsTokenError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNetworkError, te.Code)
}

func TestGetExpoPushTokenRequiresProjectID(t *testing.T) {
	c := NewClient(nil)
	_, err := c.GetExpoPushToken(context.Background(), &TokenRequest{DeviceToken: "n"})
	assert.ErrorIs(t, err, ErrMissingProjectID)
}

type fakeExchanger struct {
	token string
	err   error
	calls int
	last  *TokenRequest
}

func (f *fakeExchanger) GetExpoPushToken(_ context.Context, r *TokenRequest) (string, error) {
	f.calls++
	f.last = r
	return f.token, f.err
}

func TestProviderGetToken(t *testing.T) {
	ctx := context.Background()
	bridge := NewHostBridge(models.DeviceInfo{Platform: "android"})
	ex := &fakeExchanger{token: validToken}
	p := NewProvider(bridge, ex, &Config{AppID: "com.example", DeviceID: "install-1"})

	_, err := p.GetToken(ctx, " ")
	assert.ErrorIs(t, err, ErrMissingProjectID)

	_, err = p.GetToken(ctx, "proj")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	bridge.Report(models.PermissionGranted, nil, nil)
	_, err = p.GetToken(ctx, "proj")
	te, ok := AsTokenError(err)
	require.True(t, ok)
	assert.Equal(t, CodeDeviceTokenUnavailable, te.Code)
	assert.Zero(t, ex.calls)

	bridge.Report("", &DevicePushToken{Type: "fcm", Data: "native"}, nil)
	token, err := p.GetToken(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, validToken, token)
	assert.Equal(t, "install-1", ex.last.DeviceID)
	assert.Equal(t, "com.example", ex.last.AppID)

	ex.err = errors.New("boom")
	_, err = p.GetToken(ctx, "proj")
	assert.ErrorContains(t, err, "boom")
}

func TestHostBridgePrompt(t *testing.T) {
	ctx := context.Background()
	bridge := NewHostBridge(models.DeviceInfo{})

	state, err := bridge.RequestPermission(ctx)
	assert.ErrorIs(t, err, ErrPromptUnavailable)
	assert.Equal(t, models.PermissionUnknown, state)

	// 没有弹窗时宿主上报的拒绝原样返回，但仍然是错误
	bridge.Report(models.PermissionDenied, nil, nil)
	state, err = bridge.RequestPermission(ctx)
	assert.ErrorIs(t, err, ErrPromptUnavailable)
	assert.Equal(t, models.PermissionDenied, state)

	bridge.SetPrompt(func(context.Context) (models.PermissionState, error) {
		return models.PermissionDenied, nil
	})
	state, err = bridge.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PermissionDenied, state)

	current, _ := bridge.GetCurrentPermission(ctx)
	assert.Equal(t, models.PermissionDenied, current)

	bridge.Report("", nil, &models.DeviceInfo{Platform: "ios", Model: "iPhone"})
	assert.Equal(t, "ios", bridge.DeviceInfo().Platform)
}

func TestValidateToken(t *testing.T) {
	assert.True(t, ValidateToken(validToken))
	assert.True(t, ValidateToken("ExpoPushToken[yyyyyyyyyyyyyyyy]"))
	assert.False(t, ValidateToken("ExponentPushToken[short"))
	assert.False(t, ValidateToken("fcm:abcdefghijklmnopqrstuvwxyz"))
	assert.False(t, ValidateToken(""))
}
