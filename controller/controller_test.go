package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-token-service/controller/auth"
	"push-token-service/controller/respond"
	"push-token-service/models"
	"push-token-service/service/announce_service"
	"push-token-service/service/expo_service"
	pushcenter "push-token-service/service/push_center"
	"push-token-service/tool"
)

type fakeCenter struct {
	mu         sync.Mutex
	recorded   []models.CachedNotification
	announced  []string
	permission models.PermissionState
	token      *expo_service.DevicePushToken
	device     *models.DeviceInfo
}

func (f *fakeCenter) RegisterDevice(context.Context) bool { return true }
func (f *fakeCenter) OnForeground(context.Context) bool   { return false }

func (f *fakeCenter) CurrentPermission(context.Context) models.PermissionState {
	return models.PermissionDeniedPersisted
}

func (f *fakeCenter) CacheSnapshot() []models.CachedNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CachedNotification(nil), f.recorded...)
}

func (f *fakeCenter) RecordNotification(n models.CachedNotification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, n)
	return true
}

func (f *fakeCenter) Announce(message string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, message)
	return len(f.announced) == 1
}

func (f *fakeCenter) RecentAnnouncements() []announce_service.Announcement {
	return []announce_service.Announcement{{Message: "boom"}}
}

func (f *fakeCenter) ReportNative(p models.PermissionState, token *expo_service.DevicePushToken, device *models.DeviceInfo) error {
	f.permission, f.token, f.device = p, token, device
	return nil
}

func (f *fakeCenter) Status(context.Context) pushcenter.Status {
	return pushcenter.Status{Running: true, CachedCount: len(f.recorded)}
}

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	ElapsedMs *int64          `json:"elapsedMs"`
	Data      json.RawMessage `json:"data"`
}

func call(t *testing.T, r *gin.Engine, method, path, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestDeviceRoutes(t *testing.T) {
	center := &fakeCenter{}
	r := NewRouter(center, "")

	code, env := call(t, r, http.MethodPost, "/v1/device/register", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, respond.CodeSuccess, env.Code)
	assert.JSONEq(t, `{"registered":true}`, string(env.Data))
	require.NotNil(t, env.ElapsedMs)
	assert.GreaterOrEqual(t, *env.ElapsedMs, int64(0))

	_, env = call(t, r, http.MethodGet, "/v1/device/permission", "", nil)
	assert.JSONEq(t, `{"permission":"denied_persisted"}`, string(env.Data))

	_, env = call(t, r, http.MethodPost, "/v1/lifecycle/foreground", "", nil)
	assert.JSONEq(t, `{"scheduled":false}`, string(env.Data))

	_, env = call(t, r, http.MethodPut, "/v1/device/native",
		`{"permission":"granted","token":{"type":"ios","data":"apns-1"},"device":{"platform":"ios","model":"iPhone"}}`, nil)
	assert.Equal(t, respond.CodeSuccess, env.Code)
	assert.Equal(t, models.PermissionGranted, center.permission)
	require.NotNil(t, center.token)
	assert.Equal(t, "apns-1", center.token.Data)
	require.NotNil(t, center.device)
	assert.Equal(t, "iPhone", center.device.Model)

	code, env = call(t, r, http.MethodPut, "/v1/device/native", `{"token":{"type":"ios"}}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, respond.CodeError, env.Code)

	_, env = call(t, r, http.MethodGet, "/v1/device/status", "", nil)
	assert.Contains(t, string(env.Data), `"running":true`)
}

func TestNotificationRoutes(t *testing.T) {
	center := &fakeCenter{}
	r := NewRouter(center, "")

	_, env := call(t, r, http.MethodPost, "/v1/notifications", `{"id":"n-1","title":"Hi","sentAt":1777629600000}`, nil)
	assert.JSONEq(t, `{"recorded":true}`, string(env.Data))
	require.Len(t, center.recorded, 1)
	assert.Equal(t, int64(1777629600000), center.recorded[0].SentAt.UnixMilli())

	code, _ := call(t, r, http.MethodPost, "/v1/notifications", `{"title":"no id"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	_, env = call(t, r, http.MethodGet, "/v1/notifications", "", nil)
	var list []models.CachedNotification
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "n-1", list[0].ID)
}

func TestErrorRoutes(t *testing.T) {
	r := NewRouter(&fakeCenter{}, "")

	_, env := call(t, r, http.MethodPost, "/v1/errors/announce", `{"message":"boom"}`, nil)
	assert.JSONEq(t, `{"shown":true}`, string(env.Data))
	_, env = call(t, r, http.MethodPost, "/v1/errors/announce", `{"message":"boom"}`, nil)
	assert.JSONEq(t, `{"shown":false}`, string(env.Data))

	_, env = call(t, r, http.MethodGet, "/v1/errors/recent", "", nil)
	assert.Contains(t, string(env.Data), "boom")
}

func TestSignedRoutes(t *testing.T) {
	const priv = "0202020202020202020202020202020202020202020202020202020202020202"
	pub, err := tool.PublicKeyHex(priv)
	require.NoError(t, err)
	r := NewRouter(&fakeCenter{}, pub)

	code, env := call(t, r, http.MethodPost, "/v1/errors/announce", `{"message":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, respond.CodeAuth, env.Code)

	body := `{"message":"x"}`
	sig, err := tool.SignMessage(body, priv)
	require.NoError(t, err)
	code, env = call(t, r, http.MethodPost, "/v1/errors/announce", body, map[string]string{
		auth.HeaderPublicKey: pub,
		auth.HeaderSignature: sig,
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, respond.CodeSuccess, env.Code)

	// 读接口不需要签名
	code, _ = call(t, r, http.MethodGet, "/v1/device/permission", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCorsPreflight(t *testing.T) {
	r := NewRouter(&fakeCenter{}, "")
	req := httptest.NewRequest(http.MethodOptions, "/v1/errors/announce", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", auth.HeaderSignature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
