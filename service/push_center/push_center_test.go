package pushcenter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-token-service/models"
	"push-token-service/service/announce_service"
	"push-token-service/service/cache_service"
	"push-token-service/service/expo_service"
	"push-token-service/service/registration_service"
)

type fakeRegistrar struct {
	mu    sync.Mutex
	calls []registration_service.Options
}

func (f *fakeRegistrar) RegisterDevice(ctx context.Context, opts registration_service.Options) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	return ctx.Err() == nil
}

func (f *fakeRegistrar) Status() registration_service.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return registration_service.Status{Attempts: int64(len(f.calls))}
}

func (f *fakeRegistrar) snapshot() []registration_service.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]registration_service.Options(nil), f.calls...)
}

type staticGate models.PermissionState

func (g staticGate) CurrentStatus(context.Context) models.PermissionState {
	return models.PermissionState(g)
}

type fakeSocket struct {
	started, stopped bool
}

func (s *fakeSocket) Start() error    { s.started = true; return nil }
func (s *fakeSocket) Stop()           { s.stopped = true }
func (s *fakeSocket) IsRunning() bool { return s.started && !s.stopped }

func newCenter(t *testing.T, cfg *Config, socket SocketListener) (*PushCenter, *fakeRegistrar) {
	t.Helper()
	cache, err := cache_service.NewCache(cache_service.DefaultConfig())
	require.NoError(t, err)
	reg := &fakeRegistrar{}
	pc, err := NewPushCenter(Deps{
		Registrar: reg,
		Gate:      staticGate(models.PermissionGranted),
		Cache:     cache,
		Announcer: announce_service.NewAnnouncer(announce_service.DefaultConfig()),
		Native:    expo_service.NewHostBridge(models.DeviceInfo{Platform: "ios"}),
		Socket:    socket,
	}, cfg)
	require.NoError(t, err)
	return pc, reg
}

func TestRunStartsStartupRegistration(t *testing.T) {
	socket := &fakeSocket{}
	pc, reg := newCenter(t, &Config{StartupRegistration: true}, socket)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pc.Run(ctx))
	// 启动注册不受调用方 ctx 取消影响
	cancel()
	pc.Wait()

	calls := reg.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, registration_service.Options{}, calls[0])
	assert.True(t, pc.IsRunning())
	assert.True(t, pc.Status(context.Background()).SocketConnected)
	assert.Error(t, pc.Run(context.Background()))

	pc.Stop()
	assert.False(t, pc.IsRunning())
	assert.True(t, socket.stopped)
	pc.Stop()
}

func TestRegisterDeviceIsInteractive(t *testing.T) {
	pc, reg := newCenter(t, &Config{}, nil)
	assert.True(t, pc.RegisterDevice(context.Background()))
	assert.Equal(t, []registration_service.Options{{Interactive: true}}, reg.snapshot())
}

func TestOnForegroundThrottled(t *testing.T) {
	pc, reg := newCenter(t, &Config{ForegroundMinInterval: time.Hour}, nil)

	assert.True(t, pc.OnForeground(context.Background()))
	assert.False(t, pc.OnForeground(context.Background()))
	pc.Wait()

	assert.Equal(t, []registration_service.Options{{Foreground: true}}, reg.snapshot())
}

func TestOnForegroundUnthrottled(t *testing.T) {
	pc, reg := newCenter(t, &Config{}, nil)

	for i := 0; i < 3; i++ {
		assert.True(t, pc.OnForeground(context.Background()))
	}
	pc.Wait()
	assert.Len(t, reg.snapshot(), 3)
}

func TestCacheAndAnnouncePassThrough(t *testing.T) {
	pc, _ := newCenter(t, nil, nil)

	assert.True(t, pc.RecordNotification(models.CachedNotification{ID: "a", Title: "t"}))
	assert.False(t, pc.RecordNotification(models.CachedNotification{ID: "a", Title: "t"}))
	require.Len(t, pc.CacheSnapshot(), 1)

	assert.True(t, pc.Announce("boom"))
	assert.False(t, pc.Announce("boom"))
	require.Len(t, pc.RecentAnnouncements(), 1)

	st := pc.Status(context.Background())
	assert.Equal(t, models.PermissionGranted, st.Permission)
	assert.Equal(t, 1, st.CachedCount)
	assert.False(t, st.SocketConnected)
}

func TestReportNative(t *testing.T) {
	pc, _ := newCenter(t, nil, nil)
	require.NoError(t, pc.ReportNative(models.PermissionGranted, &expo_service.DevicePushToken{Type: "ios", Data: "apns"}, nil))

	pc.deps.Native = nil
	assert.Error(t, pc.ReportNative(models.PermissionGranted, nil, nil))
}

func TestNewPushCenterRequiresDeps(t *testing.T) {
	_, err := NewPushCenter(Deps{}, nil)
	assert.Error(t, err)
}
