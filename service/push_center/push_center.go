package pushcenter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"push-token-service/models"
	"push-token-service/service/announce_service"
	"push-token-service/service/expo_service"
	"push-token-service/service/registration_service"
	"push-token-service/tool/logx"
)

// Registrar 注册流程
type Registrar interface {
	RegisterDevice(ctx context.Context, opts registration_service.Options) bool
	Status() registration_service.Status
}

// PermissionReader 权限状态查询
type PermissionReader interface {
	CurrentStatus(ctx context.Context) models.PermissionState
}

// NotificationCache 本地通知缓存
type NotificationCache interface {
	Record(n models.CachedNotification) bool
	Snapshot() []models.CachedNotification
	Len() int
	Start() error
	Stop()
}

// Announcer 用户错误提示
type Announcer interface {
	Announce(message string) bool
	Recent() []announce_service.Announcement
}

// NativeReporter 接收宿主上报的权限、原生令牌和设备信息
type NativeReporter interface {
	Report(permission models.PermissionState, token *expo_service.DevicePushToken, device *models.DeviceInfo)
}

// SocketListener 推送事件监听
type SocketListener interface {
	Start() error
	Stop()
	IsRunning() bool
}

// Config 推送中心配置
type Config struct {
	ForegroundMinInterval time.Duration // 前台注册的最短间隔，0 表示不限制
	StartupRegistration   bool          // 启动后在后台注册一次
}

// Deps 推送中心依赖，Socket 和 Native 可以为空
type Deps struct {
	Registrar Registrar
	Gate      PermissionReader
	Cache     NotificationCache
	Announcer Announcer
	Native    NativeReporter
	Socket    SocketListener
}

// Status 推送中心运行状态
type Status struct {
	Running         bool                        `json:"running"`
	Permission      models.PermissionState      `json:"permission"`
	Registration    registration_service.Status `json:"registration"`
	CachedCount     int                         `json:"cachedCount"`
	SocketConnected bool                        `json:"socketConnected"`
}

// PushCenter 把权限、注册、缓存和提示串起来，供 HTTP 层和宿主调用
type PushCenter struct {
	deps    Deps
	config  Config
	limiter *rate.Limiter
	log     zerolog.Logger

	running bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// NewPushCenter 创建推送中心实例
func NewPushCenter(deps Deps, config *Config) (*PushCenter, error) {
	if deps.Registrar == nil || deps.Gate == nil || deps.Cache == nil || deps.Announcer == nil {
		return nil, errors.New("推送中心缺少必要依赖")
	}
	if config == nil {
		config = &Config{StartupRegistration: true}
	}
	pc := &PushCenter{
		deps:   deps,
		config: *config,
		log:    logx.With("push_center"),
	}
	if config.ForegroundMinInterval > 0 {
		pc.limiter = rate.NewLimiter(rate.Every(config.ForegroundMinInterval), 1)
	}
	return pc, nil
}

// Run 启动缓存清理、Socket 监听和启动注册
func (pc *PushCenter) Run(ctx context.Context) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.running {
		return fmt.Errorf("推送中心已经在运行中")
	}

	pc.log.Info().Msg("🚀 启动推送中心...")

	if err := pc.deps.Cache.Start(); err != nil {
		return fmt.Errorf("启动通知缓存失败: %w", err)
	}

	// Socket 连接失败不影响注册流程
	if pc.deps.Socket != nil {
		if err := pc.deps.Socket.Start(); err != nil {
			pc.log.Warn().Err(err).Msg("❌ 启动 Socket 客户端失败")
		}
	}

	if pc.config.StartupRegistration {
		pc.wg.Add(1)
		go func() {
			defer pc.wg.Done()
			ok := pc.deps.Registrar.RegisterDevice(context.WithoutCancel(ctx), registration_service.Options{})
			pc.log.Info().Bool("ok", ok).Msg("启动注册完成")
		}()
	}

	pc.running = true
	pc.log.Info().Msg("✅ 推送中心已启动")
	return nil
}

// Stop 停止推送中心，等待进行中的后台注册结束
func (pc *PushCenter) Stop() {
	pc.mu.Lock()
	if !pc.running {
		pc.mu.Unlock()
		return
	}
	pc.running = false
	pc.mu.Unlock()

	pc.log.Info().Msg("🛑 正在停止推送中心...")
	if pc.deps.Socket != nil {
		pc.deps.Socket.Stop()
	}
	pc.deps.Cache.Stop()
	pc.wg.Wait()
	pc.log.Info().Msg("✅ 推送中心已停止")
}

// IsRunning 检查推送中心是否正在运行
func (pc *PushCenter) IsRunning() bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.running
}

// Wait 等待后台注册结束
func (pc *PushCenter) Wait() {
	pc.wg.Wait()
}

// RegisterDevice 用户主动注册，同步返回结果
func (pc *PushCenter) RegisterDevice(ctx context.Context) bool {
	return pc.deps.Registrar.RegisterDevice(ctx, registration_service.Options{Interactive: true})
}

// OnForeground 应用回到前台时在后台重新注册，被节流时返回 false
func (pc *PushCenter) OnForeground(ctx context.Context) bool {
	if pc.limiter != nil && !pc.limiter.Allow() {
		pc.log.Debug().Msg("前台注册过于频繁，已忽略")
		return false
	}

	pc.wg.Add(1)
	go func() {
		defer pc.wg.Done()
		pc.deps.Registrar.RegisterDevice(context.WithoutCancel(ctx), registration_service.Options{Foreground: true})
	}()
	return true
}

// CurrentPermission 返回当前通知权限
func (pc *PushCenter) CurrentPermission(ctx context.Context) models.PermissionState {
	return pc.deps.Gate.CurrentStatus(ctx)
}

// RecordNotification 写入通知缓存
func (pc *PushCenter) RecordNotification(n models.CachedNotification) bool {
	return pc.deps.Cache.Record(n)
}

// CacheSnapshot 返回有效通知，最新在前
func (pc *PushCenter) CacheSnapshot() []models.CachedNotification {
	return pc.deps.Cache.Snapshot()
}

// Announce 向用户提示错误，被抑制时返回 false
func (pc *PushCenter) Announce(message string) bool {
	return pc.deps.Announcer.Announce(message)
}

// RecentAnnouncements 返回最近展示过的提示
func (pc *PushCenter) RecentAnnouncements() []announce_service.Announcement {
	return pc.deps.Announcer.Recent()
}

// ReportNative 宿主上报原生状态
func (pc *PushCenter) ReportNative(permission models.PermissionState, token *expo_service.DevicePushToken, device *models.DeviceInfo) error {
	if pc.deps.Native == nil {
		return errors.New("当前运行模式不接受宿主上报")
	}
	pc.deps.Native.Report(permission, token, device)
	pc.log.Info().Str("permission", string(permission)).Bool("token", token != nil).Bool("device", device != nil).Msg("📱 宿主状态已更新")
	return nil
}

// Status 返回运行状态
func (pc *PushCenter) Status(ctx context.Context) Status {
	st := Status{
		Running:      pc.IsRunning(),
		Permission:   pc.CurrentPermission(ctx),
		Registration: pc.deps.Registrar.Status(),
		CachedCount:  pc.deps.Cache.Len(),
	}
	if pc.deps.Socket != nil {
		st.SocketConnected = pc.deps.Socket.IsRunning()
	}
	return st
}
