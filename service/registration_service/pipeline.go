package registration_service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"push-token-service/models"
	"push-token-service/service/expo_service"
	"push-token-service/service/registry_service"
	"push-token-service/tool/logx"
)

// 用户可见的提示文案
const (
	MessageNetwork       = "Unable to reach the notification service. Check your connection and try again."
	MessageConfiguration = "Push notifications are not configured for this build."
	MessageUnknown       = "Could not register for push notifications."
)

const flightKey = "register"

// ErrDeviceUnreported 宿主尚未上报设备信息
var ErrDeviceUnreported = errors.New("device info not reported")

// PermissionGate 权限守卫
type PermissionGate interface {
	EnsureGranted(ctx context.Context) models.PermissionState
	IsDeniedPersisted(ctx context.Context) bool
	MarkDenied(ctx context.Context)
}

// TokenProvider 令牌签发
type TokenProvider interface {
	GetToken(ctx context.Context, projectID string) (string, error)
}

// Announcer 用户错误提示
type Announcer interface {
	Announce(message string) bool
}

// DeviceSource 当前设备信息
type DeviceSource interface {
	DeviceInfo() models.DeviceInfo
}

// Deps 注册流程依赖
type Deps struct {
	Gate      PermissionGate
	Tokens    TokenProvider
	Registry  registry_service.Registry
	Announcer Announcer
	Device    DeviceSource
	ProjectID func() string // 每次尝试时解析，配置热更新后立即生效
}

// Options 单次调用选项
type Options struct {
	Interactive bool // 用户主动触发，临时错误也提示
	Foreground  bool // 前台切换触发，拒绝标记存在或配置错误未修复时直接跳过
}

// Status 最近一次注册的结果
type Status struct {
	Attempts      int64     `json:"attempts"`
	Successes     int64     `json:"successes"`
	LastAttemptAt time.Time `json:"lastAttemptAt"`
	LastSuccessAt time.Time `json:"lastSuccessAt"`
	LastErrorKind string    `json:"lastErrorKind,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
	Token         string    `json:"token,omitempty"`
}

// Pipeline 权限检查 → 申请令牌 → 写入存储 → 停用同设备旧记录
type Pipeline struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger

	group   singleflight.Group
	startup sync.Once

	mu sync.Mutex
	// 配置错误时记下当时的项目ID，项目ID变化前前台切换不再尝试
	brokenProjectID *string
	status          Status

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewPipeline 创建注册流程
func NewPipeline(deps Deps, cfg *Config) (*Pipeline, error) {
	if deps.Gate == nil || deps.Tokens == nil || deps.Registry == nil || deps.Device == nil {
		return nil, errors.New("注册流程缺少必要依赖")
	}
	if deps.ProjectID == nil {
		deps.ProjectID = func() string { return "" }
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("注册流程配置无效: %w", err)
	}
	return &Pipeline{
		deps:  deps,
		cfg:   c,
		log:   logx.With("registration"),
		sleep: sleepContext,
		now:   time.Now,
	}, nil
}

// RegisterDevice 执行一次注册，令牌成功写入存储时返回 true。
// 并发调用合并为一次，合并的调用共享第一个调用的 ctx 和 opts
func (p *Pipeline) RegisterDevice(ctx context.Context, opts Options) bool {
	if opts.Foreground {
		if p.deps.Gate.IsDeniedPersisted(ctx) {
			p.log.Debug().Msg("用户已拒绝通知权限，跳过前台注册")
			return false
		}
		if p.configPending() {
			p.log.Debug().Msg("项目配置错误未修复，跳过前台注册")
			return false
		}
	}

	v, _, shared := p.group.Do(flightKey, func() (interface{}, error) {
		return p.attempt(ctx, opts), nil
	})
	if shared {
		p.log.Debug().Msg("合并到进行中的注册")
	}
	return v.(bool)
}

// Status 返回最近一次注册的结果
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) attempt(ctx context.Context, opts Options) bool {
	p.startup.Do(func() {
		if p.cfg.StartupDelay > 0 {
			p.log.Debug().Str("delay", p.cfg.StartupDelay.String()).Msg("⏳ 等待宿主运行时就绪")
			_ = p.sleep(ctx, p.cfg.StartupDelay)
		}
	})

	p.mu.Lock()
	p.status.Attempts++
	p.status.LastAttemptAt = p.now()
	p.mu.Unlock()

	state := p.deps.Gate.EnsureGranted(ctx)
	if !state.IsGranted() {
		p.log.Info().Str("permission", string(state)).Msg("🚫 未获得通知权限，放弃注册")
		p.recordFailure(KindPermission, fmt.Errorf("permission %s", state))
		return false
	}

	projectID := strings.TrimSpace(p.deps.ProjectID())
	if projectID == "" {
		p.handleFailure(ctx, KindConfiguration, expo_service.ErrMissingProjectID, opts, projectID)
		return false
	}

	device := p.deps.Device.DeviceInfo()
	if !models.IsReportedIdentity(device.Identity()) {
		// 宿主还没上报设备信息，等下次触发
		p.log.Info().Msg("📱 设备信息尚未上报，跳过注册")
		p.recordFailure(KindTransient, ErrDeviceUnreported)
		return false
	}

	token, err := p.deps.Tokens.GetToken(ctx, projectID)
	if err != nil {
		p.handleFailure(ctx, Classify(err), err, opts, projectID)
		return false
	}

	now := p.now()
	reg := &models.PushRegistration{
		Token:          token,
		DeviceIdentity: device.Identity(),
		DeviceMetadata: device.Metadata(),
		IsActive:       true,
		LastActiveAt:   now,
		UpdatedAt:      now,
	}
	if err := p.store(ctx, reg); err != nil {
		p.handleFailure(ctx, ClassifyStore(err), err, opts, projectID)
		return false
	}

	// 停用失败不回滚，下次注册成功时会再次修正
	n, err := p.deps.Registry.DeactivateOthers(ctx, reg.DeviceIdentity, token)
	if err != nil {
		p.log.Warn().Err(err).Str("device", reg.DeviceIdentity).Msg("⚠️ 停用同设备旧令牌失败")
	} else if n > 0 {
		p.log.Info().Int64("count", n).Str("device", reg.DeviceIdentity).Msg("♻️ 已停用同设备旧令牌")
	}

	p.mu.Lock()
	p.brokenProjectID = nil
	p.status.Successes++
	p.status.LastSuccessAt = now
	p.status.LastErrorKind = ""
	p.status.LastError = ""
	p.status.Token = token
	p.mu.Unlock()

	p.log.Info().Str("device", reg.DeviceIdentity).Msg("✅ 推送令牌注册成功")
	return true
}

// store 按 token upsert，唯一冲突时退回按 token 更新一次，临时错误指数退避重试
func (p *Pipeline) store(ctx context.Context, reg *models.PushRegistration) error {
	for retry := 0; ; retry++ {
		err := p.deps.Registry.Upsert(ctx, reg)
		if err == nil {
			return nil
		}

		switch ClassifyStore(err) {
		case KindConflict:
			p.log.Debug().Err(err).Msg("upsert 冲突，改为按 token 更新")
			n, uerr := p.deps.Registry.Update(ctx, registry_service.ByToken(reg.Token), registry_service.PatchFromRegistration(reg))
			if uerr != nil {
				return uerr
			}
			if n == 0 {
				return fmt.Errorf("%w: fallback update matched no rows", registry_service.ErrConflict)
			}
			return nil
		case KindTransient:
			if retry >= p.cfg.MaxRetries {
				return err
			}
			if werr := p.waitBeforeRetry(ctx, retry+1); werr != nil {
				return err
			}
		default:
			return err
		}
	}
}

// waitBeforeRetry implements exponential backoff
func (p *Pipeline) waitBeforeRetry(ctx context.Context, retryCount int) error {
	// Exponential backoff: baseDelay * 2^(retryCount-1)
	delay := time.Duration(float64(p.cfg.BaseDelay) * math.Pow(2, float64(retryCount-1)))

	// Add some jitter to avoid thundering herd
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
	delay += jitter

	p.log.Debug().Str("delay", delay.String()).Int("retry", retryCount).Msg("等待后重试写入")
	return p.sleep(ctx, delay)
}

func (p *Pipeline) handleFailure(ctx context.Context, kind ErrorKind, err error, opts Options, projectID string) {
	p.recordFailure(kind, err)
	log := p.log.With().Str("kind", kind.String()).Logger()

	switch kind {
	case KindTransient:
		// 临时错误不写拒绝标记，后台调用不打扰用户
		log.Warn().Err(err).Msg("🌐 注册遇到临时错误，等待下次触发")
		if opts.Interactive {
			p.announce(MessageNetwork)
		}
	case KindPermission:
		log.Warn().Err(err).Msg("🚫 平台拒绝通知权限")
		p.deps.Gate.MarkDenied(ctx)
	case KindConfiguration:
		log.Error().Err(err).Str("projectId", projectID).Msg("❌ 项目配置错误，需要修复配置后重试")
		p.mu.Lock()
		p.brokenProjectID = &projectID
		p.mu.Unlock()
		p.announce(MessageConfiguration)
	case KindConflict:
		log.Warn().Err(err).Msg("⚠️ 注册写入冲突")
	default:
		log.Error().Err(err).Msg("❌ 注册失败")
		p.announce(MessageUnknown)
	}
}

func (p *Pipeline) recordFailure(kind ErrorKind, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.LastErrorKind = kind.String()
	p.status.LastError = err.Error()
}

func (p *Pipeline) configPending() bool {
	p.mu.Lock()
	broken := p.brokenProjectID
	p.mu.Unlock()
	if broken == nil {
		return false
	}
	return strings.TrimSpace(p.deps.ProjectID()) == *broken
}

func (p *Pipeline) announce(message string) {
	if p.deps.Announcer != nil {
		p.deps.Announcer.Announce(message)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
