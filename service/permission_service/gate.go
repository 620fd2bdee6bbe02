package permission_service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"push-token-service/models"
	"push-token-service/tool/logx"
)

const (
	// DeniedFlagKey 持久化拒绝标记的 key
	DeniedFlagKey = "notification_permission_denied"
	deniedValue   = "true"

	MessagePermissionDenied = "Notifications are turned off. Enable them in system settings to receive updates."
)

// Gate 通知权限守卫，记住用户明确拒绝的决定，避免重复弹窗
type Gate struct {
	platform  Platform
	flags     FlagStore
	announcer Announcer
	log       zerolog.Logger

	// 同一时刻只允许一个交互式请求
	promptMu sync.Mutex
}

// NewGate 创建权限守卫，announcer 可以为 nil
func NewGate(platform Platform, flags FlagStore, announcer Announcer) *Gate {
	return &Gate{
		platform:  platform,
		flags:     flags,
		announcer: announcer,
		log:       logx.With("permission"),
	}
}

// IsDeniedPersisted 只读持久化标记，不调用平台；读取失败视为未设置
func (g *Gate) IsDeniedPersisted(ctx context.Context) bool {
	v, ok, err := g.flags.Get(ctx, DeniedFlagKey)
	if err != nil {
		g.log.Warn().Err(err).Msg("⚠️ 读取拒绝标记失败")
		return false
	}
	return ok && v == deniedValue
}

// CurrentStatus 返回当前权限状态，不弹窗。平台报告已授权时清除拒绝标记
func (g *Gate) CurrentStatus(ctx context.Context) models.PermissionState {
	state, err := g.platform.GetCurrentPermission(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("⚠️ 查询通知权限失败")
		state = models.PermissionUnknown
	}
	if state.IsGranted() {
		g.clearDenied(ctx)
		return models.PermissionGranted
	}
	if g.IsDeniedPersisted(ctx) {
		return models.PermissionDeniedPersisted
	}
	return state
}

// EnsureGranted 确保已授权。拒绝标记存在时直接返回 DeniedPersisted，不调用平台；
// 否则最多发起一次交互式请求。只有请求成功返回拒绝才写入标记，
// 请求出错（包括平台没有可用的弹窗）时返回平台当前状态，不写标记
func (g *Gate) EnsureGranted(ctx context.Context) models.PermissionState {
	if g.IsDeniedPersisted(ctx) {
		return models.PermissionDeniedPersisted
	}
	if state := g.queryCurrent(ctx); state.IsGranted() {
		g.clearDenied(ctx)
		return models.PermissionGranted
	}

	g.promptMu.Lock()
	defer g.promptMu.Unlock()

	// 等锁期间其他调用可能已经得到结果
	if g.IsDeniedPersisted(ctx) {
		return models.PermissionDeniedPersisted
	}
	if state := g.queryCurrent(ctx); state.IsGranted() {
		g.clearDenied(ctx)
		return models.PermissionGranted
	}

	g.log.Info().Msg("🔔 请求通知权限")
	state, err := g.platform.RequestPermission(ctx)
	if err != nil {
		// 请求本身失败不等于用户拒绝，不写标记
		g.log.Warn().Err(err).Str("reported", string(state)).Msg("⚠️ 请求通知权限失败")
		if state == models.PermissionDenied {
			return models.PermissionDenied
		}
		return models.PermissionUnknown
	}

	switch state {
	case models.PermissionGranted:
		g.clearDenied(ctx)
		g.log.Info().Msg("✅ 通知权限已授权")
		return models.PermissionGranted
	case models.PermissionDenied, models.PermissionDeniedPersisted:
		g.MarkDenied(ctx)
		return models.PermissionDeniedPersisted
	default:
		return state
	}
}

// MarkDenied 写入拒绝标记并提示一次，标记已存在时不重复提示
func (g *Gate) MarkDenied(ctx context.Context) {
	if g.IsDeniedPersisted(ctx) {
		return
	}
	if err := g.flags.Set(ctx, DeniedFlagKey, deniedValue); err != nil {
		g.log.Error().Err(err).Msg("❌ 写入拒绝标记失败")
	} else {
		g.log.Info().Msg("🚫 用户拒绝通知权限，已记录")
	}
	if g.announcer != nil {
		g.announcer.Announce(MessagePermissionDenied)
	}
}

func (g *Gate) queryCurrent(ctx context.Context) models.PermissionState {
	state, err := g.platform.GetCurrentPermission(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("⚠️ 查询通知权限失败")
		return models.PermissionUnknown
	}
	return state
}

func (g *Gate) clearDenied(ctx context.Context) {
	_, ok, err := g.flags.Get(ctx, DeniedFlagKey)
	if err != nil || !ok {
		return
	}
	if err := g.flags.Remove(ctx, DeniedFlagKey); err != nil {
		g.log.Warn().Err(err).Msg("⚠️ 清除拒绝标记失败")
		return
	}
	g.log.Info().Msg("♻️ 检测到权限已授权，清除拒绝标记")
}
