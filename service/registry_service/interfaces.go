package registry_service

import (
	"context"
	"errors"
	"strings"
	"time"

	"push-token-service/models"
)

var (
	// ErrConflict 唯一约束冲突
	ErrConflict = errors.New("registry: uniqueness conflict")
	// ErrUnavailable 存储不可达，可重试
	ErrUnavailable = errors.New("registry: store unavailable")
	// ErrInvalidRegistration 参数无效
	ErrInvalidRegistration = errors.New("registry: invalid registration")
)

// Registry 推送令牌注册存储，token 唯一
type Registry interface {
	// Upsert 按 token 插入或更新，重复调用不产生新行
	Upsert(ctx context.Context, reg *models.PushRegistration) error
	// Update 按过滤条件更新，返回影响行数
	Update(ctx context.Context, filter Filter, patch Patch) (int64, error)
	// DeactivateOthers 把同一设备身份下除 exceptToken 外的记录全部置为无效
	DeactivateOthers(ctx context.Context, deviceIdentity, exceptToken string) (int64, error)
	// List 按过滤条件查询，按 updated_at 倒序
	List(ctx context.Context, filter Filter) ([]*models.PushRegistration, error)
	Close() error
}

// Filter 查询和更新条件，字段之间为 AND
type Filter struct {
	Token          string
	DeviceIdentity string
	ActiveOnly     bool
}

// ByToken 按 token 过滤
func ByToken(token string) Filter {
	return Filter{Token: token}
}

// ByDevice 按设备身份过滤
func ByDevice(deviceIdentity string) Filter {
	return Filter{DeviceIdentity: deviceIdentity}
}

// IsEmpty 没有任何条件
func (f Filter) IsEmpty() bool {
	return f.Token == "" && f.DeviceIdentity == "" && !f.ActiveOnly
}

func (f Filter) matches(r *models.PushRegistration) bool {
	if f.Token != "" && r.Token != f.Token {
		return false
	}
	if f.DeviceIdentity != "" && r.DeviceIdentity != f.DeviceIdentity {
		return false
	}
	if f.ActiveOnly && !r.IsActive {
		return false
	}
	return true
}

// Patch 部分更新，nil 字段保持不变
type Patch struct {
	DeviceIdentity *string
	DeviceMetadata models.DeviceMetadata
	IsActive       *bool
	LastActiveAt   *time.Time
	UpdatedAt      *time.Time
}

// IsEmpty 没有任何待更新字段
func (p Patch) IsEmpty() bool {
	return p.DeviceIdentity == nil && p.DeviceMetadata == nil && p.IsActive == nil &&
		p.LastActiveAt == nil && p.UpdatedAt == nil
}

// PatchFromRegistration 用注册记录的全部可变字段构造 Patch
func PatchFromRegistration(reg *models.PushRegistration) Patch {
	identity := reg.DeviceIdentity
	active := reg.IsActive
	lastActive := reg.LastActiveAt
	updated := reg.UpdatedAt
	md := reg.DeviceMetadata
	if md == nil {
		md = models.DeviceMetadata{}
	}
	return Patch{
		DeviceIdentity: &identity,
		DeviceMetadata: md,
		IsActive:       &active,
		LastActiveAt:   &lastActive,
		UpdatedAt:      &updated,
	}
}

func (p Patch) apply(r *models.PushRegistration, now time.Time) {
	if p.DeviceIdentity != nil {
		r.DeviceIdentity = *p.DeviceIdentity
	}
	if p.DeviceMetadata != nil {
		r.DeviceMetadata = p.DeviceMetadata
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	if p.LastActiveAt != nil {
		r.LastActiveAt = *p.LastActiveAt
	}
	if p.UpdatedAt != nil {
		r.UpdatedAt = *p.UpdatedAt
	} else {
		r.UpdatedAt = now
	}
}

// validateRegistration 校验并补全 upsert 参数
func validateRegistration(reg *models.PushRegistration, now time.Time) error {
	if reg == nil {
		return ErrInvalidRegistration
	}
	reg.Token = strings.TrimSpace(reg.Token)
	if reg.Token == "" {
		return errors.Join(ErrInvalidRegistration, errors.New("token is required"))
	}
	if !models.IsReportedIdentity(reg.DeviceIdentity) {
		return errors.Join(ErrInvalidRegistration, errors.New("device identity is required"))
	}
	if reg.DeviceMetadata == nil {
		reg.DeviceMetadata = models.DeviceMetadata{}
	}
	if reg.UpdatedAt.IsZero() {
		reg.UpdatedAt = now
	}
	if reg.LastActiveAt.IsZero() {
		reg.LastActiveAt = reg.UpdatedAt
	}
	return nil
}

func validateUpdate(filter Filter, patch Patch) error {
	if filter.IsEmpty() {
		return errors.Join(ErrInvalidRegistration, errors.New("update requires a filter"))
	}
	if patch.IsEmpty() {
		return errors.Join(ErrInvalidRegistration, errors.New("update requires at least one field"))
	}
	return nil
}
