package registry_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"push-token-service/models"
)

// GormRegistry 基于 gorm 的实现，线上使用 mysql
type GormRegistry struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRegistry 包装已打开的 gorm 连接并迁移表结构。
// 连接需要开启 TranslateError，唯一冲突才能识别为 ErrConflict
func NewGormRegistry(db *gorm.DB) (*GormRegistry, error) {
	if err := db.AutoMigrate(&models.PushRegistration{}); err != nil {
		return nil, fmt.Errorf("迁移 push_registrations 表失败: %w", mapGormError(err))
	}
	return &GormRegistry{db: db, now: time.Now}, nil
}

func (r *GormRegistry) Upsert(ctx context.Context, reg *models.PushRegistration) error {
	if err := validateRegistration(reg, r.now()); err != nil {
		return err
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}

	// Atomic upsert: INSERT ... ON DUPLICATE KEY UPDATE (mysql) / ON CONFLICT (token) DO UPDATE
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"device_identity", "device_metadata", "is_active", "last_active_at", "updated_at"}),
	}).Create(reg).Error
	if err != nil {
		return fmt.Errorf("upsert push registration: %w", mapGormError(err))
	}

	var existing models.PushRegistration
	if err := r.db.WithContext(ctx).Select("id").Where("token = ?", reg.Token).Take(&existing).Error; err == nil {
		reg.ID = existing.ID
	}
	return nil
}

func (r *GormRegistry) Update(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	if err := validateUpdate(filter, patch); err != nil {
		return 0, err
	}

	updates := map[string]interface{}{}
	if patch.DeviceIdentity != nil {
		updates["device_identity"] = *patch.DeviceIdentity
	}
	if patch.DeviceMetadata != nil {
		updates["device_metadata"] = patch.DeviceMetadata
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if patch.LastActiveAt != nil {
		updates["last_active_at"] = *patch.LastActiveAt
	}
	if patch.UpdatedAt != nil {
		updates["updated_at"] = *patch.UpdatedAt
	} else {
		updates["updated_at"] = r.now()
	}

	res := r.scoped(ctx, filter).Updates(updates)
	if res.Error != nil {
		return 0, fmt.Errorf("update push registration: %w", mapGormError(res.Error))
	}
	return res.RowsAffected, nil
}

func (r *GormRegistry) DeactivateOthers(ctx context.Context, deviceIdentity, exceptToken string) (int64, error) {
	if deviceIdentity == "" {
		return 0, ErrInvalidRegistration
	}
	res := r.db.WithContext(ctx).Model(&models.PushRegistration{}).
		Where("device_identity = ? AND token <> ? AND is_active = ?", deviceIdentity, exceptToken, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": r.now()})
	if res.Error != nil {
		return 0, fmt.Errorf("deactivate push registrations: %w", mapGormError(res.Error))
	}
	return res.RowsAffected, nil
}

func (r *GormRegistry) List(ctx context.Context, filter Filter) ([]*models.PushRegistration, error) {
	var rows []*models.PushRegistration
	err := r.scoped(ctx, filter).Order("updated_at DESC").Order("token ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list push registrations: %w", mapGormError(err))
	}
	return rows, nil
}

func (r *GormRegistry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *GormRegistry) scoped(ctx context.Context, filter Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.PushRegistration{})
	if filter.Token != "" {
		q = q.Where("token = ?", filter.Token)
	}
	if filter.DeviceIdentity != "" {
		q = q.Where("device_identity = ?", filter.DeviceIdentity)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	return q
}

func mapGormError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(ErrConflict, err)
	}
	return mapConnError(err)
}
