package registry_service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"push-token-service/models"
	"push-token-service/service/pebble_service"
)

// PebbleRegistry 嵌入式实现，registrations 集合里 key 为 token。
// 设备身份范围的更新需要全表遍历，只适合单设备或少量记录
type PebbleRegistry struct {
	ps  *pebble_service.PebbleService
	mu  sync.Mutex // 串行化读改写
	now func() time.Time
}

func NewPebbleRegistry(ps *pebble_service.PebbleService) *PebbleRegistry {
	return &PebbleRegistry{ps: ps, now: time.Now}
}

func (r *PebbleRegistry) Upsert(ctx context.Context, reg *models.PushRegistration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRegistration(reg, r.now()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.get(reg.Token)
	if err != nil {
		return err
	}
	row := reg.Clone()
	if existing != nil {
		PatchFromRegistration(reg).apply(existing, r.now())
		row = existing
	} else if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if err := r.put(row); err != nil {
		return err
	}
	reg.ID = row.ID
	return nil
}

func (r *PebbleRegistry) Update(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateUpdate(filter, patch); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.scan(filter)
	if err != nil {
		return 0, err
	}
	now := r.now()
	for _, row := range rows {
		patch.apply(row, now)
		if err := r.put(row); err != nil {
			return 0, err
		}
	}
	return int64(len(rows)), nil
}

func (r *PebbleRegistry) DeactivateOthers(ctx context.Context, deviceIdentity, exceptToken string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deviceIdentity == "" {
		return 0, ErrInvalidRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.scan(Filter{DeviceIdentity: deviceIdentity, ActiveOnly: true})
	if err != nil {
		return 0, err
	}
	now := r.now()
	var n int64
	for _, row := range rows {
		if row.Token == exceptToken {
			continue
		}
		row.IsActive = false
		row.UpdatedAt = now
		if err := r.put(row); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *PebbleRegistry) List(ctx context.Context, filter Filter) ([]*models.PushRegistration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	rows, err := r.scan(filter)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sortByUpdatedDesc(rows)
	return rows, nil
}

// Close 不关闭底层 pebble，它和标记存储共用
func (r *PebbleRegistry) Close() error { return nil }

func (r *PebbleRegistry) get(token string) (*models.PushRegistration, error) {
	data, ok, err := r.ps.Get(pebble_service.CollectionRegistrations, []byte(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return nil, nil
	}
	var row models.PushRegistration
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("反序列化注册记录失败: %w", err)
	}
	return &row, nil
}

func (r *PebbleRegistry) put(row *models.PushRegistration) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("序列化注册记录失败: %w", err)
	}
	if err := r.ps.Set(pebble_service.CollectionRegistrations, []byte(row.Token), data); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *PebbleRegistry) scan(filter Filter) ([]*models.PushRegistration, error) {
	var rows []*models.PushRegistration
	var decodeErr error
	err := r.ps.Iterate(pebble_service.CollectionRegistrations, func(_, value []byte) bool {
		var row models.PushRegistration
		if err := json.Unmarshal(value, &row); err != nil {
			decodeErr = fmt.Errorf("反序列化注册记录失败: %w", err)
			return false
		}
		if filter.matches(&row) {
			rows = append(rows, &row)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rows, decodeErr
}
