package registry_service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"push-token-service/models"
)

// MemoryRegistry 内存实现，用于测试和单机调试
type MemoryRegistry struct {
	mu      sync.RWMutex
	byToken map[string]*models.PushRegistration
	now     func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byToken: make(map[string]*models.PushRegistration),
		now:     time.Now,
	}
}

func (m *MemoryRegistry) Upsert(ctx context.Context, reg *models.PushRegistration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRegistration(reg, m.now()); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byToken[reg.Token]; ok {
		PatchFromRegistration(reg).apply(existing, m.now())
		reg.ID = existing.ID
		return nil
	}
	row := reg.Clone()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	reg.ID = row.ID
	m.byToken[row.Token] = row
	return nil
}

func (m *MemoryRegistry) Update(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateUpdate(filter, patch); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for _, row := range m.byToken {
		if filter.matches(row) {
			patch.apply(row, now)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRegistry) DeactivateOthers(ctx context.Context, deviceIdentity, exceptToken string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deviceIdentity == "" {
		return 0, ErrInvalidRegistration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for _, row := range m.byToken {
		if row.DeviceIdentity == deviceIdentity && row.Token != exceptToken && row.IsActive {
			row.IsActive = false
			row.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *MemoryRegistry) List(ctx context.Context, filter Filter) ([]*models.PushRegistration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.PushRegistration, 0, len(m.byToken))
	for _, row := range m.byToken {
		if filter.matches(row) {
			out = append(out, row.Clone())
		}
	}
	sortByUpdatedDesc(out)
	return out, nil
}

func (m *MemoryRegistry) Close() error { return nil }

func sortByUpdatedDesc(rows []*models.PushRegistration) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].Token < rows[j].Token
		}
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})
}
