package registry_service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"push-token-service/major"
	"push-token-service/models"
	"push-token-service/service/pebble_service"
)

type backend struct {
	name string
	open func(t *testing.T) Registry
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Registry { return NewMemoryRegistry() }},
		{"sqlite", func(t *testing.T) Registry {
			dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
			db, err := major.OpenSqlx(context.Background(), "sqlite", dsn, major.PoolConfig{})
			require.NoError(t, err)
			reg, err := NewSQLRegistry(context.Background(), db)
			require.NoError(t, err)
			t.Cleanup(func() { _ = reg.Close() })
			return reg
		}},
		{"pebble", func(t *testing.T) Registry {
			ps := pebble_service.NewPebbleService(&pebble_service.Config{DBPath: "/mem", InMemory: true})
			require.NoError(t, ps.Initialize())
			t.Cleanup(func() { _ = ps.Close() })
			return NewPebbleRegistry(ps)
		}},
	}
}

func newRegistration(token, identity string, at time.Time) *models.PushRegistration {
	return &models.PushRegistration{
		Token:          token,
		DeviceIdentity: identity,
		DeviceMetadata: models.DeviceMetadata{"platform": "ios"},
		IsActive:       true,
		LastActiveAt:   at,
		UpdatedAt:      at,
	}
}

func activeCount(t *testing.T, r Registry, identity string) int {
	t.Helper()
	rows, err := r.List(context.Background(), Filter{DeviceIdentity: identity, ActiveOnly: true})
	require.NoError(t, err)
	return len(rows)
}

func TestRegistryContract(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Run("upsert is idempotent by token", func(t *testing.T) {
				ctx := context.Background()
				r := b.open(t)
				base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

				first := newRegistration("tok-1", "ios|iPhone|17", base)
				require.NoError(t, r.Upsert(ctx, first))
				require.NotEmpty(t, first.ID)

				again := newRegistration("tok-1", "ios|iPhone|17", base.Add(time.Minute))
				again.DeviceMetadata = models.DeviceMetadata{"platform": "ios", "appVersion": "2"}
				require.NoError(t, r.Upsert(ctx, again))
				assert.Equal(t, first.ID, again.ID)

				rows, err := r.List(ctx, ByToken("tok-1"))
				require.NoError(t, err)
				require.Len(t, rows, 1)
				assert.Equal(t, "2", rows[0].DeviceMetadata["appVersion"])
				assert.True(t, rows[0].UpdatedAt.Equal(base.Add(time.Minute)))
			})

			t.Run("deactivate others keeps one active row", func(t *testing.T) {
				ctx := context.Background()
				r := b.open(t)
				identity := "android|Pixel 8|14"
				base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

				require.NoError(t, r.Upsert(ctx, newRegistration("old-1", identity, base)))
				require.NoError(t, r.Upsert(ctx, newRegistration("old-2", identity, base)))
				require.NoError(t, r.Upsert(ctx, newRegistration("other", "ios|iPad|17", base)))
				require.NoError(t, r.Upsert(ctx, newRegistration("new", identity, base.Add(time.Hour))))
				assert.Equal(t, 3, activeCount(t, r, identity))

				n, err := r.DeactivateOthers(ctx, identity, "new")
				require.NoError(t, err)
				assert.EqualValues(t, 2, n)

				rows, err := r.List(ctx, Filter{DeviceIdentity: identity, ActiveOnly: true})
				require.NoError(t, err)
				require.Len(t, rows, 1)
				assert.Equal(t, "new", rows[0].Token)

				// 其他设备不受影响
				assert.Equal(t, 1, activeCount(t, r, "ios|iPad|17"))

				n, err = r.DeactivateOthers(ctx, identity, "new")
				require.NoError(t, err)
				assert.Zero(t, n)
			})

			t.Run("update by token", func(t *testing.T) {
				ctx := context.Background()
				r := b.open(t)
				base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
				require.NoError(t, r.Upsert(ctx, newRegistration("tok", "web|unknown|unknown", base)))

				inactive := false
				n, err := r.Update(ctx, ByToken("tok"), Patch{IsActive: &inactive})
				require.NoError(t, err)
				assert.EqualValues(t, 1, n)

				rows, err := r.List(ctx, ByToken("tok"))
				require.NoError(t, err)
				require.Len(t, rows, 1)
				assert.False(t, rows[0].IsActive)

				n, err = r.Update(ctx, ByToken("missing"), Patch{IsActive: &inactive})
				require.NoError(t, err)
				assert.Zero(t, n)

				_, err = r.Update(ctx, Filter{}, Patch{IsActive: &inactive})
				assert.ErrorIs(t, err, ErrInvalidRegistration)
				_, err = r.Update(ctx, ByToken("tok"), Patch{})
				assert.ErrorIs(t, err, ErrInvalidRegistration)
			})

			t.Run("list orders newest first", func(t *testing.T) {
				ctx := context.Background()
				r := b.open(t)
				base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
				require.NoError(t, r.Upsert(ctx, newRegistration("a", "d", base)))
				require.NoError(t, r.Upsert(ctx, newRegistration("b", "d", base.Add(2*time.Second))))
				require.NoError(t, r.Upsert(ctx, newRegistration("c", "d", base.Add(time.Second))))

				rows, err := r.List(ctx, ByDevice("d"))
				require.NoError(t, err)
				var tokens []string
				for _, row := range rows {
					tokens = append(tokens, row.Token)
				}
				assert.Equal(t, []string{"b", "c", "a"}, tokens)
			})

			t.Run("concurrent upserts of one token", func(t *testing.T) {
				ctx := context.Background()
				r := b.open(t)
				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						assert.NoError(t, r.Upsert(ctx, newRegistration("same", "d", time.Now())))
					}()
				}
				wg.Wait()
				rows, err := r.List(ctx, ByToken("same"))
				require.NoError(t, err)
				assert.Len(t, rows, 1)
			})

			t.Run("rejects invalid input", func(t *testing.T) {
				ctx := context.Background()
				r := b.open(t)
				assert.ErrorIs(t, r.Upsert(ctx, &models.PushRegistration{DeviceIdentity: "d"}), ErrInvalidRegistration)
				assert.ErrorIs(t, r.Upsert(ctx, &models.PushRegistration{Token: "t"}), ErrInvalidRegistration)
				_, err := r.DeactivateOthers(ctx, "", "t")
				assert.ErrorIs(t, err, ErrInvalidRegistration)
			})
		})
	}
}

func TestMapErrors(t *testing.T) {
	assert.ErrorIs(t, mapSQLError(&pq.Error{Code: "23505"}), ErrConflict)
	assert.ErrorIs(t, mapSQLError(&pq.Error{Code: "08006"}), ErrUnavailable)
	assert.NotErrorIs(t, mapSQLError(&pq.Error{Code: "42601"}), ErrConflict)

	wrapped := fmt.Errorf("exec: %w", gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, mapGormError(wrapped), ErrConflict)
	assert.ErrorIs(t, mapGormError(wrapped), gorm.ErrDuplicatedKey)

	plain := errors.New("syntax error")
	assert.Equal(t, plain, mapSQLError(plain))
	assert.Nil(t, mapSQLError(nil))
}

func TestOpenFactory(t *testing.T) {
	ctx := context.Background()

	r, err := Open(ctx, &Config{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryRegistry{}, r)

	_, err = Open(ctx, &Config{Driver: "pebble"}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, &Config{Driver: "oracle"}, nil)
	assert.Error(t, err)

	// gorm 驱动缺少 dsn 时在连接前报错
	_, err = Open(ctx, &Config{Driver: "mysql"}, nil)
	assert.Error(t, err)
	_, err = Open(ctx, &Config{Driver: "gorm_postgres"}, nil)
	assert.Error(t, err)

	r, err = Open(ctx, &Config{Driver: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLRegistry{}, r)
	require.NoError(t, r.Close())
}

func TestUpsertRejectsUnreportedIdentity(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			r := b.open(t)
			unreported := models.DeviceInfo{}.Identity()
			err := r.Upsert(ctx, newRegistration("tok-x", unreported, time.Now()))
			assert.ErrorIs(t, err, ErrInvalidRegistration)
			assert.Zero(t, activeCount(t, r, unreported))
		})
	}
}
