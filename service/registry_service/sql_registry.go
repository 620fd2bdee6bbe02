package registry_service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"push-token-service/models"
)

const (
	pgUniqueViolation = "23505"

	// 定宽格式，TEXT 列按字典序排序即按时间排序
	sqlTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// 建表语句，时间以定宽 RFC3339 文本写入，postgres 端为 TIMESTAMPTZ
var schemas = map[string][]string{
	"postgres": {
		`CREATE TABLE IF NOT EXISTS push_registrations (
			id              VARCHAR(36) PRIMARY KEY,
			token           VARCHAR(255) NOT NULL UNIQUE,
			device_identity VARCHAR(255) NOT NULL,
			device_metadata TEXT NOT NULL DEFAULT '{}',
			is_active       BOOLEAN NOT NULL,
			last_active_at  TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_push_registrations_device_identity ON push_registrations (device_identity)`,
	},
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS push_registrations (
			id              TEXT PRIMARY KEY,
			token           TEXT NOT NULL UNIQUE,
			device_identity TEXT NOT NULL,
			device_metadata TEXT NOT NULL DEFAULT '{}',
			is_active       INTEGER NOT NULL,
			last_active_at  TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_push_registrations_device_identity ON push_registrations (device_identity)`,
	},
}

const selectColumns = `id, token, device_identity, device_metadata, is_active, last_active_at, updated_at`

// SQLRegistry 基于 sqlx 的实现，支持 postgres 和 sqlite
type SQLRegistry struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLRegistry 包装已打开的连接并建表，driverName 为 "postgres" 或 "sqlite"
func NewSQLRegistry(ctx context.Context, db *sqlx.DB) (*SQLRegistry, error) {
	stmts, ok := schemas[db.DriverName()]
	if !ok {
		return nil, fmt.Errorf("不支持的数据库驱动: %s", db.DriverName())
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("初始化 push_registrations 表失败: %w", mapSQLError(err))
		}
	}
	return &SQLRegistry{db: db, now: time.Now}, nil
}

func (r *SQLRegistry) Upsert(ctx context.Context, reg *models.PushRegistration) error {
	if err := validateRegistration(reg, r.now()); err != nil {
		return err
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}

	query := r.db.Rebind(`
		INSERT INTO push_registrations (id, token, device_identity, device_metadata, is_active, last_active_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (token) DO UPDATE SET
			device_identity = EXCLUDED.device_identity,
			device_metadata = EXCLUDED.device_metadata,
			is_active = EXCLUDED.is_active,
			last_active_at = EXCLUDED.last_active_at,
			updated_at = EXCLUDED.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		reg.ID, reg.Token, reg.DeviceIdentity, reg.DeviceMetadata, reg.IsActive,
		timeValue(reg.LastActiveAt), timeValue(reg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert push registration: %w", mapSQLError(err))
	}

	// 已存在时保留原 id
	var id string
	if err := r.db.GetContext(ctx, &id, r.db.Rebind(`SELECT id FROM push_registrations WHERE token = ?`), reg.Token); err == nil {
		reg.ID = id
	}
	return nil
}

func (r *SQLRegistry) Update(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	if err := validateUpdate(filter, patch); err != nil {
		return 0, err
	}

	var sets []string
	var args []interface{}
	if patch.DeviceIdentity != nil {
		sets = append(sets, "device_identity = ?")
		args = append(args, *patch.DeviceIdentity)
	}
	if patch.DeviceMetadata != nil {
		sets = append(sets, "device_metadata = ?")
		args = append(args, patch.DeviceMetadata)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}
	if patch.LastActiveAt != nil {
		sets = append(sets, "last_active_at = ?")
		args = append(args, timeValue(*patch.LastActiveAt))
	}
	updatedAt := r.now()
	if patch.UpdatedAt != nil {
		updatedAt = *patch.UpdatedAt
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, timeValue(updatedAt))

	where, whereArgs := filterClause(filter)
	query := r.db.Rebind(`UPDATE push_registrations SET ` + strings.Join(sets, ", ") + where)
	res, err := r.db.ExecContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("update push registration: %w", mapSQLError(err))
	}
	return res.RowsAffected()
}

func (r *SQLRegistry) DeactivateOthers(ctx context.Context, deviceIdentity, exceptToken string) (int64, error) {
	if deviceIdentity == "" {
		return 0, ErrInvalidRegistration
	}
	query := r.db.Rebind(`
		UPDATE push_registrations
		SET is_active = ?, updated_at = ?
		WHERE device_identity = ? AND token <> ? AND is_active = ?
	`)
	res, err := r.db.ExecContext(ctx, query, false, timeValue(r.now()), deviceIdentity, exceptToken, true)
	if err != nil {
		return 0, fmt.Errorf("deactivate push registrations: %w", mapSQLError(err))
	}
	return res.RowsAffected()
}

func (r *SQLRegistry) List(ctx context.Context, filter Filter) ([]*models.PushRegistration, error) {
	where, args := filterClause(filter)
	query := r.db.Rebind(`SELECT ` + selectColumns + ` FROM push_registrations` + where + ` ORDER BY updated_at DESC, token ASC`)

	var rows []sqlRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list push registrations: %w", mapSQLError(err))
	}
	out := make([]*models.PushRegistration, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *SQLRegistry) Close() error {
	return r.db.Close()
}

func filterClause(filter Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if filter.Token != "" {
		conds = append(conds, "token = ?")
		args = append(args, filter.Token)
	}
	if filter.DeviceIdentity != "" {
		conds = append(conds, "device_identity = ?")
		args = append(args, filter.DeviceIdentity)
	}
	if filter.ActiveOnly {
		conds = append(conds, "is_active = ?")
		args = append(args, true)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// sqlRow 扫描用的中间结构，时间列在两种方言下类型不同
type sqlRow struct {
	ID             string                `db:"id"`
	Token          string                `db:"token"`
	DeviceIdentity string                `db:"device_identity"`
	DeviceMetadata models.DeviceMetadata `db:"device_metadata"`
	IsActive       bool                  `db:"is_active"`
	LastActiveAt   sqlTime               `db:"last_active_at"`
	UpdatedAt      sqlTime               `db:"updated_at"`
}

func (row sqlRow) toModel() *models.PushRegistration {
	return &models.PushRegistration{
		ID:             row.ID,
		Token:          row.Token,
		DeviceIdentity: row.DeviceIdentity,
		DeviceMetadata: row.DeviceMetadata,
		IsActive:       row.IsActive,
		LastActiveAt:   row.LastActiveAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}

// sqlTime 兼容 time.Time、RFC3339 文本和毫秒时间戳
type sqlTime struct {
	time.Time
}

func (t *sqlTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case int64:
		t.Time = time.UnixMilli(v).UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("不支持的时间类型: %T", src)
	}
}

func (t *sqlTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("解析时间 %q 失败: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func timeValue(t time.Time) string {
	return t.UTC().Format(sqlTimeLayout)
}

// mapSQLError 把驱动错误映射到 ErrConflict / ErrUnavailable，保留原始错误
func mapSQLError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == pgUniqueViolation {
			return errors.Join(ErrConflict, err)
		}
		if pqErr.Code.Class() == "08" {
			return errors.Join(ErrUnavailable, err)
		}
		return err
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return errors.Join(ErrConflict, err)
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"):
			return errors.Join(ErrConflict, err)
		case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
			return errors.Join(ErrUnavailable, err)
		}
		return err
	}
	return mapConnError(err)
}

func mapConnError(err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
