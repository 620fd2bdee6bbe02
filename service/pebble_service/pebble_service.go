package pebble_service

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"push-token-service/tool/logx"
)

const (
	CollectionFlags         = "flags"         // 持久化标记集合 key: flag name, value: flag value
	CollectionRegistrations = "registrations" // 推送令牌注册集合 key: token, value: PushRegistration JSON
)

// ErrClosed 服务已关闭
var ErrClosed = errors.New("pebble 服务已关闭")

// Config Pebble 配置
type Config struct {
	DBPath   string `yaml:"db_path" json:"db_path"` // 数据库文件路径
	InMemory bool   `yaml:"-" json:"-"`             // 使用内存文件系统，测试用
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		DBPath: "./data/pebble",
	}
}

// CollectionManager 集合管理器，每个集合一个独立的 pebble 实例
type CollectionManager struct {
	mu          sync.RWMutex
	collections map[string]*pebble.DB
	basePath    string
	inMemory    bool
	closed      bool
}

// NewCollectionManager 创建集合管理器
func NewCollectionManager(basePath string, inMemory bool) *CollectionManager {
	return &CollectionManager{
		collections: make(map[string]*pebble.DB),
		basePath:    basePath,
		inMemory:    inMemory,
	}
}

// GetCollection 获取指定集合的数据库实例，不存在时打开
func (cm *CollectionManager) GetCollection(collectionName string) (*pebble.DB, error) {
	cm.mu.RLock()
	if cm.closed {
		cm.mu.RUnlock()
		return nil, ErrClosed
	}
	if db, exists := cm.collections[collectionName]; exists {
		cm.mu.RUnlock()
		return db, nil
	}
	cm.mu.RUnlock()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.closed {
		return nil, ErrClosed
	}
	// 双重检查，防止并发创建
	if db, exists := cm.collections[collectionName]; exists {
		return db, nil
	}

	dbPath := filepath.Join(cm.basePath, collectionName)
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(8 << 20), // 8MB 缓存
		FormatMajorVersion:          pebble.FormatNewest,
		L0CompactionThreshold:       2,
		L0StopWritesThreshold:       1000,
		LBaseMaxBytes:               16 << 20,
		MaxOpenFiles:                1024,
		MemTableSize:                4 << 20,
		MemTableStopWritesThreshold: 4,
	}
	if cm.inMemory {
		opts.FS = vfs.NewMem()
	}
	defer opts.Cache.Unref()

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("打开集合 %s 的数据库失败: %w", collectionName, err)
	}

	cm.collections[collectionName] = db
	l := logx.With("pebble")
	l.Info().Str("collection", collectionName).Str("path", dbPath).Bool("memory", cm.inMemory).Msg("✅ 集合数据库初始化成功")
	return db, nil
}

// CloseAll 关闭所有集合
func (cm *CollectionManager) CloseAll() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var errs []string
	for name, db := range cm.collections {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("关闭集合 %s 失败: %v", name, err))
		}
	}
	cm.collections = make(map[string]*pebble.DB)
	cm.closed = true

	if len(errs) > 0 {
		return fmt.Errorf("关闭数据库时发生错误: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ListCollections 列出已打开的集合
func (cm *CollectionManager) ListCollections() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	names := make([]string, 0, len(cm.collections))
	for name := range cm.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PebbleService 基于集合的 KV 存储
type PebbleService struct {
	collectionMgr *CollectionManager
}

// NewPebbleService 创建服务，集合在首次访问时打开
func NewPebbleService(config *Config) *PebbleService {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DBPath == "" {
		config.DBPath = DefaultConfig().DBPath
	}
	return &PebbleService{
		collectionMgr: NewCollectionManager(config.DBPath, config.InMemory),
	}
}

// Initialize 预先打开所有已知集合
func (ps *PebbleService) Initialize() error {
	for _, name := range []string{CollectionFlags, CollectionRegistrations} {
		if _, err := ps.collectionMgr.GetCollection(name); err != nil {
			return err
		}
	}
	return nil
}

// Close 关闭所有集合
func (ps *PebbleService) Close() error {
	return ps.collectionMgr.CloseAll()
}

// Get 读取值，不存在返回 (nil, false, nil)
func (ps *PebbleService) Get(collection string, key []byte) ([]byte, bool, error) {
	db, err := ps.collectionMgr.GetCollection(collection)
	if err != nil {
		return nil, false, err
	}
	value, closer, err := db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("读取 %s/%s 失败: %w", collection, key, err)
	}
	// closer 关闭后 value 不再可用
	out := make([]byte, len(value))
	copy(out, value)
	if err := closer.Close(); err != nil {
		return nil, false, fmt.Errorf("释放 %s/%s 失败: %w", collection, key, err)
	}
	return out, true, nil
}

// Set 写入值，同步落盘
func (ps *PebbleService) Set(collection string, key, value []byte) error {
	db, err := ps.collectionMgr.GetCollection(collection)
	if err != nil {
		return err
	}
	if err := db.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("写入 %s/%s 失败: %w", collection, key, err)
	}
	return nil
}

// Delete 删除值，不存在不报错
func (ps *PebbleService) Delete(collection string, key []byte) error {
	db, err := ps.collectionMgr.GetCollection(collection)
	if err != nil {
		return err
	}
	if err := db.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("删除 %s/%s 失败: %w", collection, key, err)
	}
	return nil
}

// Iterate 按 key 顺序遍历集合，fn 返回 false 停止
func (ps *PebbleService) Iterate(collection string, fn func(key, value []byte) bool) error {
	db, err := ps.collectionMgr.GetCollection(collection)
	if err != nil {
		return err
	}
	iter, err := db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("创建 %s 迭代器失败: %w", collection, err)
	}
	for iter.First(); iter.Valid(); iter.Next() {
		// 迭代器移动后 Key/Value 失效，回调需要自行拷贝
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return fmt.Errorf("遍历 %s 失败: %w", collection, err)
	}
	return iter.Close()
}

// Stats 返回已打开集合的基本统计
func (ps *PebbleService) Stats() map[string]interface{} {
	collections := ps.collectionMgr.ListCollections()
	return map[string]interface{}{
		"collections": collections,
		"count":       len(collections),
	}
}
