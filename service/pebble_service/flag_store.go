package pebble_service

import (
	"context"
	"fmt"
)

// FlagStore 持久化的小型标记存储，重启后保留
type FlagStore struct {
	ps *PebbleService
}

// NewFlagStore 基于 flags 集合创建标记存储
func NewFlagStore(ps *PebbleService) *FlagStore {
	return &FlagStore{ps: ps}
}

// Get 读取标记
func (s *FlagStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	value, ok, err := s.ps.Get(CollectionFlags, []byte(key))
	if err != nil {
		return "", false, fmt.Errorf("读取标记 %s 失败: %w", key, err)
	}
	return string(value), ok, nil
}

// Set 写入标记
func (s *FlagStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ps.Set(CollectionFlags, []byte(key), []byte(value)); err != nil {
		return fmt.Errorf("写入标记 %s 失败: %w", key, err)
	}
	return nil
}

// Remove 删除标记
func (s *FlagStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ps.Delete(CollectionFlags, []byte(key)); err != nil {
		return fmt.Errorf("删除标记 %s 失败: %w", key, err)
	}
	return nil
}
