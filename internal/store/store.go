// Package store 实现键值持久化：设置与选区状态都存在这里。
// 提供文件与 SQLite 两种后端，接口保持最小：按名取值、单写与批量写。
package store

import (
	"context"
	"sync"
)

// KV 键值持久化接口。
// SetMulti 作为单次持久化写入落盘，空输入不产生写入。
type KV interface {
	// Get 取值；键不存在时 ok 为 false 且不报错
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set 写入单个键
	Set(ctx context.Context, key, value string) error

	// SetMulti 一次写入多个键
	SetMulti(ctx context.Context, values map[string]string) error

	// Delete 删除键；键不存在时不报错
	Delete(ctx context.Context, key string) error

	// Close 释放底层资源
	Close() error
}

// MemoryKV 内存键值存储，测试与一次性运行用
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ KV = (*MemoryKV)(nil)

// NewMemory 创建内存键值存储
func NewMemory() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryKV) SetMulti(_ context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
