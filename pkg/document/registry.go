package document

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ProviderFactory 按路径创建文档提供者
type ProviderFactory func(path string, logger *zap.Logger) (Provider, error)

// Registry 文档格式注册表，按扩展名选择提供者
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// globalRegistry 全局注册表实例
var globalRegistry = &Registry{
	factories: make(map[string]ProviderFactory),
}

// RegisterExtension 注册扩展名对应的提供者工厂
func RegisterExtension(ext string, factory ProviderFactory) {
	globalRegistry.RegisterExtension(ext, factory)
}

// Open 按文件扩展名打开文档
func Open(path string, logger *zap.Logger) (Provider, error) {
	return globalRegistry.Open(path, logger)
}

// SupportedExtensions 返回已注册的扩展名
func SupportedExtensions() []string {
	return globalRegistry.SupportedExtensions()
}

// RegisterExtension 注册扩展名映射
func (r *Registry) RegisterExtension(ext string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 标准化扩展名（去除点号，转小写）
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	r.factories[ext] = factory
}

// Open 按扩展名选择工厂并打开文档
func (r *Registry) Open(path string, logger *zap.Logger) (Provider, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	r.mu.RLock()
	factory, exists := r.factories[ext]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}
	return factory(path, logger)
}

// SupportedExtensions 返回已注册扩展名的副本
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.factories))
	for ext := range r.factories {
		exts = append(exts, ext)
	}
	return exts
}
