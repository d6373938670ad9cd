// Package coordinator 把文档提供者、键分配、选区状态与翻译同步
// 串成完整操作：扫描、应用键、应用语言、恢复名称、命名空间列举。
package coordinator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/internal/store"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/document"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/keys"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/translation"
)

// 空结果时返回给调用方的提示语
const (
	warnNoElements = "no text elements found in the current selection or document"
	warnNoAssigned = "no elements with assigned keys found"
)

// ScanResult 一次扫描的结果。
// 空工作集不是错误，以空条目列表加提示语的形式返回。
type ScanResult struct {
	Items   []keys.ScanItem `json:"items"`
	Warning string          `json:"warning,omitempty"`
}

// ApplyKeysResult 一次键应用的结果，命名空间集合在应用后重新推导
type ApplyKeysResult struct {
	Applied    int                `json:"applied"`
	Skipped    []translation.Skip `json:"skipped,omitempty"`
	Namespaces []string           `json:"namespaces"`
}

// RestoreNamesResult 一次名称恢复的结果，附带刷新后的已分配列表
type RestoreNamesResult struct {
	Restored int                `json:"restored"`
	Skipped  []translation.Skip `json:"skipped,omitempty"`
	Items    []keys.ScanItem    `json:"items"`
}

// MigrateResult 一次键格式迁移的结果
type MigrateResult struct {
	Migrated int                `json:"migrated"`
	Skipped  []translation.Skip `json:"skipped,omitempty"`
}

// Option 协调器选项
type Option func(*Coordinator)

// WithPlaceholderPatterns 设置占位名称识别模式
func WithPlaceholderPatterns(patterns []string) Option {
	return func(c *Coordinator) {
		c.placeholderPatterns = patterns
	}
}

// Coordinator 操作协调器
type Coordinator struct {
	provider  document.Provider
	selection *store.SelectionStore
	applier   *translation.Applier
	logger    *zap.Logger

	placeholderPatterns []string
}

// New 创建协调器
func New(provider document.Provider, kv store.KV, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Coordinator{
		provider:  provider,
		selection: store.NewSelectionStore(kv, logger),
		applier:   translation.NewApplier(provider, logger),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scan 扫描工作集并为每个文本元素计算键。
// 只计算不落盘：元素与存储都不被修改，结果由 ApplyKeys 落实。
func (c *Coordinator) Scan(ctx context.Context, namespace string) (ScanResult, error) {
	working, err := document.WorkingSet(ctx, c.provider)
	if err != nil {
		return ScanResult{}, err
	}
	if len(working) == 0 {
		return ScanResult{Warning: warnNoElements}, nil
	}

	exceptions, err := c.selection.Load(ctx)
	if err != nil {
		return ScanResult{}, err
	}

	var opts []keys.Option
	if len(c.placeholderPatterns) > 0 {
		opts = append(opts, keys.WithPlaceholderPatterns(c.placeholderPatterns...))
	}
	assigner := keys.NewAssigner(namespace, opts...)

	items := make([]keys.ScanItem, 0, len(working))
	for _, el := range working {
		path, err := document.AncestorPath(ctx, c.provider, el.ID)
		if err != nil {
			return ScanResult{}, fmt.Errorf("failed to resolve hierarchy path for %s: %w", el.ID, err)
		}

		assignment := assigner.Assign(keys.Candidate{
			ID:        el.ID,
			Name:      el.Name,
			Text:      el.Content,
			StoredKey: el.StoredKey,
			Path:      path,
		})

		originalName := el.StoredOriginalName
		if originalName == "" {
			originalName = el.Name
		}

		items = append(items, keys.ScanItem{
			ElementID:    el.ID,
			CurrentName:  el.Name,
			OriginalName: originalName,
			Text:         el.Content,
			Key:          assignment.Key,
			Namespace:    assignment.Namespace,
			LocalKey:     assignment.LocalKey,
			Existing:     assignment.Reused(),
			Selected:     exceptions.Selected(el.ID),
		})
	}

	c.logger.Info("scan completed",
		zap.String("namespace", namespace),
		zap.Int("items", len(items)))
	return ScanResult{Items: items}, nil
}

// ApplyKeys 把扫描条目落实到文档：写入键槽位、首次分配时记录原始名称、
// 把显示名称改成键。未选中的条目跳过；锁定或已删除的元素跳过并继续。
func (c *Coordinator) ApplyKeys(ctx context.Context, items []keys.ScanItem) (ApplyKeysResult, error) {
	var result ApplyKeysResult
	for _, item := range items {
		if !item.Selected {
			continue
		}

		el, ok, err := c.provider.Resolve(ctx, item.ElementID)
		if err != nil {
			return result, err
		}
		if !ok {
			continue
		}

		if err := c.provider.SetStoredKey(ctx, el.ID, item.Key); err != nil {
			result.Skipped = append(result.Skipped, translation.Skip{
				ElementID: el.ID, Key: item.Key, Reason: err.Error(),
			})
			continue
		}
		if el.StoredOriginalName == "" {
			if err := c.provider.SetStoredOriginalName(ctx, el.ID, el.Name); err != nil {
				result.Skipped = append(result.Skipped, translation.Skip{
					ElementID: el.ID, Key: item.Key, Reason: err.Error(),
				})
				continue
			}
		}
		if err := c.provider.SetName(ctx, el.ID, item.Key); err != nil {
			// 键已写入，改名被宿主拒绝只记录跳过
			result.Skipped = append(result.Skipped, translation.Skip{
				ElementID: el.ID, Key: item.Key, Reason: err.Error(),
			})
			continue
		}
		result.Applied++
	}

	namespaces, err := c.Namespaces(ctx)
	if err != nil {
		return result, err
	}
	result.Namespaces = namespaces

	if err := c.provider.Save(); err != nil {
		return result, fmt.Errorf("failed to save document: %w", err)
	}

	c.logger.Info("keys applied",
		zap.Int("applied", result.Applied),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// ApplyLanguage 把翻译映射应用到工作集并保存文档
func (c *Coordinator) ApplyLanguage(ctx context.Context, m translation.Map, namespace string) (translation.ApplyResult, error) {
	result, err := c.applier.ApplyLanguage(ctx, m, namespace)
	if err != nil {
		return result, err
	}
	if err := c.provider.Save(); err != nil {
		return result, fmt.Errorf("failed to save document: %w", err)
	}
	return result, nil
}

// Assigned 返回工作集中已带键的元素。
// namespace 非空时只返回该命名空间下的条目。
func (c *Coordinator) Assigned(ctx context.Context, namespace string) (ScanResult, error) {
	working, err := document.WorkingSet(ctx, c.provider)
	if err != nil {
		return ScanResult{}, err
	}

	exceptions, err := c.selection.Load(ctx)
	if err != nil {
		return ScanResult{}, err
	}

	var items []keys.ScanItem
	for _, el := range working {
		if el.StoredKey == "" {
			continue
		}
		ns, localKey := keys.SplitKey(el.StoredKey)
		if namespace != "" && ns != namespace {
			continue
		}

		originalName := el.StoredOriginalName
		if originalName == "" {
			originalName = el.Name
		}

		items = append(items, keys.ScanItem{
			ElementID:    el.ID,
			CurrentName:  el.Name,
			OriginalName: originalName,
			Text:         el.Content,
			Key:          el.StoredKey,
			Namespace:    ns,
			LocalKey:     localKey,
			Existing:     true,
			Selected:     exceptions.Selected(el.ID),
		})
	}

	if len(items) == 0 {
		return ScanResult{Warning: warnNoAssigned}, nil
	}
	return ScanResult{Items: items}, nil
}

// RestoreNames 恢复元素的显示名称并返回刷新后的已分配列表
func (c *Coordinator) RestoreNames(ctx context.Context, ids []string) (RestoreNamesResult, error) {
	restored, err := c.applier.RestoreNames(ctx, ids)
	if err != nil {
		return RestoreNamesResult{}, err
	}
	if err := c.provider.Save(); err != nil {
		return RestoreNamesResult{}, fmt.Errorf("failed to save document: %w", err)
	}

	assigned, err := c.Assigned(ctx, "")
	if err != nil {
		return RestoreNamesResult{}, err
	}

	return RestoreNamesResult{
		Restored: restored.Restored,
		Skipped:  restored.Skipped,
		Items:    assigned.Items,
	}, nil
}

// Namespaces 从工作集元素的存储键推导命名空间集合，排序返回
func (c *Coordinator) Namespaces(ctx context.Context) ([]string, error) {
	working, err := document.WorkingSet(ctx, c.provider)
	if err != nil {
		return nil, err
	}

	storedKeys := make([]string, 0, len(working))
	for _, el := range working {
		if el.StoredKey != "" {
			storedKeys = append(storedKeys, el.StoredKey)
		}
	}
	return keys.Namespaces(storedKeys), nil
}

// SetSelected 设置单个元素的选中状态
func (c *Coordinator) SetSelected(ctx context.Context, id string, selected bool) error {
	return c.selection.SetOne(ctx, id, selected)
}

// SetSelectedBulk 批量设置选中状态
func (c *Coordinator) SetSelectedBulk(ctx context.Context, changes []store.Change) error {
	return c.selection.SetBulk(ctx, changes)
}

// MigrateKeys 把裸存储键一次性改写成命名空间限定形式。
// 已限定的键不动，改写失败的元素跳过并继续；显示名称不参与迁移。
func (c *Coordinator) MigrateKeys(ctx context.Context, namespace string) (MigrateResult, error) {
	if namespace == "" {
		return MigrateResult{}, fmt.Errorf("namespace must not be empty")
	}

	elements, err := c.provider.TextElements(ctx)
	if err != nil {
		return MigrateResult{}, err
	}

	var result MigrateResult
	for _, el := range elements {
		if el.StoredKey == "" {
			continue
		}
		ns, _ := keys.SplitKey(el.StoredKey)
		if ns != "" {
			continue
		}

		migrated := keys.JoinKey(namespace, el.StoredKey)
		if err := c.provider.SetStoredKey(ctx, el.ID, migrated); err != nil {
			result.Skipped = append(result.Skipped, translation.Skip{
				ElementID: el.ID, Key: el.StoredKey, Reason: err.Error(),
			})
			continue
		}
		result.Migrated++
	}

	if err := c.provider.Save(); err != nil {
		return result, fmt.Errorf("failed to save document: %w", err)
	}

	c.logger.Info("stored keys migrated",
		zap.String("namespace", namespace),
		zap.Int("migrated", result.Migrated))
	return result, nil
}
