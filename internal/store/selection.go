package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// selectionKey 选区例外映射的存储键
const selectionKey = "selection"

// ExceptionSet 被排除的元素集合。
// 元素默认选中，只有进入例外集的元素不选中。
type ExceptionSet map[string]struct{}

// Selected 报告元素是否选中
func (s ExceptionSet) Selected(id string) bool {
	_, excluded := s[id]
	return !excluded
}

// Change 一次选中状态变更
type Change struct {
	ID       string
	Selected bool
}

// SelectionStore 选区状态存储。
// 持久化形态是"例外映射"：只保存值为 false 的条目，选中的元素不占存储。
// 加载时把值不是字面 false 的条目清洗掉并立即写回，而不是留到下次写入。
type SelectionStore struct {
	kv     KV
	logger *zap.Logger
}

// NewSelectionStore 创建选区状态存储
func NewSelectionStore(kv KV, logger *zap.Logger) *SelectionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionStore{kv: kv, logger: logger}
}

// Load 加载例外集；发现需要清洗的条目时先写回再返回
func (s *SelectionStore) Load(ctx context.Context) (ExceptionSet, error) {
	exceptions, purged, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if purged > 0 {
		s.logger.Info("purged stale selection entries", zap.Int("purged", purged))
		if err := s.write(ctx, exceptions); err != nil {
			return nil, err
		}
	}

	set := make(ExceptionSet, len(exceptions))
	for id := range exceptions {
		set[id] = struct{}{}
	}
	return set, nil
}

// SetOne 设置单个元素的选中状态。
// 取消选中写入 id -> false；选中则删除条目，恢复默认选中语义。
func (s *SelectionStore) SetOne(ctx context.Context, id string, selected bool) error {
	return s.SetBulk(ctx, []Change{{ID: id, Selected: selected}})
}

// SetBulk 批量设置选中状态，整批作为一次持久化写入。
// 空输入不产生写入。
func (s *SelectionStore) SetBulk(ctx context.Context, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	exceptions, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, change := range changes {
		if change.Selected {
			delete(exceptions, change.ID)
		} else {
			exceptions[change.ID] = false
		}
	}
	return s.write(ctx, exceptions)
}

// load 读取并在内存中清洗例外映射，返回清洗掉的条目数
func (s *SelectionStore) load(ctx context.Context) (map[string]bool, int, error) {
	raw, ok, err := s.kv.Get(ctx, selectionKey)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load selection state: %w", err)
	}
	if !ok || raw == "" {
		return make(map[string]bool), 0, nil
	}

	// 历史格式可能存过 true 或任意值，只有字面 false 有效
	var stored map[string]any
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, 0, fmt.Errorf("failed to parse selection state: %w", err)
	}

	exceptions := make(map[string]bool, len(stored))
	purged := 0
	for id, value := range stored {
		if b, isBool := value.(bool); isBool && !b {
			exceptions[id] = false
		} else {
			purged++
		}
	}
	return exceptions, purged, nil
}

func (s *SelectionStore) write(ctx context.Context, exceptions map[string]bool) error {
	data, err := json.Marshal(exceptions)
	if err != nil {
		return fmt.Errorf("failed to marshal selection state: %w", err)
	}
	if err := s.kv.Set(ctx, selectionKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist selection state: %w", err)
	}
	return nil
}
