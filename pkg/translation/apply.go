package translation

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/document"
)

// Skip 一个被跳过的元素及原因
type Skip struct {
	ElementID string `json:"elementId"`
	Key       string `json:"key,omitempty"`
	Reason    string `json:"reason"`
}

// ApplyResult 一次语言应用的结果。
// Missed 统计两级查找都未命中的元素，它们保持原文不动，不算失败。
type ApplyResult struct {
	Total   int    `json:"total"`
	Applied int    `json:"applied"`
	Missed  int    `json:"missed"`
	Skipped []Skip `json:"skipped,omitempty"`
}

// RestoreResult 一次名称恢复的结果
type RestoreResult struct {
	Restored int    `json:"restored"`
	Skipped  []Skip `json:"skipped,omitempty"`
}

// Applier 把翻译映射应用到文档工作集上
type Applier struct {
	provider document.Provider
	logger   *zap.Logger
}

// NewApplier 创建同步引擎
func NewApplier(provider document.Provider, logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{provider: provider, logger: logger}
}

// ApplyLanguage 把翻译映射应用到工作集（选区非空时为选区，否则全文档）。
// 只处理带非空键的元素。所有涉及的字体先全部加载完成，任何文本修改
// 之前这个前置条件必须满足；任一字体加载失败则整体失败且不做任何修改。
// 之后逐元素独立应用：查找未命中的元素保持原文，宿主拒绝修改的元素
// 跳过并继续批次。
func (a *Applier) ApplyLanguage(ctx context.Context, m Map, namespace string) (ApplyResult, error) {
	working, err := document.WorkingSet(ctx, a.provider)
	if err != nil {
		return ApplyResult{}, err
	}

	var keyed []document.TextElement
	for _, el := range working {
		if el.StoredKey != "" {
			keyed = append(keyed, el)
		}
	}

	result := ApplyResult{Total: len(keyed)}
	if len(keyed) == 0 {
		return result, nil
	}

	if err := a.preloadFonts(ctx, document.DistinctFonts(keyed)); err != nil {
		return ApplyResult{}, err
	}

	for _, el := range keyed {
		value, ok := m.Resolve(el.StoredKey, namespace)
		if !ok {
			result.Missed++
			continue
		}
		if err := a.provider.SetContent(ctx, el.ID, value); err != nil {
			result.Skipped = append(result.Skipped, Skip{
				ElementID: el.ID,
				Key:       el.StoredKey,
				Reason:    err.Error(),
			})
			a.logger.Debug("skipped element during apply",
				zap.String("element", el.ID),
				zap.String("key", el.StoredKey),
				zap.Error(err))
			continue
		}
		result.Applied++
	}

	a.logger.Info("language applied",
		zap.String("namespace", namespace),
		zap.Int("total", result.Total),
		zap.Int("applied", result.Applied),
		zap.Int("missed", result.Missed),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// preloadFonts 并发加载去重后的字体并等待全部完成
func (a *Applier) preloadFonts(ctx context.Context, fonts []document.Font) error {
	if len(fonts) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(fonts))
	for _, font := range fonts {
		wg.Add(1)
		go func(f document.Font) {
			defer wg.Done()
			if err := a.provider.LoadFont(ctx, f); err != nil {
				errs <- err
			}
		}(font)
	}
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return fmt.Errorf("font preload failed: %w", err)
	}
	return nil
}

// RestoreNames 把元素的显示名称恢复为存储的原始名称。
// 键槽位、原始名称槽位与文本内容都保持不变。
// 没有原始名称或已删除的元素跳过，不计入失败。
func (a *Applier) RestoreNames(ctx context.Context, ids []string) (RestoreResult, error) {
	var result RestoreResult
	for _, id := range ids {
		el, ok, err := a.provider.Resolve(ctx, id)
		if err != nil {
			return result, err
		}
		if !ok || el.StoredOriginalName == "" {
			continue
		}
		if err := a.provider.SetName(ctx, id, el.StoredOriginalName); err != nil {
			result.Skipped = append(result.Skipped, Skip{ElementID: id, Reason: err.Error()})
			continue
		}
		result.Restored++
	}

	a.logger.Info("names restored", zap.Int("restored", result.Restored), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}
