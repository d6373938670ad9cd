package translation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/document"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/document/documenttest"
)

var (
	interRegular = document.Font{Family: "Inter", Style: "Regular"}
	interBold    = document.Font{Family: "Inter", Style: "Bold"}
)

func newDoc() *documenttest.Provider {
	p := documenttest.New("Landing")
	p.Add(document.TextElement{
		ID: "t1", Name: "Title", Content: "Welcome",
		StoredKey: "common.greeting", Fonts: []document.Font{interBold},
	}, "")
	p.Add(document.TextElement{
		ID: "t2", Name: "Subtitle", Content: "Get started",
		StoredKey: "common.subtitle", Fonts: []document.Font{interRegular},
	}, "")
	p.Add(document.TextElement{
		ID: "t3", Name: "Plain", Content: "No key here",
	}, "")
	return p
}

func TestApplyLanguage(t *testing.T) {
	ctx := context.Background()
	p := newDoc()
	applier := NewApplier(p, zap.NewNop())

	m := Map{
		"common.greeting": "Willkommen",
		"subtitle":        "Leg los",
	}
	result, err := applier.ApplyLanguage(ctx, m, "common")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, 0, result.Missed)
	assert.Empty(t, result.Skipped)

	// 完整键命中
	el, _ := p.Get("t1")
	assert.Equal(t, "Willkommen", el.Content)
	// 裸键回退命中
	el, _ = p.Get("t2")
	assert.Equal(t, "Leg los", el.Content)
	// 无键元素不参与
	el, _ = p.Get("t3")
	assert.Equal(t, "No key here", el.Content)
}

func TestApplyLanguageFontsBeforeMutation(t *testing.T) {
	ctx := context.Background()
	p := newDoc()
	applier := NewApplier(p, zap.NewNop())

	_, err := applier.ApplyLanguage(ctx, Map{"common.greeting": "x", "common.subtitle": "y"}, "common")
	require.NoError(t, err)

	// 所有字体加载完成之后才有内容修改
	lastFont, firstContent := -1, len(p.Events)
	for i, ev := range p.Events {
		if strings.HasPrefix(ev, "font:") && i > lastFont {
			lastFont = i
		}
		if strings.HasPrefix(ev, "content:") && i < firstContent {
			firstContent = i
		}
	}
	require.GreaterOrEqual(t, lastFont, 0)
	assert.Less(t, lastFont, firstContent)

	// 字体按身份去重
	fonts := 0
	for _, ev := range p.Events {
		if strings.HasPrefix(ev, "font:") {
			fonts++
		}
	}
	assert.Equal(t, 2, fonts)
}

func TestApplyLanguageFontFailure(t *testing.T) {
	ctx := context.Background()
	p := newDoc()
	p.FailFont(interBold, document.ErrFontUnavailable)
	applier := NewApplier(p, zap.NewNop())

	_, err := applier.ApplyLanguage(ctx, Map{"common.greeting": "x"}, "common")
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrFontUnavailable)

	// 前置条件失败时不做任何修改
	el, _ := p.Get("t1")
	assert.Equal(t, "Welcome", el.Content)
}

func TestApplyLanguageLookupMiss(t *testing.T) {
	ctx := context.Background()
	p := newDoc()
	applier := NewApplier(p, zap.NewNop())

	result, err := applier.ApplyLanguage(ctx, Map{"common.greeting": "Willkommen"}, "common")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Missed)

	// 未命中的元素保持原文
	el, _ := p.Get("t2")
	assert.Equal(t, "Get started", el.Content)
}

func TestApplyLanguageSkipsLocked(t *testing.T) {
	ctx := context.Background()
	p := newDoc()
	p.Add(document.TextElement{
		ID: "t4", Content: "frozen", StoredKey: "common.frozen", Locked: true,
	}, "")
	applier := NewApplier(p, zap.NewNop())

	result, err := applier.ApplyLanguage(ctx, Map{
		"common.greeting": "a",
		"common.subtitle": "b",
		"common.frozen":   "c",
	}, "common")
	require.NoError(t, err)

	// 锁定元素跳过，批次继续
	assert.Equal(t, 2, result.Applied)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "t4", result.Skipped[0].ElementID)

	el, _ := p.Get("t4")
	assert.Equal(t, "frozen", el.Content)
}

func TestApplyLanguageSelectionScope(t *testing.T) {
	ctx := context.Background()
	p := newDoc()
	p.Select("t2")
	applier := NewApplier(p, zap.NewNop())

	result, err := applier.ApplyLanguage(ctx, Map{
		"common.greeting": "a",
		"common.subtitle": "b",
	}, "common")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	el, _ := p.Get("t1")
	assert.Equal(t, "Welcome", el.Content)
	el, _ = p.Get("t2")
	assert.Equal(t, "b", el.Content)
}

func TestApplyLanguageEmptyWorkingSet(t *testing.T) {
	ctx := context.Background()
	p := documenttest.New("Empty")
	applier := NewApplier(p, zap.NewNop())

	result, err := applier.ApplyLanguage(ctx, Map{"k": "v"}, "")
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Empty(t, p.Events)
}

func TestRestoreNames(t *testing.T) {
	ctx := context.Background()
	p := documenttest.New("Doc")
	p.Add(document.TextElement{
		ID: "t1", Name: "common_title", Content: "Hi",
		StoredKey: "common.title", StoredOriginalName: "Title",
	}, "")
	p.Add(document.TextElement{
		ID: "t2", Name: "Untouched", Content: "Yo",
	}, "")
	p.Add(document.TextElement{
		ID: "t3", Name: "locked_name", StoredOriginalName: "Locked", Locked: true,
	}, "")
	applier := NewApplier(p, zap.NewNop())

	result, err := applier.RestoreNames(ctx, []string{"t1", "t2", "t3", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Restored)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "t3", result.Skipped[0].ElementID)

	// 只有显示名称恢复，槽位与文本不动
	el, _ := p.Get("t1")
	assert.Equal(t, "Title", el.Name)
	assert.Equal(t, "common.title", el.StoredKey)
	assert.Equal(t, "Title", el.StoredOriginalName)
	assert.Equal(t, "Hi", el.Content)

	// 无原始名称的元素不变
	el, _ = p.Get("t2")
	assert.Equal(t, "Untouched", el.Name)
}
