package jsondoc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/document"
)

const sampleScene = `{
  "name": "Landing",
  "schemaVersion": 1,
  "fonts": [
    {"family": "Inter", "style": "Regular"},
    {"family": "Inter", "style": "Bold"}
  ],
  "pages": [
    {
      "id": "p1",
      "name": "Home",
      "children": [
        {
          "id": "hero",
          "type": "frame",
          "name": "Hero",
          "children": [
            {
              "id": "t1",
              "type": "text",
              "name": "Title",
              "characters": "Welcome",
              "font": {"family": "Inter", "style": "Bold"},
              "pluginData": {"l10n_key": "common.hero_title"}
            },
            {
              "id": "t2",
              "type": "text",
              "name": "Subtitle",
              "characters": "Get started today",
              "font": {"family": "Inter", "style": "Regular"}
            }
          ]
        },
        {
          "id": "t3",
          "type": "text",
          "name": "Footer",
          "characters": "All rights reserved",
          "locked": true
        }
      ]
    }
  ]
}`

func writeScene(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadScene(t *testing.T, content string) *Provider {
	t.Helper()
	p, err := New(writeScene(t, content), zap.NewNop())
	require.NoError(t, err)
	return p.(*Provider)
}

func TestProviderEnumeration(t *testing.T) {
	ctx := context.Background()
	p := loadScene(t, sampleScene)

	assert.Equal(t, "Landing", p.Name())

	elements, err := p.TextElements(ctx)
	require.NoError(t, err)
	require.Len(t, elements, 3)

	// 文档顺序
	assert.Equal(t, "t1", elements[0].ID)
	assert.Equal(t, "t2", elements[1].ID)
	assert.Equal(t, "t3", elements[2].ID)

	assert.Equal(t, "Welcome", elements[0].Content)
	assert.Equal(t, "common.hero_title", elements[0].StoredKey)
	assert.Empty(t, elements[0].StoredOriginalName)
	assert.Equal(t, []document.Font{{Family: "Inter", Style: "Bold"}}, elements[0].Fonts)
	assert.True(t, elements[2].Locked)
}

func TestProviderHierarchy(t *testing.T) {
	ctx := context.Background()
	p := loadScene(t, sampleScene)

	parent, ok, err := p.Parent(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hero", parent.ID)
	assert.Equal(t, document.KindContainer, parent.Kind)

	// t3 直接挂在页面下
	parent, ok, err = p.Parent(ctx, "t3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, document.KindPage, parent.Kind)

	_, ok, err = p.Parent(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	path, err := document.AncestorPath(ctx, p, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hero"}, path)
}

func TestProviderSelection(t *testing.T) {
	ctx := context.Background()
	p := loadScene(t, sampleScene)

	selected, err := p.SelectedTextElements(ctx)
	require.NoError(t, err)
	assert.Empty(t, selected)

	// 选中容器时取其子树内的文本元素
	p.SetSelection([]string{"hero"})
	selected, err = p.SelectedTextElements(ctx)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "t1", selected[0].ID)
	assert.Equal(t, "t2", selected[1].ID)

	select {
	case <-p.SelectionChanged():
	default:
		t.Fatal("expected selection change notification")
	}

	// 容器与其子元素同时选中时不重复
	p.SetSelection([]string{"hero", "t1", "t3"})
	selected, err = p.SelectedTextElements(ctx)
	require.NoError(t, err)
	require.Len(t, selected, 3)
	assert.Equal(t, "t1", selected[0].ID)
	assert.Equal(t, "t3", selected[2].ID)
}

func TestProviderMutations(t *testing.T) {
	ctx := context.Background()
	p := loadScene(t, sampleScene)

	require.NoError(t, p.SetName(ctx, "t1", "hero_title"))
	require.NoError(t, p.SetContent(ctx, "t1", "Willkommen"))
	require.NoError(t, p.SetStoredKey(ctx, "t1", "common.welcome"))
	require.NoError(t, p.SetStoredOriginalName(ctx, "t1", "Title"))

	el, ok, err := p.Resolve(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hero_title", el.Name)
	assert.Equal(t, "Willkommen", el.Content)
	assert.Equal(t, "common.welcome", el.StoredKey)
	assert.Equal(t, "Title", el.StoredOriginalName)

	// 空值清除槽位
	require.NoError(t, p.SetStoredKey(ctx, "t1", ""))
	el, _, err = p.Resolve(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, el.StoredKey)

	// 解析非文本节点与未知节点
	_, ok, err = p.Resolve(ctx, "hero")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = p.Resolve(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, p.SetName(ctx, "ghost", "x"), document.ErrElementMissing)
	assert.ErrorIs(t, p.SetContent(ctx, "hero", "x"), document.ErrElementMissing)
}

func TestProviderLocked(t *testing.T) {
	ctx := context.Background()
	p := loadScene(t, sampleScene)

	assert.ErrorIs(t, p.SetName(ctx, "t3", "footer"), document.ErrLocked)
	assert.ErrorIs(t, p.SetContent(ctx, "t3", "x"), document.ErrLocked)

	// 槽位写入不受锁定影响
	require.NoError(t, p.SetStoredKey(ctx, "t3", "common.footer"))
	el, _, err := p.Resolve(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, "common.footer", el.StoredKey)
}

func TestProviderFonts(t *testing.T) {
	ctx := context.Background()
	p := loadScene(t, sampleScene)

	bold := document.Font{Family: "Inter", Style: "Bold"}
	require.NoError(t, p.LoadFont(ctx, bold))
	assert.True(t, p.FontLoaded(bold))

	err := p.LoadFont(ctx, document.Font{Family: "Comic Sans", Style: "Regular"})
	assert.ErrorIs(t, err, document.ErrFontUnavailable)

	// 无字体清单的文档接受任意字体
	open := loadScene(t, `{"pages": [{"id": "p1", "name": "P", "children": []}]}`)
	require.NoError(t, open.LoadFont(ctx, document.Font{Family: "Anything", Style: "Thin"}))
}

func TestProviderSave(t *testing.T) {
	ctx := context.Background()
	path := writeScene(t, sampleScene)

	p, err := New(path, zap.NewNop())
	require.NoError(t, err)

	// 无改动时不触碰文件
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, p.Save())
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, p.SetStoredKey(ctx, "t2", "common.subtitle"))
	require.NoError(t, p.SetName(ctx, "t2", "subtitle"))
	require.NoError(t, p.Save())

	reloaded, err := New(path, zap.NewNop())
	require.NoError(t, err)
	el, ok, err := reloaded.Resolve(ctx, "t2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "common.subtitle", el.StoredKey)
	assert.Equal(t, "subtitle", el.Name)
}

func TestProviderAssignsMissingIDs(t *testing.T) {
	ctx := context.Background()
	p := loadScene(t, `{
	  "pages": [
	    {
	      "name": "P",
	      "children": [
	        {"type": "text", "name": "A", "characters": "a"},
	        {"type": "text", "name": "B", "characters": "b"}
	      ]
	    }
	  ]
	}`)

	elements, err := p.TextElements(ctx)
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.NotEmpty(t, elements[0].ID)
	assert.NotEmpty(t, elements[1].ID)
	assert.NotEqual(t, elements[0].ID, elements[1].ID)

	// 补发的 id 持久化到文件
	require.NoError(t, p.Save())
	data, err := os.ReadFile(p.path)
	require.NoError(t, err)
	var file sceneFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.NotEmpty(t, file.Pages[0].Children[0].ID)
}

func TestOpenThroughRegistry(t *testing.T) {
	path := writeScene(t, sampleScene)

	p, err := document.Open(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Landing", p.Name())

	_, err = document.Open(filepath.Join(t.TempDir(), "doc.xyz"), zap.NewNop())
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)
}
