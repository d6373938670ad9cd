// Package jsondoc 提供基于 JSON 场景文件的文档提供者。
// 场景文件保存页面→容器→文本节点的层级，文本节点携带字体引用
// 与随文档持久化的 pluginData 槽位。
package jsondoc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/document"
)

// pluginData 槽位名
const (
	slotKey          = "l10n_key"
	slotOriginalName = "l10n_original_name"
)

func init() {
	document.RegisterExtension("json", New)
}

// sceneFile 场景文件的顶层结构
type sceneFile struct {
	Name          string          `json:"name,omitempty"`
	SchemaVersion int             `json:"schemaVersion,omitempty"`
	Fonts         []document.Font `json:"fonts,omitempty"`
	Selection     []string        `json:"selection,omitempty"`
	Pages         []*sceneNode    `json:"pages"`
}

// sceneNode 场景树节点；页面节点没有 type，文本节点 type 为 "text"
type sceneNode struct {
	ID         string            `json:"id,omitempty"`
	Type       string            `json:"type,omitempty"`
	Name       string            `json:"name,omitempty"`
	Locked     bool              `json:"locked,omitempty"`
	Characters string            `json:"characters,omitempty"`
	Font       *document.Font    `json:"font,omitempty"`
	PluginData map[string]string `json:"pluginData,omitempty"`
	Children   []*sceneNode      `json:"children,omitempty"`
}

func (n *sceneNode) isText() bool {
	return n.Type == "text"
}

// Provider JSON 场景文件提供者
type Provider struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	file    *sceneFile
	nodes   map[string]*sceneNode
	parents map[string]*sceneNode
	pages   map[string]struct{}
	order   []string
	loaded  map[string]struct{}
	dirty   bool
	selCh   chan struct{}
}

var _ document.Provider = (*Provider)(nil)

// New 从路径加载场景文件
func New(path string, logger *zap.Logger) (document.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	var file sceneFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scene file: %w", err)
	}

	p := &Provider{
		path:   path,
		logger: logger,
		file:   &file,
		loaded: make(map[string]struct{}),
		selCh:  make(chan struct{}, 1),
	}
	p.index()
	return p, nil
}

// index 重建 id 索引、父链与遍历顺序，给缺失 id 的节点补发 id
func (p *Provider) index() {
	p.nodes = make(map[string]*sceneNode)
	p.parents = make(map[string]*sceneNode)
	p.pages = make(map[string]struct{})
	p.order = nil

	var walk func(node, parent *sceneNode)
	walk = func(node, parent *sceneNode) {
		if node.ID == "" {
			node.ID = uuid.NewString()
			p.dirty = true
		}
		if _, dup := p.nodes[node.ID]; dup {
			p.logger.Warn("duplicate node id in scene file", zap.String("id", node.ID))
		}
		p.nodes[node.ID] = node
		if parent != nil {
			p.parents[node.ID] = parent
		}
		if node.isText() {
			p.order = append(p.order, node.ID)
		}
		for _, child := range node.Children {
			walk(child, node)
		}
	}

	for _, page := range p.file.Pages {
		walk(page, nil)
		p.pages[page.ID] = struct{}{}
	}
}

// Name 文档名称，场景文件未命名时退回文件名
func (p *Provider) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.file.Name != "" {
		return p.file.Name
	}
	return filepath.Base(p.path)
}

// TextElements 按遍历顺序返回全部文本元素
func (p *Provider) TextElements(_ context.Context) ([]document.TextElement, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elements := make([]document.TextElement, 0, len(p.order))
	for _, id := range p.order {
		elements = append(elements, p.snapshot(p.nodes[id]))
	}
	return elements, nil
}

// SelectedTextElements 返回选区内的文本元素。
// 选中容器时其子树里的文本元素全部进入选区，保持文档顺序且去重。
func (p *Provider) SelectedTextElements(_ context.Context) ([]document.TextElement, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.file.Selection) == 0 {
		return nil, nil
	}

	include := make(map[string]struct{})
	var mark func(node *sceneNode)
	mark = func(node *sceneNode) {
		if node.isText() {
			include[node.ID] = struct{}{}
		}
		for _, child := range node.Children {
			mark(child)
		}
	}
	for _, id := range p.file.Selection {
		if node, ok := p.nodes[id]; ok {
			mark(node)
		}
	}

	var elements []document.TextElement
	for _, id := range p.order {
		if _, ok := include[id]; ok {
			elements = append(elements, p.snapshot(p.nodes[id]))
		}
	}
	return elements, nil
}

// Resolve 按 id 解析文本元素；节点不存在或不是文本节点时 ok 为 false
func (p *Provider) Resolve(_ context.Context, id string) (document.TextElement, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	node, ok := p.nodes[id]
	if !ok || !node.isText() {
		return document.TextElement{}, false, nil
	}
	return p.snapshot(node), true, nil
}

// Parent 返回父节点；页面与未知节点没有父节点
func (p *Provider) Parent(_ context.Context, id string) (document.Node, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	parent, ok := p.parents[id]
	if !ok {
		return document.Node{}, false, nil
	}
	return document.Node{ID: parent.ID, Name: parent.Name, Kind: p.kindOf(parent)}, true, nil
}

// SetName 修改显示名称，锁定节点拒绝改名
func (p *Provider) SetName(_ context.Context, id, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	node, ok := p.nodes[id]
	if !ok {
		return document.ErrElementMissing
	}
	if node.Locked {
		return document.ErrLocked
	}
	node.Name = name
	p.dirty = true
	return nil
}

// SetContent 修改文本内容，仅对文本节点有效
func (p *Provider) SetContent(_ context.Context, id, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	node, ok := p.nodes[id]
	if !ok || !node.isText() {
		return document.ErrElementMissing
	}
	if node.Locked {
		return document.ErrLocked
	}
	node.Characters = content
	p.dirty = true
	return nil
}

// SetStoredKey 写入键槽位；空值清除槽位。
// 槽位写入与画布锁定无关，锁定节点同样允许。
func (p *Provider) SetStoredKey(_ context.Context, id, key string) error {
	return p.setPluginData(id, slotKey, key)
}

// SetStoredOriginalName 写入原始名称槽位；空值清除槽位
func (p *Provider) SetStoredOriginalName(_ context.Context, id, name string) error {
	return p.setPluginData(id, slotOriginalName, name)
}

func (p *Provider) setPluginData(id, slot, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	node, ok := p.nodes[id]
	if !ok || !node.isText() {
		return document.ErrElementMissing
	}
	if value == "" {
		delete(node.PluginData, slot)
	} else {
		if node.PluginData == nil {
			node.PluginData = make(map[string]string)
		}
		node.PluginData[slot] = value
	}
	p.dirty = true
	return nil
}

// LoadFont 加载字体。场景文件带字体清单时清单之外的字体视为不可用；
// 没有清单的文件接受任意字体。
func (p *Provider) LoadFont(_ context.Context, font document.Font) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.file.Fonts) > 0 && !p.fontKnown(font) {
		return fmt.Errorf("%w: %s", document.ErrFontUnavailable, font)
	}
	p.loaded[font.String()] = struct{}{}
	return nil
}

// FontLoaded 报告字体是否已通过 LoadFont 加载
func (p *Provider) FontLoaded(font document.Font) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.loaded[font.String()]
	return ok
}

// SelectionChanged 选区变化通知通道
func (p *Provider) SelectionChanged() <-chan struct{} {
	return p.selCh
}

// SetSelection 更新文档选区并发出通知
func (p *Provider) SetSelection(ids []string) {
	p.mu.Lock()
	p.file.Selection = append([]string{}, ids...)
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.selCh <- struct{}{}:
	default:
	}
}

// Save 将修改写回场景文件；没有改动时不写
func (p *Provider) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.dirty {
		return nil
	}

	data, err := json.MarshalIndent(p.file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scene file: %w", err)
	}
	if err := os.WriteFile(p.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write scene file: %w", err)
	}
	p.dirty = false
	return nil
}

func (p *Provider) kindOf(node *sceneNode) document.NodeKind {
	if _, isPage := p.pages[node.ID]; isPage {
		return document.KindPage
	}
	if node.isText() {
		return document.KindText
	}
	return document.KindContainer
}

func (p *Provider) fontKnown(font document.Font) bool {
	for _, f := range p.file.Fonts {
		if f == font {
			return true
		}
	}
	return false
}

func (p *Provider) snapshot(node *sceneNode) document.TextElement {
	el := document.TextElement{
		ID:      node.ID,
		Name:    node.Name,
		Content: node.Characters,
		Locked:  node.Locked,
	}
	if node.Font != nil {
		el.Fonts = []document.Font{*node.Font}
	}
	if node.PluginData != nil {
		el.StoredKey = node.PluginData[slotKey]
		el.StoredOriginalName = node.PluginData[slotOriginalName]
	}
	return el
}
