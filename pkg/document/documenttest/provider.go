// Package documenttest 提供测试用的内存文档提供者。
package documenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/document"
)

// Provider 内存文档，按加入顺序枚举文本元素。
// Events 记录每次字体加载与修改调用，便于断言调用顺序。
type Provider struct {
	DocName string

	mu        sync.Mutex
	elements  []*document.TextElement
	byID      map[string]*document.TextElement
	nodes     map[string]document.Node
	parentOf  map[string]string
	selection []string
	fontErrs  map[string]error
	saves     int
	selCh     chan struct{}

	Events []string
}

var _ document.Provider = (*Provider)(nil)

// New 创建空文档
func New(name string) *Provider {
	return &Provider{
		DocName:  name,
		byID:     make(map[string]*document.TextElement),
		nodes:    make(map[string]document.Node),
		parentOf: make(map[string]string),
		fontErrs: make(map[string]error),
		selCh:    make(chan struct{}, 1),
	}
}

// AddNode 登记一个层级节点及其父节点
func (p *Provider) AddNode(node document.Node, parentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nodes[node.ID] = node
	if parentID != "" {
		p.parentOf[node.ID] = parentID
	}
}

// Add 加入一个文本元素并挂到指定父节点下
func (p *Provider) Add(el document.TextElement, parentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := el
	p.elements = append(p.elements, &copied)
	p.byID[el.ID] = &copied
	p.nodes[el.ID] = document.Node{ID: el.ID, Name: el.Name, Kind: document.KindText}
	if parentID != "" {
		p.parentOf[el.ID] = parentID
	}
}

// Remove 删除元素，模拟扫描与应用之间元素被删除
func (p *Provider) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.byID, id)
	for i, el := range p.elements {
		if el.ID == id {
			p.elements = append(p.elements[:i], p.elements[i+1:]...)
			break
		}
	}
}

// Select 设置选区
func (p *Provider) Select(ids ...string) {
	p.mu.Lock()
	p.selection = ids
	p.mu.Unlock()

	select {
	case p.selCh <- struct{}{}:
	default:
	}
}

// FailFont 让指定字体的加载失败
func (p *Provider) FailFont(font document.Font, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fontErrs[font.String()] = err
}

// Saves 返回 Save 被调用的次数
func (p *Provider) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// Name 文档名称
func (p *Provider) Name() string { return p.DocName }

// TextElements 全部文本元素的快照
func (p *Provider) TextElements(_ context.Context) ([]document.TextElement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]document.TextElement, 0, len(p.elements))
	for _, el := range p.elements {
		out = append(out, *el)
	}
	return out, nil
}

// SelectedTextElements 选区内元素的快照
func (p *Provider) SelectedTextElements(_ context.Context) ([]document.TextElement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []document.TextElement
	for _, el := range p.elements {
		for _, id := range p.selection {
			if el.ID == id {
				out = append(out, *el)
				break
			}
		}
	}
	return out, nil
}

// Resolve 按 id 查找元素
func (p *Provider) Resolve(_ context.Context, id string) (document.TextElement, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.byID[id]
	if !ok {
		return document.TextElement{}, false, nil
	}
	return *el, true, nil
}

// Parent 返回父节点
func (p *Provider) Parent(_ context.Context, id string) (document.Node, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	parentID, ok := p.parentOf[id]
	if !ok {
		return document.Node{}, false, nil
	}
	return p.nodes[parentID], true, nil
}

// SetName 修改显示名称
func (p *Provider) SetName(_ context.Context, id, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.byID[id]
	if !ok {
		return document.ErrElementMissing
	}
	if el.Locked {
		return document.ErrLocked
	}
	el.Name = name
	p.Events = append(p.Events, "name:"+id)
	return nil
}

// SetContent 修改文本内容
func (p *Provider) SetContent(_ context.Context, id, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.byID[id]
	if !ok {
		return document.ErrElementMissing
	}
	if el.Locked {
		return document.ErrLocked
	}
	el.Content = content
	p.Events = append(p.Events, "content:"+id)
	return nil
}

// SetStoredKey 写入键槽位
func (p *Provider) SetStoredKey(_ context.Context, id, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.byID[id]
	if !ok {
		return document.ErrElementMissing
	}
	el.StoredKey = key
	p.Events = append(p.Events, "key:"+id)
	return nil
}

// SetStoredOriginalName 写入原始名称槽位
func (p *Provider) SetStoredOriginalName(_ context.Context, id, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.byID[id]
	if !ok {
		return document.ErrElementMissing
	}
	el.StoredOriginalName = name
	p.Events = append(p.Events, "orig:"+id)
	return nil
}

// LoadFont 加载字体；FailFont 预设过的字体返回对应错误
func (p *Provider) LoadFont(_ context.Context, font document.Font) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fontErrs[font.String()]; err != nil {
		return fmt.Errorf("%w: %s", err, font)
	}
	p.Events = append(p.Events, "font:"+font.String())
	return nil
}

// SelectionChanged 选区变化通知通道
func (p *Provider) SelectionChanged() <-chan struct{} { return p.selCh }

// Save 记录一次保存
func (p *Provider) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	return nil
}

// Get 返回元素当前状态，不存在时使测试失败的职责留给调用方
func (p *Provider) Get(id string) (document.TextElement, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.byID[id]
	if !ok {
		return document.TextElement{}, false
	}
	return *el, true
}
