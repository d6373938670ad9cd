// Package htmldoc 提供基于 HTML 文件的文档提供者。
// 带 data-l10n 标记的元素视为文本元素，键与原始名称写入
// data-l10n-key / data-l10n-orig 属性，层级名称取祖先的 data-name，
// <body> 充当顶层页面容器。
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/document"
)

// 文本元素属性
const (
	attrMarker       = "data-l10n"
	attrID           = "data-l10n-id"
	attrKey          = "data-l10n-key"
	attrOriginalName = "data-l10n-orig"
	attrLocked       = "data-l10n-locked"
	attrSelected     = "data-l10n-selected"
	attrName         = "data-name"
)

func init() {
	document.RegisterExtension("html", New)
	document.RegisterExtension("htm", New)
}

// Provider HTML 文档提供者
type Provider struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	doc     *goquery.Document
	byID    map[string]*goquery.Selection
	idOf    map[*html.Node]string
	order   []string
	loaded  map[string]struct{}
	dirty   bool
	selCh   chan struct{}
	counter int
}

var _ document.Provider = (*Provider)(nil)

// New 从路径加载 HTML 文档
func New(path string, logger *zap.Logger) (document.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read html file: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html file: %w", err)
	}

	p := &Provider{
		path:   path,
		logger: logger,
		doc:    doc,
		byID:   make(map[string]*goquery.Selection),
		idOf:   make(map[*html.Node]string),
		loaded: make(map[string]struct{}),
		selCh:  make(chan struct{}, 1),
	}
	p.index()
	return p, nil
}

// index 按文档顺序登记全部元素节点。
// 文本元素的 id 持久化在 data-l10n-id 属性里，缺失时补发；
// 其余元素只拿到会话内的临时 id，用于父链攀爬。
func (p *Provider) index() {
	p.doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		id, exists := s.Attr(attrID)
		switch {
		case exists && id != "":
		case p.isTextElement(s):
			id = uuid.NewString()
			s.SetAttr(attrID, id)
			p.dirty = true
		default:
			p.counter++
			id = fmt.Sprintf("_n%d", p.counter)
		}

		if _, dup := p.byID[id]; dup {
			p.logger.Warn("duplicate data-l10n-id in document", zap.String("id", id))
		}
		p.byID[id] = s
		p.idOf[s.Get(0)] = id
		if p.isTextElement(s) {
			p.order = append(p.order, id)
		}
	})
}

func (p *Provider) isTextElement(s *goquery.Selection) bool {
	if _, ok := s.Attr(attrMarker); ok {
		return true
	}
	_, ok := s.Attr(attrID)
	return ok
}

// Name 文档名称，取 <title>，没有时退回文件名
func (p *Provider) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if title := strings.TrimSpace(p.doc.Find("title").First().Text()); title != "" {
		return title
	}
	return filepath.Base(p.path)
}

// TextElements 按文档顺序返回全部文本元素
func (p *Provider) TextElements(_ context.Context) ([]document.TextElement, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elements := make([]document.TextElement, 0, len(p.order))
	for _, id := range p.order {
		elements = append(elements, p.snapshot(id, p.byID[id]))
	}
	return elements, nil
}

// SelectedTextElements 返回选区内的文本元素。
// 元素自身或任一祖先带 data-l10n-selected 即视为选中。
func (p *Provider) SelectedTextElements(_ context.Context) ([]document.TextElement, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var elements []document.TextElement
	for _, id := range p.order {
		s := p.byID[id]
		if p.inSelection(s) {
			elements = append(elements, p.snapshot(id, s))
		}
	}
	return elements, nil
}

func (p *Provider) inSelection(s *goquery.Selection) bool {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		if _, ok := cur.Attr(attrSelected); ok {
			return true
		}
	}
	return false
}

// Resolve 按 id 解析文本元素
func (p *Provider) Resolve(_ context.Context, id string) (document.TextElement, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.byID[id]
	if !ok || !p.isTextElement(s) {
		return document.TextElement{}, false, nil
	}
	return p.snapshot(id, s), true, nil
}

// Parent 返回父元素；<body> 是顶层页面容器，它之上没有父节点
func (p *Provider) Parent(_ context.Context, id string) (document.Node, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.byID[id]
	if !ok || p.isBody(s) {
		return document.Node{}, false, nil
	}

	parent := s.Parent()
	if parent.Length() == 0 || parent.Get(0).Type != html.ElementNode {
		return document.Node{}, false, nil
	}

	parentID, ok := p.idOf[parent.Get(0)]
	if !ok {
		return document.Node{}, false, nil
	}

	node := document.Node{
		ID:   parentID,
		Name: parent.AttrOr(attrName, ""),
		Kind: document.KindContainer,
	}
	if p.isBody(parent) {
		node.Kind = document.KindPage
	} else if p.isTextElement(parent) {
		node.Kind = document.KindText
	}
	return node, true, nil
}

func (p *Provider) isBody(s *goquery.Selection) bool {
	return s.Length() > 0 && s.Get(0).Type == html.ElementNode && s.Get(0).Data == "body"
}

// SetName 修改显示名称（data-name 属性）
func (p *Provider) SetName(_ context.Context, id, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.byID[id]
	if !ok {
		return document.ErrElementMissing
	}
	if p.isLocked(s) {
		return document.ErrLocked
	}
	if name == "" {
		s.RemoveAttr(attrName)
	} else {
		s.SetAttr(attrName, name)
	}
	p.dirty = true
	return nil
}

// SetContent 替换元素的文本内容
func (p *Provider) SetContent(_ context.Context, id, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.byID[id]
	if !ok || !p.isTextElement(s) {
		return document.ErrElementMissing
	}
	if p.isLocked(s) {
		return document.ErrLocked
	}
	s.SetText(content)
	p.dirty = true
	return nil
}

// SetStoredKey 写入键属性；空值移除属性。
// 属性写入与锁定无关，锁定元素同样允许。
func (p *Provider) SetStoredKey(_ context.Context, id, key string) error {
	return p.setAttr(id, attrKey, key)
}

// SetStoredOriginalName 写入原始名称属性；空值移除属性
func (p *Provider) SetStoredOriginalName(_ context.Context, id, name string) error {
	return p.setAttr(id, attrOriginalName, name)
}

func (p *Provider) setAttr(id, attr, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.byID[id]
	if !ok || !p.isTextElement(s) {
		return document.ErrElementMissing
	}
	if value == "" {
		s.RemoveAttr(attr)
	} else {
		s.SetAttr(attr, value)
	}
	p.dirty = true
	return nil
}

// LoadFont HTML 文档没有字体清单，任何字体都视为可用
func (p *Provider) LoadFont(_ context.Context, font document.Font) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loaded[font.String()] = struct{}{}
	return nil
}

// SelectionChanged 选区变化通知通道
func (p *Provider) SelectionChanged() <-chan struct{} {
	return p.selCh
}

// SetSelection 重写选区标记并发出通知
func (p *Provider) SetSelection(ids []string) {
	p.mu.Lock()
	p.doc.Find("[" + attrSelected + "]").RemoveAttr(attrSelected)
	for _, id := range ids {
		if s, ok := p.byID[id]; ok {
			s.SetAttr(attrSelected, "true")
		}
	}
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.selCh <- struct{}{}:
	default:
	}
}

// Save 渲染并写回 HTML 文件；没有改动时不写
func (p *Provider) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.dirty {
		return nil
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, p.doc.Get(0)); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	if err := os.WriteFile(p.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write html file: %w", err)
	}
	p.dirty = false
	return nil
}

func (p *Provider) isLocked(s *goquery.Selection) bool {
	v, ok := s.Attr(attrLocked)
	return ok && v != "false"
}

func (p *Provider) snapshot(id string, s *goquery.Selection) document.TextElement {
	el := document.TextElement{
		ID:                 id,
		Name:               s.AttrOr(attrName, ""),
		Content:            strings.TrimSpace(s.Text()),
		StoredKey:          s.AttrOr(attrKey, ""),
		StoredOriginalName: s.AttrOr(attrOriginalName, ""),
		Locked:             p.isLocked(s),
	}
	if family := fontFamily(s.AttrOr("style", "")); family != "" {
		el.Fonts = []document.Font{{Family: family}}
	}
	return el
}

// fontFamily 从内联 style 中取 font-family 的第一个候选字体
func fontFamily(style string) string {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok || strings.TrimSpace(strings.ToLower(name)) != "font-family" {
			continue
		}
		first, _, _ := strings.Cut(value, ",")
		return strings.Trim(strings.TrimSpace(first), `'"`)
	}
	return ""
}
