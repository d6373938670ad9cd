package document

import "context"

// Hierarchy 层级查询关系。
// 父链是纯查找关系，不暗含所有权：节点归外部文档所有。
type Hierarchy interface {
	// Parent 返回节点的父节点。
	// 节点不存在、节点本身是顶层容器、或已到达文档根时 ok 为 false。
	Parent(ctx context.Context, id string) (node Node, ok bool, err error)
}

// Provider 宿主文档提供者。
// 所有修改方法对锁定元素返回 ErrLocked，对已删除元素返回 ErrElementMissing；
// 调用方按"跳过该元素、继续批次"处理。
type Provider interface {
	Hierarchy

	// Name 文档名称
	Name() string

	// TextElements 按遍历顺序返回全文档的文本元素
	TextElements(ctx context.Context) ([]TextElement, error)

	// SelectedTextElements 返回当前选区内的文本元素；无选区时为空
	SelectedTextElements(ctx context.Context) ([]TextElement, error)

	// Resolve 按 id 解析元素；已删除时 ok 为 false 且不报错
	Resolve(ctx context.Context, id string) (el TextElement, ok bool, err error)

	// SetName 修改显示名称
	SetName(ctx context.Context, id string, name string) error

	// SetContent 修改文本内容；前提是所需字体已通过 LoadFont 加载
	SetContent(ctx context.Context, id string, content string) error

	// SetStoredKey 写入持久化键槽位
	SetStoredKey(ctx context.Context, id string, key string) error

	// SetStoredOriginalName 写入持久化原始名称槽位
	SetStoredOriginalName(ctx context.Context, id string, name string) error

	// LoadFont 加载一个字体引用
	LoadFont(ctx context.Context, font Font) error

	// SelectionChanged 返回选区变化通知通道
	SelectionChanged() <-chan struct{}

	// Save 将全部修改写回底层文档
	Save() error
}

// WorkingSet 返回操作的工作集：选区非空时为选区，否则为整个文档。
func WorkingSet(ctx context.Context, p Provider) ([]TextElement, error) {
	selected, err := p.SelectedTextElements(ctx)
	if err != nil {
		return nil, err
	}
	if len(selected) > 0 {
		return selected, nil
	}
	return p.TextElements(ctx)
}
