// Package document 定义宿主文档的抽象：文本元素、层级关系与访问接口。
// 元素归属于外部文档，这里只按不透明 id 引用；
// 两个持久化槽位（storedKey / storedOriginalName）随文档一起保存。
package document

// NodeKind 层级节点类型
type NodeKind int

const (
	// KindPage 顶层页面容器，不参与层级路径
	KindPage NodeKind = iota
	// KindContainer 中间容器（frame、group 等）
	KindContainer
	// KindText 携带文本内容的叶子元素
	KindText
)

// Node 层级中的一个节点，仅携带路径推导需要的信息
type Node struct {
	ID   string
	Name string
	Kind NodeKind
}

// Font 字体标识，按 Family+Style 去重
type Font struct {
	Family string `json:"family"`
	Style  string `json:"style"`
}

// String 返回用于去重与日志的字体标识
func (f Font) String() string {
	if f.Style == "" {
		return f.Family
	}
	return f.Family + " " + f.Style
}

// TextElement 文本元素快照。
// StoredOriginalName 一旦写入便不再被分配流程覆盖。
type TextElement struct {
	// ID 文档内唯一的不透明标识符
	ID string

	// Name 当前显示名称，键分配时可能被改写
	Name string

	// Content 当前文本内容
	Content string

	// StoredKey 持久化的本地化键，可能带命名空间前缀，也可能为空
	StoredKey string

	// StoredOriginalName 首次分配键之前的显示名称，只写一次
	StoredOriginalName string

	// Fonts 元素用到的字体
	Fonts []Font

	// Locked 宿主侧锁定标记，锁定元素拒绝改名与改文本
	Locked bool
}

// DistinctFonts 汇总一组元素用到的全部字体并去重，保持首次出现顺序
func DistinctFonts(elements []TextElement) []Font {
	seen := make(map[string]struct{})
	var fonts []Font
	for _, el := range elements {
		for _, f := range el.Fonts {
			if f.Family == "" {
				continue
			}
			if _, ok := seen[f.String()]; ok {
				continue
			}
			seen[f.String()] = struct{}{}
			fonts = append(fonts, f)
		}
	}
	return fonts
}
