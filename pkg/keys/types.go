// Package keys 实现本地化键的生成与分配。
// 键由元素在文档层级中的位置推导，保证一次扫描内两两不同，
// 且已有键在重新扫描时保持不变。
package keys

// Separator 命名空间与本地键之间的分隔符
const Separator = "."

// FallbackToken 规范化结果为空时使用的兜底词
const FallbackToken = "text"

// Candidate 一次扫描中待分配键的文本元素
type Candidate struct {
	// ID 元素的不透明标识符
	ID string

	// Name 元素当前的显示名称
	Name string

	// Text 元素当前的文本内容
	Text string

	// StoredKey 元素上已持久化的键（可能为空）
	StoredKey string

	// Path 祖先名称链，根在前，不含元素自身
	Path []string
}

// Source 标记键的来源：沿用已有键，或本次新生成
type Source int

const (
	// SourceGenerated 本次扫描新生成的键
	SourceGenerated Source = iota
	// SourceReused 元素上已存在、原样沿用的键
	SourceReused
)

// Assignment 单个元素的分配结果
type Assignment struct {
	// Source 键的来源（沿用/生成）
	Source Source

	// Key 完整键，命名空间非空时为 namespace + "." + LocalKey
	Key string

	// Namespace 键的命名空间部分，可能为空
	Namespace string

	// LocalKey 去掉命名空间前缀后的本地键
	LocalKey string
}

// Reused 是否沿用了已有键
func (a Assignment) Reused() bool {
	return a.Source == SourceReused
}

// ScanItem 扫描返回给调用方的条目，不独立持久化
type ScanItem struct {
	ElementID    string `json:"elementId"`
	CurrentName  string `json:"currentName"`
	OriginalName string `json:"originalName"`
	Text         string `json:"text"`
	Key          string `json:"key"`
	Namespace    string `json:"namespace"`
	LocalKey     string `json:"localKey"`
	Existing     bool   `json:"existing"`
	Selected     bool   `json:"selected"`
}

// SplitKey 在第一个分隔符处拆分完整键。
// 没有分隔符时命名空间为空，整个键作为本地键返回。
func SplitKey(key string) (namespace, localKey string) {
	for i := 0; i < len(key); i++ {
		if key[i] == Separator[0] {
			return key[:i], key[i+1:]
		}
	}
	return "", key
}

// JoinKey 组合命名空间与本地键为完整键
func JoinKey(namespace, localKey string) string {
	if namespace == "" {
		return localKey
	}
	return namespace + Separator + localKey
}
