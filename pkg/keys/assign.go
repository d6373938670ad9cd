package keys

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

const (
	// maxPathParts 参与键生成的最近祖先数量上限
	maxPathParts = 3
	// maxTextRunes 以文本内容兜底时截取的最大字符数
	maxTextRunes = 30
)

// defaultPlaceholderPattern 识别自动生成的占位名称（如 "Text"、"Text 12"）
const defaultPlaceholderPattern = `^text\b`

// Option 分配器选项
type Option func(*Assigner)

// WithPlaceholderPatterns 替换占位名称识别模式。
// 模式使用 regexp2 语法编译，忽略大小写；编译失败的模式被跳过。
func WithPlaceholderPatterns(patterns ...string) Option {
	return func(a *Assigner) {
		a.placeholders = compilePatterns(patterns)
	}
}

// Assigner 键分配器，维护一次扫描内的已用键集合。
// 非并发安全：一次扫描对应一个 Assigner，元素按遍历顺序送入。
type Assigner struct {
	namespace    string
	used         map[string]struct{}
	placeholders []*regexp2.Regexp
}

// NewAssigner 创建键分配器。namespace 为空时生成裸键。
func NewAssigner(namespace string, opts ...Option) *Assigner {
	a := &Assigner{
		namespace:    namespace,
		used:         make(map[string]struct{}),
		placeholders: compilePatterns([]string{defaultPlaceholderPattern}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assign 为单个元素计算键。
// 已有键原样沿用并登记其本地片段；否则从层级路径与基础名生成，
// 在批内去重后立即登记，保证同一次扫描内后续元素能看到它。
func (a *Assigner) Assign(c Candidate) Assignment {
	if c.StoredKey != "" {
		namespace, localKey := SplitKey(c.StoredKey)
		a.used[localKey] = struct{}{}
		return Assignment{
			Source:    SourceReused,
			Key:       c.StoredKey,
			Namespace: namespace,
			LocalKey:  localKey,
		}
	}

	parts := c.Path
	if len(parts) > maxPathParts {
		parts = parts[len(parts)-maxPathParts:]
	}

	joined := strings.Join(append(append([]string{}, parts...), a.baseName(c)), "_")
	localKey := Slugify(joined)
	if localKey == "" {
		localKey = FallbackToken
	}
	localKey = a.dedupe(localKey)
	a.used[localKey] = struct{}{}

	return Assignment{
		Source:    SourceGenerated,
		Key:       JoinKey(a.namespace, localKey),
		Namespace: a.namespace,
		LocalKey:  localKey,
	}
}

// Used 报告本地键是否已被本次扫描占用
func (a *Assigner) Used(localKey string) bool {
	_, ok := a.used[localKey]
	return ok
}

// baseName 选择键的基础名：显示名称可用时用显示名称，
// 名称为空或命中占位模式时退回文本内容的前若干字符。
func (a *Assigner) baseName(c Candidate) string {
	if c.Name != "" && !a.isPlaceholderName(c.Name) {
		return c.Name
	}
	runes := []rune(c.Text)
	if len(runes) > maxTextRunes {
		runes = runes[:maxTextRunes]
	}
	return string(runes)
}

// isPlaceholderName 判断名称是否是宿主自动生成的占位名
func (a *Assigner) isPlaceholderName(name string) bool {
	for _, re := range a.placeholders {
		if matched, err := re.MatchString(name); err == nil && matched {
			return true
		}
	}
	return false
}

// dedupe 批内冲突时追加 _2、_3……取第一个未占用的整数
func (a *Assigner) dedupe(localKey string) string {
	if _, taken := a.used[localKey]; !taken {
		return localKey
	}
	for n := 2; ; n++ {
		candidate := localKey + "_" + strconv.Itoa(n)
		if _, taken := a.used[candidate]; !taken {
			return candidate
		}
	}
}

func compilePatterns(patterns []string) []*regexp2.Regexp {
	compiled := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp2.Compile(p, regexp2.IgnoreCase)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}
