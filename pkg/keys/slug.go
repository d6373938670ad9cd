package keys

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// markStripper 将带重音的字符分解为基础字母并去掉组合符号
var markStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	invalidRunes   = regexp.MustCompile(`[^a-z0-9\s_-]+`)
	separatorRuns  = regexp.MustCompile(`[\s-]+`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// Slugify 把任意文本规范化为只含 [a-z0-9_] 的键安全词元。
// 步骤依次为：转小写、去重音、丢弃字符类之外的字符、
// 把空白（以及过滤步骤保留下来的连字符）折叠为单个下划线、
// 合并重复下划线、去掉首尾下划线。
// 函数是纯函数且对所有输入都有输出；结果可能为空串，
// 兜底词由调用方补上。
func Slugify(text string) string {
	s := strings.ToLower(text)
	if stripped, _, err := transform.String(markStripper, s); err == nil {
		s = stripped
	}
	s = invalidRunes.ReplaceAllString(s, "")
	s = separatorRuns.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
