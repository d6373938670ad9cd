// Package translation 实现翻译映射与同步引擎：
// 把某个语言的键值映射应用到文档中带键的文本元素上。
package translation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/keys"
)

// Map 单一语言的扁平翻译映射，键为点分隔的本地化键
type Map map[string]string

// Flatten 把嵌套映射压平成点分隔键的扁平映射。
// 字符串值原样保留，数字与布尔转成字符串，数组与 null 忽略。
func Flatten(nested map[string]any) Map {
	m := make(Map)
	flattenInto(m, "", nested)
	return m
}

func flattenInto(m Map, prefix string, nested map[string]any) {
	for k, v := range nested {
		key := k
		if prefix != "" {
			key = prefix + keys.Separator + k
		}
		switch value := v.(type) {
		case string:
			m[key] = value
		case map[string]any:
			flattenInto(m, key, value)
		case nil, []any:
		default:
			m[key] = fmt.Sprint(value)
		}
	}
}

// Resolve 按固定顺序查找翻译：先查完整键；未命中且给定命名空间、
// 键又带该命名空间前缀时，剥掉前缀再查一次。两次都未命中返回 false。
// 查找顺序不可调换，它让翻译映射既能用全限定键也能用相对键。
func (m Map) Resolve(storedKey, namespace string) (string, bool) {
	if v, ok := m[storedKey]; ok {
		return v, true
	}
	if namespace != "" {
		if bare, ok := strings.CutPrefix(storedKey, namespace+keys.Separator); ok {
			if v, ok := m[bare]; ok {
				return v, true
			}
		}
	}
	return "", false
}

// Nest 把扁平映射还原成嵌套结构，是 Flatten 的逆操作。
// 键按字典序处理；某个键与更短键的标量值冲突时无法安放，
// 被挤掉的键收集在第二个返回值里。
func (m Map) Nest() (map[string]any, []string) {
	nested := make(map[string]any)
	var conflicts []string

	for _, key := range m.Keys() {
		parts := strings.Split(key, keys.Separator)
		cur := nested
		ok := true
		for _, part := range parts[:len(parts)-1] {
			child, exists := cur[part]
			if !exists {
				next := make(map[string]any)
				cur[part] = next
				cur = next
				continue
			}
			childMap, isMap := child.(map[string]any)
			if !isMap {
				// 前缀位置已被标量占用
				conflicts = append(conflicts, key)
				ok = false
				break
			}
			cur = childMap
		}
		if !ok {
			continue
		}

		leaf := parts[len(parts)-1]
		if _, exists := cur[leaf]; exists {
			conflicts = append(conflicts, key)
			continue
		}
		cur[leaf] = m[key]
	}
	return nested, conflicts
}

// Keys 返回排序后的全部键
func (m Map) Keys() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge 合并 other 中的条目，冲突时 other 优先
func (m Map) Merge(other Map) {
	for k, v := range other {
		m[k] = v
	}
}
