// Package filter 按表达式或模糊搜索筛选扫描条目。
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/keys"
)

// Expression 编译好的条目过滤表达式
type Expression struct {
	source  string
	program *vm.Program
}

// Compile 编译过滤表达式。
// 表达式可引用 id、key、namespace、localKey、name、originalName、text、existing、selected，
// 求值结果必须是布尔值。
func Compile(source string) (*Expression, error) {
	if source == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := expr.Compile(source,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", source, err)
	}
	return &Expression{source: source, program: program}, nil
}

// Match 判断单个条目是否满足表达式
func (e *Expression) Match(item keys.ScanItem) (bool, error) {
	result, err := expr.Run(e.program, environment(item))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression %q: %w", e.source, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not return a boolean", e.source)
	}
	return matched, nil
}

// Apply 过滤条目列表，保持原有顺序
func (e *Expression) Apply(items []keys.ScanItem) ([]keys.ScanItem, error) {
	out := make([]keys.ScanItem, 0, len(items))
	for _, item := range items {
		ok, err := e.Match(item)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func environment(item keys.ScanItem) map[string]any {
	return map[string]any{
		"id":           item.ElementID,
		"key":          item.Key,
		"namespace":    item.Namespace,
		"localKey":     item.LocalKey,
		"name":         item.CurrentName,
		"originalName": item.OriginalName,
		"text":         item.Text,
		"existing":     item.Existing,
		"selected":     item.Selected,
	}
}

// Search 在键、显示名称和文本上做大小写不敏感的模糊匹配，保持原有顺序。
// 查询为空时返回全部条目。
func Search(items []keys.ScanItem, query string) []keys.ScanItem {
	if query == "" {
		return items
	}
	out := make([]keys.ScanItem, 0, len(items))
	for _, item := range items {
		if fuzzy.MatchFold(query, item.Key) ||
			fuzzy.MatchFold(query, item.CurrentName) ||
			fuzzy.MatchFold(query, item.Text) {
			out = append(out, item)
		}
	}
	return out
}
