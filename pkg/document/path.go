package document

import "context"

// AncestorPath 返回元素的祖先名称链，根在前、元素自身不含。
// 从元素向上沿父链走到顶层页面容器为止（不含页面本身），
// 没有名称的祖先直接跳过。元素不存在时返回空链，不报错。
func AncestorPath(ctx context.Context, h Hierarchy, id string) ([]string, error) {
	var reversed []string
	visited := map[string]struct{}{id: {}}

	current := id
	for {
		parent, ok, err := h.Parent(ctx, current)
		if err != nil {
			return nil, err
		}
		if !ok || parent.Kind == KindPage {
			break
		}
		// 父链成环时终止
		if _, seen := visited[parent.ID]; seen {
			break
		}
		visited[parent.ID] = struct{}{}

		if parent.Name != "" {
			reversed = append(reversed, parent.Name)
		}
		current = parent.ID
	}

	path := make([]string, len(reversed))
	for i, name := range reversed {
		path[len(reversed)-1-i] = name
	}
	return path, nil
}
