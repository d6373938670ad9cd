package keys

import "sort"

// Namespaces 从已存储的键集合推导当前在用的命名空间。
// 只有携带分隔符的键才产出命名空间；结果按字典序排序。
// 纯派生，无网络或持久化副作用。
func Namespaces(storedKeys []string) []string {
	set := make(map[string]struct{})
	for _, key := range storedKeys {
		if key == "" {
			continue
		}
		if namespace, _ := SplitKey(key); namespace != "" {
			set[namespace] = struct{}{}
		}
	}

	result := make([]string, 0, len(set))
	for namespace := range set {
		result = append(result, namespace)
	}
	sort.Strings(result)
	return result
}
