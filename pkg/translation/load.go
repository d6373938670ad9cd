package translation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadFile 按扩展名解析翻译文件（json / yaml / yml / toml），
// 嵌套结构压平成点分隔键
func LoadFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file: %w", err)
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// Parse 按指定格式解析翻译内容
func Parse(data []byte, format string) (Map, error) {
	var nested map[string]any

	switch format {
	case "json":
		if err := json.Unmarshal(data, &nested); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &nested); err != nil {
			return nil, err
		}
	case "toml":
		if err := toml.Unmarshal(data, &nested); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported translation format: %q", format)
	}

	return Flatten(nested), nil
}
