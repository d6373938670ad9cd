// Package export 把翻译映射写成本地文件。
// 支持嵌套的 json/yaml/toml 与 go-i18n 消息文件；
// go-i18n 文件写出后会装载回 bundle 做一次校验。
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/keys"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/translation"
)

// Format 导出格式
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatGoI18n Format = "goi18n"
)

// ParseFormat 解析格式名
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML, FormatTOML, FormatGoI18n:
		return Format(s), nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// Extension 返回格式对应的文件扩展名
func (f Format) Extension() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		// go-i18n 消息文件也是 JSON
		return "json"
	}
}

// Exporter 翻译文件导出器
type Exporter struct {
	logger *zap.Logger
}

// New 创建导出器
func New(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger}
}

// Template 从已分配条目构造基础语言模板：键到源文案的映射
func Template(items []keys.ScanItem) translation.Map {
	m := make(translation.Map, len(items))
	for _, item := range items {
		if item.Key == "" {
			continue
		}
		m[item.Key] = item.Text
	}
	return m
}

// Export 把翻译映射写到路径。
// lang 只在 go-i18n 校验时用到，其余格式可传空。
func (e *Exporter) Export(m translation.Map, lang string, format Format, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := e.encode(m, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	if format == FormatGoI18n {
		if err := validateMessageFile(path, lang); err != nil {
			return fmt.Errorf("exported message file failed validation: %w", err)
		}
	}

	e.logger.Info("translations exported",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("entries", len(m)))
	return nil
}

func (e *Exporter) encode(m translation.Map, format Format) ([]byte, error) {
	if format == FormatGoI18n {
		// go-i18n 消息文件是扁平键值
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode messages: %w", err)
		}
		return append(data, '\n'), nil
	}

	nested, conflicts := m.Nest()
	for _, key := range conflicts {
		e.logger.Warn("key conflicts with a shorter key and was dropped", zap.String("key", key))
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(nested, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(nested)
		if err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return data, nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(nested); err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// validateMessageFile 把导出的消息文件装载回 go-i18n bundle 验证可用
func validateMessageFile(path, lang string) error {
	tag := language.English
	if lang != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			return fmt.Errorf("invalid language %q: %w", lang, err)
		}
		tag = parsed
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	if _, err := bundle.LoadMessageFile(path); err != nil {
		return err
	}
	return nil
}
