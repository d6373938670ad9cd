// Package report 生成本地化状态报告。
// 汇总已分配的键与各语言的翻译覆盖率，输出 Markdown 或 HTML。
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/Kunde21/markdownfmt/v3"
	"github.com/Kunde21/markdownfmt/v3/markdown"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/keys"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/translation"
)

// maxCellWidth 表格单元格的最大显示宽度
const maxCellWidth = 40

// Coverage 单个语言的翻译覆盖情况
type Coverage struct {
	Language   string   `json:"language"`
	Translated int      `json:"translated"`
	Total      int      `json:"total"`
	Missing    []string `json:"missing,omitempty"`
}

// Report 报告数据
type Report struct {
	Document    string          `json:"document"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Items       []keys.ScanItem `json:"items"`
	Languages   []Coverage      `json:"languages,omitempty"`
}

// Generator 报告生成器
type Generator struct {
	logger *zap.Logger
}

// NewGenerator 创建报告生成器
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// Build 汇总已分配条目与各语言映射，计算覆盖率
func (g *Generator) Build(docName string, items []keys.ScanItem, languages map[string]translation.Map) Report {
	r := Report{
		Document:    docName,
		GeneratedAt: time.Now(),
		Items:       items,
	}

	langs := make([]string, 0, len(languages))
	for lang := range languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		m := languages[lang]
		coverage := Coverage{Language: lang, Total: len(items)}
		for _, item := range items {
			if _, ok := m.Resolve(item.Key, item.Namespace); ok {
				coverage.Translated++
			} else {
				coverage.Missing = append(coverage.Missing, item.Key)
			}
		}
		sort.Strings(coverage.Missing)
		r.Languages = append(r.Languages, coverage)
	}
	return r
}

// Markdown 渲染 Markdown 报告并用 markdownfmt 规范化
func (g *Generator) Markdown(r Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Localization Report: %s\n\n", r.Document)
	fmt.Fprintf(&buf, "Generated at %s.\n\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&buf, "## Assigned Keys (%d)\n\n", len(r.Items))

	keysTable := table.NewWriter()
	keysTable.AppendHeader(table.Row{"Key", "Namespace", "Name", "Text"})
	for _, item := range r.Items {
		keysTable.AppendRow(table.Row{
			item.Key,
			item.Namespace,
			clip(item.CurrentName),
			clip(item.Text),
		})
	}
	buf.WriteString(keysTable.RenderMarkdown())
	buf.WriteString("\n")

	if len(r.Languages) > 0 {
		buf.WriteString("\n## Coverage\n\n")

		coverageTable := table.NewWriter()
		coverageTable.AppendHeader(table.Row{"Language", "Translated", "Total", "Coverage"})
		for _, c := range r.Languages {
			coverageTable.AppendRow(table.Row{
				c.Language,
				c.Translated,
				c.Total,
				percentage(c.Translated, c.Total),
			})
		}
		buf.WriteString(coverageTable.RenderMarkdown())
		buf.WriteString("\n")

		for _, c := range r.Languages {
			if len(c.Missing) == 0 {
				continue
			}
			fmt.Fprintf(&buf, "\n### Missing in %s\n\n", c.Language)
			for _, key := range c.Missing {
				fmt.Fprintf(&buf, "- `%s`\n", key)
			}
		}
	}

	mdOpts := []markdown.Option{
		markdown.WithCodeFormatters(markdown.GoCodeFormatter),
	}
	formatted, err := markdownfmt.Process("", buf.Bytes(), mdOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to format report: %w", err)
	}
	return formatted, nil
}

// HTML 渲染 HTML 报告，Markdown 经 goldmark 转换
func (g *Generator) HTML(r Report) ([]byte, error) {
	md, err := g.Markdown(r)
	if err != nil {
		return nil, err
	}

	converter := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	var body bytes.Buffer
	if err := converter.Convert(md, &body); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Localization Report: %s</title>\n</head>\n<body>\n", r.Document)
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// clip 把长文本截到表格可读的宽度
func clip(s string) string {
	return runewidth.Truncate(s, maxCellWidth, "…")
}

func percentage(translated, total int) string {
	if total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", float64(translated)/float64(total)*100)
}
