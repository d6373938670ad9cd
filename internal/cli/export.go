package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-localizer-agent/internal/export"
	"github.com/nerdneilsfield/go-localizer-agent/internal/progress"
	"github.com/nerdneilsfield/go-localizer-agent/internal/report"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/translation"
)

var (
	// export 命令的标志
	exportFormat    string
	exportLanguage  string
	exportOut       string
	exportNamespace string

	// report 命令的标志
	reportOut       string
	reportHTML      bool
	reportLanguages []string
)

// NewExportCommand 创建 export 命令
func NewExportCommand() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export <document>",
		Short: "导出翻译模板文件",
		Long: `收集文档里已分配键的元素，以当前文案为初始值生成翻译模板。
支持 json、yaml、toml 和 go-i18n 四种格式，文件名为 <语言>.<扩展名>。

用法示例:
  localizer export design.json
  localizer export design.json --format yaml --language de
  localizer export design.json --format goi18n -o ./locales`,
		Args: cobra.ExactArgs(1),
		RunE: runExportCommand,
	}

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "导出格式 (json/yaml/toml/goi18n)")
	exportCmd.Flags().StringVarP(&exportLanguage, "language", "l", "", "目标语言，默认为源文案语言")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "输出目录，默认为配置的翻译目录")
	exportCmd.Flags().StringVarP(&exportNamespace, "namespace", "n", "", "只导出该命名空间下的键")

	return exportCmd
}

func runExportCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	assigned, err := env.coord.Assigned(ctx, exportNamespace)
	if err != nil {
		return fmt.Errorf("failed to list assigned elements: %w", err)
	}
	if assigned.Warning != "" {
		printWarning(out, assigned.Warning)
		return nil
	}

	tmpl := export.Template(assigned.Items)
	if len(tmpl) == 0 {
		printWarning(out, "no assigned keys to export")
		return nil
	}

	lang := exportLanguage
	if lang == "" {
		lang = env.resolveBaseLanguage(ctx)
	}
	dir := exportOut
	if dir == "" {
		dir = env.cfg.TranslationsDir
	}

	path := filepath.Join(dir, lang+"."+format.Extension())
	if err := export.New(env.log).Export(tmpl, lang, format, path); err != nil {
		return fmt.Errorf("failed to export template: %w", err)
	}

	fmt.Fprintf(out, "💾 已写入 %s (%d 条)\n", path, len(tmpl))
	return nil
}

// NewReportCommand 创建 report 命令
func NewReportCommand() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report <document>",
		Short: "生成键清单和翻译覆盖率报告",
		Long: `汇总文档里所有已分配键的元素，对照翻译目录下的语言文件
统计每种语言的覆盖率，输出 Markdown 或 HTML 报告。

用法示例:
  localizer report design.json
  localizer report design.json --languages de,fr -o report.md
  localizer report design.json --html -o report.html`,
		Args: cobra.ExactArgs(1),
		RunE: runReportCommand,
	}

	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "输出文件，默认打印到标准输出")
	reportCmd.Flags().BoolVar(&reportHTML, "html", false, "输出 HTML 而不是 Markdown")
	reportCmd.Flags().StringSliceVar(&reportLanguages, "languages", nil, "统计覆盖率的语言列表，默认为配置的语言")

	return reportCmd
}

func runReportCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	assigned, err := env.coord.Assigned(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list assigned elements: %w", err)
	}
	if assigned.Warning != "" {
		printWarning(out, assigned.Warning)
		return nil
	}

	langs := reportLanguages
	if len(langs) == 0 {
		langs = env.cfg.Languages
	}

	languages := make(map[string]translation.Map, len(langs))
	bar := progress.New("加载翻译文件", len(langs), !quietMode && reportOut != "")
	for _, lang := range langs {
		m, err := loadTranslationFile(env.cfg.TranslationsDir, lang)
		if err != nil {
			bar.Stop()
			return fmt.Errorf("failed to load translations for %s: %w", lang, err)
		}
		languages[lang] = m
		bar.Increment()
	}
	bar.Stop()

	gen := report.NewGenerator(env.log)
	rep := gen.Build(env.provider.Name(), assigned.Items, languages)

	var rendered []byte
	if reportHTML {
		rendered, err = gen.HTML(rep)
	} else {
		rendered, err = gen.Markdown(rep)
	}
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if reportOut == "" {
		fmt.Fprint(out, string(rendered))
		return nil
	}
	if err := os.WriteFile(reportOut, rendered, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(out, "💾 已写入 %s\n", reportOut)
	return nil
}

// loadTranslationFile 按扩展名顺序查找语言文件，找不到时返回空表
func loadTranslationFile(dir, lang string) (translation.Map, error) {
	for _, ext := range []string{"json", "yaml", "yml", "toml"} {
		path := filepath.Join(dir, lang+"."+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return translation.LoadFile(path)
	}
	return translation.Map{}, nil
}
