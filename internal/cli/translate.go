package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/internal/export"
	"github.com/nerdneilsfield/go-localizer-agent/internal/progress"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/autotranslate"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/translation"
)

var (
	// pull 命令的标志
	pullLanguage  string
	pullNamespace string
	pullDryRun    bool

	// apply-file 命令的标志
	applyFilePath      string
	applyFileNamespace string

	// autotranslate 命令的标志
	autoLanguage string
	autoFormat   string
	autoPush     bool
)

// NewPullCommand 创建 pull 命令
func NewPullCommand() *cobra.Command {
	pullCmd := &cobra.Command{
		Use:   "pull <document>",
		Short: "从存储服务拉取翻译并应用到文档",
		Long: `拉取一个语言的翻译映射，把文本内容替换成译文。
查找顺序固定：先查完整键，再去掉命名空间前缀查裸键。
两级都未命中的元素保持原文。应用前会先加载全部所需字体，
任何一个字体不可用则整体中止，不做部分修改。

用法示例:
  localizer pull design.json --language de
  localizer pull design.json --language de --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: runPullCommand,
	}

	pullCmd.Flags().StringVarP(&pullLanguage, "language", "l", "", "目标语言")
	_ = pullCmd.MarkFlagRequired("language")
	pullCmd.Flags().StringVarP(&pullNamespace, "namespace", "n", "", "裸键回退查找用的命名空间 (默认取项目设置)")
	pullCmd.Flags().BoolVar(&pullDryRun, "dry-run", false, "只统计命中情况，不修改文档")

	return pullCmd
}

func runPullCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	spinner := progress.NewSpinner("拉取翻译 "+pullLanguage, !quietMode)
	m, err := env.storeClient(ctx).FetchTranslations(ctx, pullLanguage)
	if err != nil {
		spinner.Fail("拉取失败")
		return fmt.Errorf("fetch translations failed: %w", err)
	}
	spinner.Success(fmt.Sprintf("拉取到 %d 条翻译", len(m)))

	namespace := env.resolveNamespace(ctx, pullNamespace)
	if pullDryRun {
		return printPullDryRun(cmd, env, m, namespace)
	}

	result, err := env.coord.ApplyLanguage(ctx, m, namespace)
	if err != nil {
		return fmt.Errorf("apply language failed: %w", err)
	}
	printApplyLanguageResult(out, result)
	return nil
}

// printPullDryRun 统计翻译映射对已分配元素的命中情况
func printPullDryRun(cmd *cobra.Command, env *environment, m translation.Map, namespace string) error {
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

	var hits int
	for _, item := range assigned.Items {
		if _, ok := m.Resolve(item.Key, namespace); ok {
			hits++
		}
	}
	fmt.Fprintf(out, "预演：%d / %d 个元素会得到译文，%d 个未命中\n",
		hits, len(assigned.Items), len(assigned.Items)-hits)
	return nil
}

func printApplyLanguageResult(out io.Writer, result translation.ApplyResult) {
	fmt.Fprintf(out, "✅ 已应用 %d / %d 条翻译", result.Applied, result.Total)
	if result.Missed > 0 {
		fmt.Fprintf(out, "，未命中 %d 条", result.Missed)
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "，跳过 %d 条", len(result.Skipped))
	}
	fmt.Fprintln(out)
	for _, skip := range result.Skipped {
		fmt.Fprintf(out, "  ⚠️  %s: %s\n", shortID(skip.ElementID), skip.Reason)
	}
}

// NewApplyFileCommand 创建 apply-file 命令
func NewApplyFileCommand() *cobra.Command {
	applyFileCmd := &cobra.Command{
		Use:   "apply-file <document>",
		Short: "把本地翻译文件应用到文档",
		Long: `从本地文件读入翻译映射并应用到文档，文件格式按扩展名识别
(json / yaml / toml)，嵌套结构自动压平成点分隔键。
查找和字体语义与 pull 一致。

用法示例:
  localizer apply-file design.json --file translations/de.json
  localizer apply-file design.json --file de.yaml --namespace common`,
		Args: cobra.ExactArgs(1),
		RunE: runApplyFileCommand,
	}

	applyFileCmd.Flags().StringVarP(&applyFilePath, "file", "f", "", "翻译文件路径")
	_ = applyFileCmd.MarkFlagRequired("file")
	applyFileCmd.Flags().StringVarP(&applyFileNamespace, "namespace", "n", "", "裸键回退查找用的命名空间 (默认取项目设置)")

	return applyFileCmd
}

func runApplyFileCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	m, err := translation.LoadFile(applyFilePath)
	if err != nil {
		return fmt.Errorf("failed to load translation file: %w", err)
	}
	if len(m) == 0 {
		printWarning(out, "translation file contains no entries")
		return nil
	}

	namespace := env.resolveNamespace(ctx, applyFileNamespace)
	result, err := env.coord.ApplyLanguage(ctx, m, namespace)
	if err != nil {
		return fmt.Errorf("apply language failed: %w", err)
	}
	printApplyLanguageResult(out, result)
	return nil
}

// NewAutoTranslateCommand 创建 autotranslate 命令
func NewAutoTranslateCommand() *cobra.Command {
	autoCmd := &cobra.Command{
		Use:   "autotranslate <document>",
		Short: "机器预翻译已分配键的文案",
		Long: `把文档里已分配键的原文交给 OpenAI 兼容接口翻译成目标语言，
结果写成本地翻译文件，作为人工校对的底稿。
接口地址、密钥和模型在配置文件的 auto_translate 节配置。

用法示例:
  localizer autotranslate design.json --language de
  localizer autotranslate design.json --language de --push`,
		Args: cobra.ExactArgs(1),
		RunE: runAutoTranslateCommand,
	}

	autoCmd.Flags().StringVarP(&autoLanguage, "language", "l", "", "目标语言")
	_ = autoCmd.MarkFlagRequired("language")
	autoCmd.Flags().StringVar(&autoFormat, "format", "json", "输出文件格式 (json, yaml, toml)")
	autoCmd.Flags().BoolVar(&autoPush, "push", false, "翻译完成后上传到存储服务")

	return autoCmd
}

func runAutoTranslateCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	format, err := export.ParseFormat(autoFormat)
	if err != nil {
		return err
	}

	assigned, err := env.coord.Assigned(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list assigned elements: %w", err)
	}
	if assigned.Warning != "" {
		printWarning(out, assigned.Warning)
		return nil
	}
	template := export.Template(assigned.Items)

	translator, err := autotranslate.New(autotranslate.Config{
		BaseURL:     env.cfg.AutoTranslate.BaseURL,
		APIKey:      env.cfg.AutoTranslate.APIKey,
		Model:       env.cfg.AutoTranslate.Model,
		Temperature: env.cfg.AutoTranslate.Temperature,
		BatchSize:   env.cfg.AutoTranslate.BatchSize,
	}, env.log)
	if err != nil {
		return fmt.Errorf("autotranslate not configured: %w", err)
	}

	baseLanguage := env.resolveBaseLanguage(ctx)
	spinner := progress.NewSpinner(
		fmt.Sprintf("机器翻译 %d 条文案到 %s", len(template), autoLanguage), !quietMode)
	translated, translateErr := translator.Translate(ctx, template, baseLanguage, autoLanguage)
	if translateErr != nil && len(translated) == 0 {
		spinner.Fail("翻译失败")
		return translateErr
	}
	if translateErr != nil {
		spinner.Fail("部分批次失败，只保留成功的条目")
		env.log.Warn("autotranslate incomplete", zap.Error(translateErr))
	} else {
		spinner.Success(fmt.Sprintf("翻译完成 %d 条", len(translated)))
	}

	path := filepath.Join(env.cfg.TranslationsDir, autoLanguage+"."+format.Extension())
	if err := export.New(env.log).Export(translated, autoLanguage, format, path); err != nil {
		return fmt.Errorf("failed to write translation file: %w", err)
	}
	fmt.Fprintf(out, "💾 已写入 %s (%d 条)\n", path, len(translated))

	if translateErr != nil {
		return fmt.Errorf("autotranslate incomplete: %w", translateErr)
	}

	if autoPush {
		updated, err := env.storeClient(ctx).PushTranslations(ctx, autoLanguage, translated)
		if err != nil {
			return fmt.Errorf("push translations failed: %w", err)
		}
		fmt.Fprintf(out, "✅ 已上传 %d 条翻译到存储服务\n", updated)
	}
	return nil
}
