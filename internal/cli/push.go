package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-localizer-agent/internal/progress"
	"github.com/nerdneilsfield/go-localizer-agent/internal/store"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/storeclient"
)

var (
	// push 命令的标志
	pushNamespace string

	// project 命令的标志
	projectID           string
	projectWriteKey     string
	projectNamespace    string
	projectBaseLanguage string
)

// NewPushCommand 创建 push 命令
func NewPushCommand() *cobra.Command {
	pushCmd := &cobra.Command{
		Use:   "push <document>",
		Short: "把已分配的键和原文推送到存储服务",
		Long: `收集工作集中已分配键且处于选中状态的元素，
把键、原文和元素名称批量推送到翻译存储服务。
被 select exclude 排除的元素不参与推送。

用法示例:
  localizer push design.json
  localizer push design.json --namespace checkout`,
		Args: cobra.ExactArgs(1),
		RunE: runPushCommand,
	}

	pushCmd.Flags().StringVarP(&pushNamespace, "namespace", "n", "", "只推送该命名空间下的键")

	return pushCmd
}

func runPushCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	assigned, err := env.coord.Assigned(ctx, pushNamespace)
	if err != nil {
		return fmt.Errorf("failed to list assigned elements: %w", err)
	}
	if assigned.Warning != "" {
		printWarning(out, assigned.Warning)
		return nil
	}

	uploads := make([]storeclient.KeyUpload, 0, len(assigned.Items))
	for _, item := range assigned.Items {
		if !item.Selected {
			continue
		}
		uploads = append(uploads, storeclient.KeyUpload{
			Key:         item.Key,
			Namespace:   item.Namespace,
			SourceText:  item.Text,
			ElementName: item.OriginalName,
		})
	}
	if len(uploads) == 0 {
		printWarning(out, "all assigned elements are excluded from push")
		return nil
	}

	spinner := progress.NewSpinner(fmt.Sprintf("推送 %d 个键", len(uploads)), !quietMode)
	result, err := env.storeClient(ctx).PushKeys(ctx, uploads)
	if err != nil {
		spinner.Fail("推送失败")
		return fmt.Errorf("push keys failed: %w", err)
	}
	spinner.Success("推送完成")

	fmt.Fprintf(out, "✅ 新建 %d 个，更新 %d 个，服务端跳过 %d 个\n",
		result.Created, result.Updated, result.Skipped)
	return nil
}

// NewProjectCommand 创建 project 命令
func NewProjectCommand() *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "查看和修改项目设置",
		Long: `项目设置保存在本地状态里，包含存储服务的项目标识、写入密钥、
默认命名空间和源文案语言。设置的值优先于配置文件。

用法示例:
  localizer project set --project-id web-app --write-key wk-xxxx
  localizer project set --namespace common --base-language en
  localizer project show`,
	}

	projectCmd.AddCommand(newProjectSetCommand())
	projectCmd.AddCommand(newProjectShowCommand())

	return projectCmd
}

func newProjectSetCommand() *cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "写入项目设置",
		Args:  cobra.NoArgs,
		RunE:  runProjectSetCommand,
	}

	setCmd.Flags().StringVar(&projectID, "project-id", "", "存储服务的项目标识")
	setCmd.Flags().StringVar(&projectWriteKey, "write-key", "", "存储服务的写入密钥")
	setCmd.Flags().StringVar(&projectNamespace, "namespace", "", "默认命名空间")
	setCmd.Flags().StringVar(&projectBaseLanguage, "base-language", "", "源文案语言 (BCP 47)")

	return setCmd
}

func runProjectSetCommand(cmd *cobra.Command, args []string) error {
	env, err := newStateEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	settingsStore := store.NewSettingsStore(env.kv, env.log)
	settings, err := settingsStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// 只改动显式给出的标志，允许用空值清除
	flags := cmd.Flags()
	if flags.Changed("project-id") {
		settings.ProjectID = projectID
	}
	if flags.Changed("write-key") {
		settings.WriteKey = projectWriteKey
	}
	if flags.Changed("namespace") {
		settings.DefaultNamespace = projectNamespace
	}
	if flags.Changed("base-language") {
		settings.BaseLanguage = projectBaseLanguage
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	if err := settingsStore.Save(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✅ 项目设置已保存")
	return nil
}

func newProjectShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "显示项目设置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newStateEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			settings, err := store.NewSettingsStore(env.kv, env.log).Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			title.Fprintln(out, "项目设置")
			fmt.Fprintf(out, "  项目标识:     %s\n", orUnset(settings.ProjectID))
			fmt.Fprintf(out, "  写入密钥:     %s\n", maskSecret(settings.WriteKey))
			fmt.Fprintf(out, "  默认命名空间: %s\n", orUnset(settings.DefaultNamespace))
			fmt.Fprintf(out, "  源文案语言:   %s\n", orUnset(settings.BaseLanguage))
			return nil
		},
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(未设置)"
	}
	return s
}

// maskSecret 遮蔽密钥，只显示前后各4位
func maskSecret(s string) string {
	if s == "" {
		return "(未设置)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
