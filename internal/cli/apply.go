package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-localizer-agent/internal/store"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/keys"
)

var (
	// apply 命令的标志
	applyItemsPath string

	// restore 命令的标志
	restoreAll bool
)

// NewApplyCommand 创建 apply 命令
func NewApplyCommand() *cobra.Command {
	applyCmd := &cobra.Command{
		Use:   "apply <document> --items <items.json>",
		Short: "把扫描条目里的键写入文档",
		Long: `读取 scan --json 导出的条目文件，把其中的键写入文档：
元素的键槽位写入完整键，显示名称改成键；首次写入时
元素当前的名称会保存为原始名称，供 restore 恢复。
未选中的条目跳过，已从文档删除的元素静默忽略。

用法示例:
  localizer scan design.json --json items.json
  localizer apply design.json --items items.json`,
		Args: cobra.ExactArgs(1),
		RunE: runApplyCommand,
	}

	applyCmd.Flags().StringVar(&applyItemsPath, "items", "", "scan --json 导出的条目文件")
	_ = applyCmd.MarkFlagRequired("items")

	return applyCmd
}

func runApplyCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	items, err := readItemsJSON(applyItemsPath)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		printWarning(out, "items file is empty")
		return nil
	}

	result, err := env.coord.ApplyKeys(ctx, items)
	if err != nil {
		return fmt.Errorf("apply keys failed: %w", err)
	}

	printApplyKeysResult(out, result.Applied, len(result.Skipped), result.Namespaces)
	for _, skip := range result.Skipped {
		fmt.Fprintf(out, "  ⚠️  %s: %s\n", shortID(skip.ElementID), skip.Reason)
	}
	return nil
}

// readItemsJSON 读入 scan 导出的条目文件
func readItemsJSON(path string) ([]keys.ScanItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}
	var items []keys.ScanItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse items file: %w", err)
	}
	return items, nil
}

// NewRestoreCommand 创建 restore 命令
func NewRestoreCommand() *cobra.Command {
	restoreCmd := &cobra.Command{
		Use:   "restore <document> [elementID...]",
		Short: "把元素的显示名称恢复为保存的原始名称",
		Long: `把元素的显示名称恢复为 apply 时保存的原始名称。
键槽位和文本内容保持不变，之后重新扫描仍会沿用已有键。

用法示例:
  localizer restore design.json --all        # 恢复所有已分配键的元素
  localizer restore design.json 2f7c 81aa    # 只恢复指定元素`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRestoreCommand,
	}

	restoreCmd.Flags().BoolVar(&restoreAll, "all", false, "恢复所有已分配键的元素")

	return restoreCmd
}

func runRestoreCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	ids := args[1:]
	if len(ids) == 0 && !restoreAll {
		return fmt.Errorf("element ids or --all required")
	}

	if restoreAll {
		assigned, err := env.coord.Assigned(ctx, "")
		if err != nil {
			return fmt.Errorf("failed to list assigned elements: %w", err)
		}
		if assigned.Warning != "" {
			printWarning(out, assigned.Warning)
			return nil
		}
		ids = ids[:0]
		for _, item := range assigned.Items {
			ids = append(ids, item.ElementID)
		}
	}

	result, err := env.coord.RestoreNames(ctx, ids)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Fprintf(out, "✅ 已恢复 %d 个名称", result.Restored)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "，跳过 %d 个", len(result.Skipped))
	}
	fmt.Fprintln(out)
	return nil
}

// NewSelectCommand 创建 select 命令
func NewSelectCommand() *cobra.Command {
	selectCmd := &cobra.Command{
		Use:   "select",
		Short: "管理元素的推送选中状态",
		Long: `元素默认选中参与键写入和推送。排除的元素作为例外记录在本地状态里，
重新包含即可删除例外。

用法示例:
  localizer select exclude design.json 2f7c 81aa  # 排除元素
  localizer select include design.json 2f7c       # 重新包含
  localizer select show design.json               # 查看当前排除的元素
  localizer select reset design.json              # 清空所有例外`,
	}

	selectCmd.AddCommand(newSelectChangeCommand("include", true))
	selectCmd.AddCommand(newSelectChangeCommand("exclude", false))
	selectCmd.AddCommand(newSelectShowCommand())
	selectCmd.AddCommand(newSelectResetCommand())

	return selectCmd
}

func newSelectChangeCommand(name string, selected bool) *cobra.Command {
	short := "把元素标记为排除"
	if selected {
		short = "把元素重新标记为选中"
	}
	return &cobra.Command{
		Use:   name + " <document> <elementID>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(args[0])
			if err != nil {
				return err
			}
			defer env.Close()

			changes := make([]store.Change, 0, len(args)-1)
			for _, id := range args[1:] {
				changes = append(changes, store.Change{ID: id, Selected: selected})
			}
			if err := env.coord.SetSelectedBulk(cmd.Context(), changes); err != nil {
				return fmt.Errorf("failed to update selection: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 已更新 %d 个元素的选中状态\n", len(changes))
			return nil
		},
	}
}

func newSelectShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <document>",
		Short: "列出当前排除的元素",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(args[0])
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			excluded, err := loadExcluded(cmd, env)
			if err != nil {
				return err
			}
			if len(excluded) == 0 {
				fmt.Fprintln(out, "没有排除的元素，全部参与推送")
				return nil
			}
			fmt.Fprintf(out, "排除的元素 (%d):\n", len(excluded))
			for _, id := range excluded {
				fmt.Fprintf(out, "  - %s\n", id)
			}
			return nil
		},
	}
}

func newSelectResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <document>",
		Short: "清空所有排除例外",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(args[0])
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			excluded, err := loadExcluded(cmd, env)
			if err != nil {
				return err
			}
			if len(excluded) == 0 {
				fmt.Fprintln(out, "没有需要清空的例外")
				return nil
			}

			changes := make([]store.Change, 0, len(excluded))
			for _, id := range excluded {
				changes = append(changes, store.Change{ID: id, Selected: true})
			}
			if err := env.coord.SetSelectedBulk(cmd.Context(), changes); err != nil {
				return fmt.Errorf("failed to reset selection: %w", err)
			}
			fmt.Fprintf(out, "✅ 已清空 %d 个例外\n", len(changes))
			return nil
		},
	}
}

// loadExcluded 读出当前的排除例外，排序返回
func loadExcluded(cmd *cobra.Command, env *environment) ([]string, error) {
	exceptions, err := store.NewSelectionStore(env.kv, env.log).Load(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to load selection state: %w", err)
	}
	excluded := make([]string, 0, len(exceptions))
	for id := range exceptions {
		excluded = append(excluded, id)
	}
	sort.Strings(excluded)
	return excluded, nil
}
