package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/keys"
)

var (
	// scan 命令的标志
	scanNamespace string
	scanApply     bool
	scanJSONPath  string
)

// NewScanCommand 创建 scan 命令
func NewScanCommand() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan <document>",
		Short: "扫描文档并为文本元素计算本地化键",
		Long: `扫描当前选区（或整个文档）里的文本元素，为每个元素计算本地化键。
已有键的元素原样沿用，其余元素按层级路径生成新键。
扫描本身不修改文档，加 --apply 才把键写进去。

用法示例:
  localizer scan design.json                     # 预览键分配
  localizer scan design.json --namespace common  # 指定命名空间
  localizer scan design.json --apply             # 计算并写入键
  localizer scan design.json --json items.json   # 把条目导出成 JSON`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCommand,
	}

	scanCmd.Flags().StringVarP(&scanNamespace, "namespace", "n", "", "键的命名空间 (默认取项目设置)")
	scanCmd.Flags().BoolVar(&scanApply, "apply", false, "扫描后直接把键写入文档")
	scanCmd.Flags().StringVar(&scanJSONPath, "json", "", "把扫描条目写到指定 JSON 文件")

	return scanCmd
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	namespace := env.resolveNamespace(ctx, scanNamespace)
	result, err := env.coord.Scan(ctx, namespace)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if result.Warning != "" {
		printWarning(out, result.Warning)
		return nil
	}

	if scanJSONPath != "" {
		if err := writeItemsJSON(scanJSONPath, result.Items); err != nil {
			return err
		}
		fmt.Fprintf(out, "💾 已写入扫描条目: %s\n", scanJSONPath)
	}

	renderItems(out, result.Items)

	var generated, reused int
	for _, item := range result.Items {
		if item.Existing {
			reused++
		} else {
			generated++
		}
	}
	fmt.Fprintf(out, "共 %d 个元素：新生成 %d 个键，沿用 %d 个键\n", len(result.Items), generated, reused)

	if !scanApply {
		return nil
	}

	applied, err := env.coord.ApplyKeys(ctx, result.Items)
	if err != nil {
		return fmt.Errorf("apply keys failed: %w", err)
	}
	printApplyKeysResult(out, applied.Applied, len(applied.Skipped), applied.Namespaces)
	for _, skip := range applied.Skipped {
		fmt.Fprintf(out, "  ⚠️  %s: %s\n", shortID(skip.ElementID), skip.Reason)
	}
	return nil
}

// renderItems 以表格输出扫描条目
func renderItems(out io.Writer, items []keys.ScanItem) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Element", "Key", "Name", "Text", "Source", "Selected"})
	for _, item := range items {
		source := "new"
		if item.Existing {
			source = "existing"
		}
		selected := "yes"
		if !item.Selected {
			selected = "no"
		}
		tw.AppendRow(table.Row{
			shortID(item.ElementID),
			item.Key,
			truncate(item.CurrentName, 24),
			truncate(item.Text, 32),
			source,
			selected,
		})
	}
	tw.Render()
}

func printWarning(out io.Writer, warning string) {
	color.New(color.FgYellow).Fprintf(out, "⚠️  %s\n", warning)
}

func printApplyKeysResult(out io.Writer, applied, skipped int, namespaces []string) {
	fmt.Fprintf(out, "✅ 已写入 %d 个键", applied)
	if skipped > 0 {
		fmt.Fprintf(out, "，跳过 %d 个", skipped)
	}
	fmt.Fprintln(out)
	if len(namespaces) > 0 {
		fmt.Fprintf(out, "命名空间: %v\n", namespaces)
	}
}

// writeItemsJSON 把条目写到文件，供 apply --items 使用
func writeItemsJSON(path string, items []keys.ScanItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write items file: %w", err)
	}
	return nil
}
