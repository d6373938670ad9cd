package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-localizer-agent/internal/filter"
)

var (
	// keys 命令的标志
	keysNamespace string
	keysSearch    string
	keysWhere     string
	keysFormat    string

	// namespaces 命令的标志
	namespacesRemote bool
)

// NewKeysCommand 创建 keys 命令
func NewKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "查看和维护已分配的本地化键",
	}

	keysCmd.AddCommand(newKeysListCommand())
	keysCmd.AddCommand(newKeysMigrateCommand())

	return keysCmd
}

func newKeysListCommand() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list <document>",
		Short: "列出已分配键的元素",
		Long: `列出工作集中已分配键的元素。
--where 接受布尔表达式，可引用 key、namespace、localKey、name、
originalName、text、existing、selected；--search 做模糊匹配。

用法示例:
  localizer keys list design.json
  localizer keys list design.json --namespace checkout
  localizer keys list design.json --search hero
  localizer keys list design.json --where 'namespace == "common" && !selected'
  localizer keys list design.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runKeysListCommand,
	}

	listCmd.Flags().StringVarP(&keysNamespace, "namespace", "n", "", "只列出该命名空间下的键")
	listCmd.Flags().StringVar(&keysSearch, "search", "", "按键、名称或文本模糊过滤")
	listCmd.Flags().StringVar(&keysWhere, "where", "", "按布尔表达式过滤")
	listCmd.Flags().StringVar(&keysFormat, "format", "table", "输出格式 (table, json)")

	return listCmd
}

func runKeysListCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	result, err := env.coord.Assigned(ctx, keysNamespace)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	if result.Warning != "" {
		printWarning(out, result.Warning)
		return nil
	}

	items := result.Items
	if keysWhere != "" {
		expr, err := filter.Compile(keysWhere)
		if err != nil {
			return err
		}
		items, err = expr.Apply(items)
		if err != nil {
			return err
		}
	}
	items = filter.Search(items, keysSearch)

	if len(items) == 0 {
		printWarning(out, "no keys match the given filters")
		return nil
	}

	switch keysFormat {
	case "json":
		return printJSON(out, items)
	case "table":
		renderItems(out, items)
		fmt.Fprintf(out, "共 %d 个键\n", len(items))
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q", keysFormat)
	}
}

func newKeysMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate <document>",
		Short: "把裸键一次性改写成命名空间限定形式",
		Long: `早期版本把不带命名空间的裸键存进元素。此命令遍历整个文档，
把所有裸键加上命名空间前缀。已限定的键不动，重复执行无副作用。

用法示例:
  localizer keys migrate design.json --namespace common`,
		Args: cobra.ExactArgs(1),
		RunE: runKeysMigrateCommand,
	}

	migrateCmd.Flags().StringVarP(&keysNamespace, "namespace", "n", "", "目标命名空间 (默认取项目设置)")

	return migrateCmd
}

func runKeysMigrateCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	namespace := env.resolveNamespace(ctx, keysNamespace)
	result, err := env.coord.MigrateKeys(ctx, namespace)
	if err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}

	if result.Migrated == 0 && len(result.Skipped) == 0 {
		fmt.Fprintln(out, "没有需要迁移的裸键")
		return nil
	}
	fmt.Fprintf(out, "✅ 已迁移 %d 个键到命名空间 %q", result.Migrated, namespace)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "，跳过 %d 个", len(result.Skipped))
	}
	fmt.Fprintln(out)
	return nil
}

// NewNamespacesCommand 创建 namespaces 命令
func NewNamespacesCommand() *cobra.Command {
	namespacesCmd := &cobra.Command{
		Use:   "namespaces <document>",
		Short: "列出文档中正在使用的命名空间",
		Long: `从工作集元素的存储键推导命名空间集合。
加 --remote 改为列出存储服务侧的项目命名空间。

用法示例:
  localizer namespaces design.json
  localizer namespaces design.json --remote`,
		Args: cobra.ExactArgs(1),
		RunE: runNamespacesCommand,
	}

	namespacesCmd.Flags().BoolVar(&namespacesRemote, "remote", false, "列出存储服务侧的命名空间")

	return namespacesCmd
}

func runNamespacesCommand(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var namespaces []string
	if namespacesRemote {
		namespaces, err = env.storeClient(ctx).ListNamespaces(ctx)
		if err != nil {
			return fmt.Errorf("failed to list remote namespaces: %w", err)
		}
	} else {
		namespaces, err = env.coord.Namespaces(ctx)
		if err != nil {
			return fmt.Errorf("failed to list namespaces: %w", err)
		}
	}

	if len(namespaces) == 0 {
		fmt.Fprintln(out, "没有命名空间限定的键")
		return nil
	}
	for _, ns := range namespaces {
		fmt.Fprintf(out, "- %s\n", ns)
	}
	return nil
}
