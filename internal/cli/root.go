// Package cli 实现 localizer 命令行工具。
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/internal/config"
	"github.com/nerdneilsfield/go-localizer-agent/internal/coordinator"
	"github.com/nerdneilsfield/go-localizer-agent/internal/logger"
	"github.com/nerdneilsfield/go-localizer-agent/internal/store"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/document"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/storeclient"

	// 注册文档格式
	_ "github.com/nerdneilsfield/go-localizer-agent/pkg/document/htmldoc"
	_ "github.com/nerdneilsfield/go-localizer-agent/pkg/document/jsondoc"
)

var (
	// 全局标志
	cfgFile   string
	debugMode bool
	quietMode bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "localizer",
		Short: "localizer 管理设计文档中文本元素的本地化键与翻译同步",
		Long: `localizer 为设计文档中的文本元素生成稳定的本地化键，
把键写进文档、推送到翻译存储服务，再把翻译拉回文档预览。

支持的文档格式:
  - 场景 JSON (.json)
  - HTML (.html, .htm)`,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认查找 .localizer.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试日志")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "只输出警告和错误")
	// 提前注册默认 help 标志，避免查找子命令时 --help 被当作带值标志吞掉后续参数
	rootCmd.InitDefaultHelpFlag()

	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewApplyCommand())
	rootCmd.AddCommand(NewKeysCommand())
	rootCmd.AddCommand(NewNamespacesCommand())
	rootCmd.AddCommand(NewRestoreCommand())
	rootCmd.AddCommand(NewSelectCommand())
	rootCmd.AddCommand(NewPullCommand())
	rootCmd.AddCommand(NewApplyFileCommand())
	rootCmd.AddCommand(NewPushCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewReportCommand())
	rootCmd.AddCommand(NewAutoTranslateCommand())
	rootCmd.AddCommand(NewProjectCommand())

	return rootCmd
}

// environment 一次命令执行所需的共享对象
type environment struct {
	cfg      *config.Config
	log      *zap.Logger
	provider document.Provider
	kv       store.KV
	coord    *coordinator.Coordinator
}

// newEnvironment 打开文档、本地状态与协调器。
// 配置文件缺失或损坏时退回默认配置。
func newEnvironment(docPath string) (*environment, error) {
	log := logger.New(debugMode, quietMode)

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Warn("加载配置失败，使用默认配置", zap.Error(err))
		cfg = config.NewDefaultConfig()
	}

	provider, err := document.Open(docPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	kv, err := openState(cfg, log)
	if err != nil {
		return nil, err
	}

	coord := coordinator.New(provider, kv, log,
		coordinator.WithPlaceholderPatterns(cfg.PlaceholderPatterns))

	return &environment{
		cfg:      cfg,
		log:      log,
		provider: provider,
		kv:       kv,
		coord:    coord,
	}, nil
}

// newStateEnvironment 组装不依赖文档的命令环境，只有配置和状态后端
func newStateEnvironment() (*environment, error) {
	log := logger.New(debugMode, quietMode)

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Warn("加载配置失败，使用默认配置", zap.Error(err))
		cfg = config.NewDefaultConfig()
	}

	kv, err := openState(cfg, log)
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg: cfg,
		log: log,
		kv:  kv,
	}, nil
}

// Close 释放状态后端并刷新日志
func (e *environment) Close() {
	if e.kv != nil {
		if err := e.kv.Close(); err != nil {
			e.log.Warn("关闭状态后端失败", zap.Error(err))
		}
	}
	_ = e.log.Sync()
}

// openState 按配置打开本地状态后端
func openState(cfg *config.Config, log *zap.Logger) (store.KV, error) {
	switch cfg.StateBackend {
	case "sqlite":
		kv, err := store.OpenSQLite(cfg.StatePath(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite state: %w", err)
		}
		return kv, nil
	default:
		kv, err := store.OpenFile(cfg.StatePath(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to open state file: %w", err)
		}
		return kv, nil
	}
}

// resolveNamespace 确定生效的命名空间：
// 命令行标志优先，其次项目设置里的默认命名空间，最后配置文件。
func (e *environment) resolveNamespace(ctx context.Context, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	settings, err := store.NewSettingsStore(e.kv, e.log).Load(ctx)
	if err == nil && settings.DefaultNamespace != "" {
		return settings.DefaultNamespace
	}
	return e.cfg.Namespace
}

// resolveBaseLanguage 确定源文案语言，项目设置优先于配置文件
func (e *environment) resolveBaseLanguage(ctx context.Context) string {
	settings, err := store.NewSettingsStore(e.kv, e.log).Load(ctx)
	if err == nil && settings.BaseLanguage != "" {
		return settings.BaseLanguage
	}
	return e.cfg.BaseLanguage
}

// storeClient 构建存储服务客户端，项目设置覆盖配置文件里的凭据
func (e *environment) storeClient(ctx context.Context) *storeclient.Client {
	clientConfig := e.cfg.StoreClientConfig()
	settings, err := store.NewSettingsStore(e.kv, e.log).Load(ctx)
	if err == nil {
		if settings.ProjectID != "" {
			clientConfig.ProjectID = settings.ProjectID
		}
		if settings.WriteKey != "" {
			clientConfig.WriteKey = settings.WriteKey
		}
	}
	return storeclient.New(clientConfig, e.log)
}

// printJSON 以缩进 JSON 输出任意结果
func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// truncate 把长文本截到表格可读的宽度
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// shortID 元素标识符在表格里只显示前 8 位
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
