// Package config 加载与保存命令行工具的配置。
// 配置来源按优先级：显式指定的文件、当前目录与家目录下的 .localizer.yaml、
// LOCALIZER_ 前缀的环境变量、内置默认值。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/storeclient"
)

// StoreConfig 远端翻译存储服务配置
type StoreConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	ProjectID  string `mapstructure:"project_id"`
	WriteKey   string `mapstructure:"write_key"`
	Timeout    int    `mapstructure:"timeout"` // 秒
	MaxRetries int    `mapstructure:"max_retries"`
}

// AutoTranslateConfig 机器预翻译配置，走 OpenAI 兼容接口
type AutoTranslateConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	BatchSize   int     `mapstructure:"batch_size"`
}

// Config 工具配置
type Config struct {
	// Namespace 默认命名空间，空表示生成裸键
	Namespace string `mapstructure:"namespace"`

	// BaseLanguage 源文案语言
	BaseLanguage string `mapstructure:"base_language"`

	// Languages 项目维护的目标语言
	Languages []string `mapstructure:"languages"`

	// StateBackend 本地状态后端：file 或 sqlite
	StateBackend string `mapstructure:"state_backend"`

	// StateDir 本地状态目录
	StateDir string `mapstructure:"state_dir"`

	// TranslationsDir 本地翻译文件目录
	TranslationsDir string `mapstructure:"translations_dir"`

	// PlaceholderPatterns 占位名称识别模式
	PlaceholderPatterns []string `mapstructure:"placeholder_patterns"`

	Debug bool `mapstructure:"debug"`

	Store         StoreConfig         `mapstructure:"store"`
	AutoTranslate AutoTranslateConfig `mapstructure:"auto_translate"`
}

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.SetConfigName(".localizer")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("LOCALIZER")

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig 将配置保存到文件
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, ".localizer.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return v.WriteConfig()
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		BaseLanguage:        "en",
		StateBackend:        "file",
		StateDir:            ".localizer",
		TranslationsDir:     "translations",
		PlaceholderPatterns: []string{`^text\b`},
		Store: StoreConfig{
			Timeout:    30,
			MaxRetries: 3,
		},
		AutoTranslate: AutoTranslateConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			BatchSize:   20,
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.StateBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid state_backend %q: must be file or sqlite", c.StateBackend)
	}
	return nil
}

// StatePath 返回本地状态文件路径
func (c *Config) StatePath() string {
	name := "state.json"
	if c.StateBackend == "sqlite" {
		name = "state.db"
	}
	return filepath.Join(c.StateDir, name)
}

// StoreClientConfig 转换成存储服务客户端配置
func (c *Config) StoreClientConfig() storeclient.Config {
	clientConfig := storeclient.DefaultConfig()
	clientConfig.Endpoint = c.Store.Endpoint
	clientConfig.ProjectID = c.Store.ProjectID
	clientConfig.WriteKey = c.Store.WriteKey
	if c.Store.Timeout > 0 {
		clientConfig.Timeout = time.Duration(c.Store.Timeout) * time.Second
	}
	if c.Store.MaxRetries > 0 {
		clientConfig.MaxRetries = c.Store.MaxRetries
	}
	return clientConfig
}

// TranslationFile 返回一个语言的本地翻译文件路径
func (c *Config) TranslationFile(lang, format string) string {
	return filepath.Join(c.TranslationsDir, lang+"."+format)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("namespace", "")
	v.SetDefault("base_language", "en")
	v.SetDefault("state_backend", "file")
	v.SetDefault("state_dir", ".localizer")
	v.SetDefault("translations_dir", "translations")
	v.SetDefault("placeholder_patterns", []string{`^text\b`})
	v.SetDefault("debug", false)

	v.SetDefault("store.timeout", 30)
	v.SetDefault("store.max_retries", 3)

	v.SetDefault("auto_translate.model", "gpt-4o-mini")
	v.SetDefault("auto_translate.temperature", 0.3)
	v.SetDefault("auto_translate.batch_size", 20)
}

// structToMap 将结构体转换为 map
func structToMap(config *Config) map[string]interface{} {
	return map[string]interface{}{
		"namespace":            config.Namespace,
		"base_language":        config.BaseLanguage,
		"languages":            config.Languages,
		"state_backend":        config.StateBackend,
		"state_dir":            config.StateDir,
		"translations_dir":     config.TranslationsDir,
		"placeholder_patterns": config.PlaceholderPatterns,
		"debug":                config.Debug,
		"store": map[string]interface{}{
			"endpoint":    config.Store.Endpoint,
			"project_id":  config.Store.ProjectID,
			"write_key":   config.Store.WriteKey,
			"timeout":     config.Store.Timeout,
			"max_retries": config.Store.MaxRetries,
		},
		"auto_translate": map[string]interface{}{
			"base_url":    config.AutoTranslate.BaseURL,
			"api_key":     config.AutoTranslate.APIKey,
			"model":       config.AutoTranslate.Model,
			"temperature": config.AutoTranslate.Temperature,
			"batch_size":  config.AutoTranslate.BatchSize,
		},
	}
}
