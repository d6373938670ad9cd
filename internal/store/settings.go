package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// 设置项的存储键
const (
	settingProjectID        = "projectId"
	settingWriteKey         = "writeKey"
	settingVersion          = "version"
	settingDefaultNamespace = "defaultNamespace"
	settingBaseLanguage     = "baseLanguage"

	// legacySettingAPIKey 版本 1 存储写入密钥用的键
	legacySettingAPIKey = "apiKey"

	// settingsVersion 当前设置格式版本
	settingsVersion = "2"
)

// Settings 项目设置
type Settings struct {
	ProjectID        string `json:"projectId"`
	WriteKey         string `json:"writeKey"`
	Version          string `json:"version"`
	DefaultNamespace string `json:"defaultNamespace"`
	BaseLanguage     string `json:"baseLanguage"`
}

// Validate 校验设置值。基础语言为空表示未设置，非空必须是合法的 BCP 47 标签。
func (s Settings) Validate() error {
	if s.BaseLanguage != "" {
		if _, err := language.Parse(s.BaseLanguage); err != nil {
			return fmt.Errorf("invalid base language %q: %w", s.BaseLanguage, err)
		}
	}
	return nil
}

// SettingsStore 设置存储
type SettingsStore struct {
	kv     KV
	logger *zap.Logger
}

// NewSettingsStore 创建设置存储
func NewSettingsStore(kv KV, logger *zap.Logger) *SettingsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsStore{kv: kv, logger: logger}
}

// Load 加载设置。发现版本 1 的 apiKey 条目时迁移成 writeKey 并写回，
// 迁移只发生一次。
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	settings := Settings{}

	read := func(key string) (string, error) {
		v, _, err := s.kv.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to load setting %q: %w", key, err)
		}
		return v, nil
	}

	var err error
	if settings.ProjectID, err = read(settingProjectID); err != nil {
		return Settings{}, err
	}
	if settings.WriteKey, err = read(settingWriteKey); err != nil {
		return Settings{}, err
	}
	if settings.Version, err = read(settingVersion); err != nil {
		return Settings{}, err
	}
	if settings.DefaultNamespace, err = read(settingDefaultNamespace); err != nil {
		return Settings{}, err
	}
	if settings.BaseLanguage, err = read(settingBaseLanguage); err != nil {
		return Settings{}, err
	}

	if settings.WriteKey == "" {
		legacy, err := read(legacySettingAPIKey)
		if err != nil {
			return Settings{}, err
		}
		if legacy != "" {
			s.logger.Info("migrating legacy apiKey setting to writeKey")
			settings.WriteKey = legacy
			settings.Version = settingsVersion
			if err := s.kv.SetMulti(ctx, map[string]string{
				settingWriteKey: legacy,
				settingVersion:  settingsVersion,
			}); err != nil {
				return Settings{}, fmt.Errorf("failed to migrate settings: %w", err)
			}
			if err := s.kv.Delete(ctx, legacySettingAPIKey); err != nil {
				return Settings{}, fmt.Errorf("failed to drop legacy apiKey: %w", err)
			}
		}
	}

	return settings, nil
}

// Save 持久化设置，基础语言先规范化成标准 BCP 47 形式
func (s *SettingsStore) Save(ctx context.Context, settings Settings) error {
	if settings.BaseLanguage != "" {
		tag, err := language.Parse(settings.BaseLanguage)
		if err != nil {
			return fmt.Errorf("invalid base language %q: %w", settings.BaseLanguage, err)
		}
		settings.BaseLanguage = tag.String()
	}

	return s.kv.SetMulti(ctx, map[string]string{
		settingProjectID:        settings.ProjectID,
		settingWriteKey:         settings.WriteKey,
		settingVersion:          settingsVersion,
		settingDefaultNamespace: settings.DefaultNamespace,
		settingBaseLanguage:     settings.BaseLanguage,
	})
}
