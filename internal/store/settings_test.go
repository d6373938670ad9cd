package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	s := NewSettingsStore(kv, zap.NewNop())

	in := Settings{
		ProjectID:        "proj-42",
		WriteKey:         "wk-secret",
		DefaultNamespace: "common",
		BaseLanguage:     "en-us",
	}
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "proj-42", out.ProjectID)
	assert.Equal(t, "wk-secret", out.WriteKey)
	assert.Equal(t, "common", out.DefaultNamespace)
	// 基础语言规范化为标准 BCP 47 形式
	assert.Equal(t, "en-US", out.BaseLanguage)
	assert.Equal(t, settingsVersion, out.Version)
}

func TestSettingsEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewSettingsStore(NewMemory(), zap.NewNop())

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{}, out)
}

func TestSettingsLegacyMigration(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	// 版本 1 把写入密钥存在 apiKey 下
	require.NoError(t, kv.Set(ctx, legacySettingAPIKey, "legacy-key"))
	require.NoError(t, kv.Set(ctx, settingProjectID, "proj-1"))

	s := NewSettingsStore(kv, zap.NewNop())
	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", out.WriteKey)
	assert.Equal(t, settingsVersion, out.Version)

	// 迁移写回：writeKey 落盘，apiKey 清除
	v, ok, err := kv.Get(ctx, settingWriteKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "legacy-key", v)
	_, ok, err = kv.Get(ctx, legacySettingAPIKey)
	require.NoError(t, err)
	assert.False(t, ok)

	// 再次加载不再迁移
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, out.WriteKey, again.WriteKey)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, Settings{}.Validate())
	assert.NoError(t, Settings{BaseLanguage: "de"}.Validate())
	assert.Error(t, Settings{BaseLanguage: "not a tag!"}.Validate())
}

func TestSettingsSaveInvalidLanguage(t *testing.T) {
	s := NewSettingsStore(NewMemory(), zap.NewNop())
	err := s.Save(context.Background(), Settings{BaseLanguage: "!!"})
	assert.Error(t, err)
}
