package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	nested := map[string]any{
		"common": map[string]any{
			"title": "Welcome",
			"nav": map[string]any{
				"home": "Home",
			},
		},
		"greeting": "Hello",
		"count":    float64(3),
		"enabled":  true,
		"ignored":  []any{"a", "b"},
		"missing":  nil,
	}

	m := Flatten(nested)
	assert.Equal(t, "Welcome", m["common.title"])
	assert.Equal(t, "Home", m["common.nav.home"])
	assert.Equal(t, "Hello", m["greeting"])
	assert.Equal(t, "3", m["count"])
	assert.Equal(t, "true", m["enabled"])
	assert.NotContains(t, m, "ignored")
	assert.NotContains(t, m, "missing")
}

func TestResolve(t *testing.T) {
	t.Run("Full Key First", func(t *testing.T) {
		m := Map{
			"common.greeting": "voll",
			"greeting":        "nackt",
		}
		v, ok := m.Resolve("common.greeting", "common")
		require.True(t, ok)
		// 完整键优先于裸键
		assert.Equal(t, "voll", v)
	})

	t.Run("Bare Key Fallback", func(t *testing.T) {
		m := Map{"greeting": "Hallo"}
		v, ok := m.Resolve("common.greeting", "common")
		require.True(t, ok)
		assert.Equal(t, "Hallo", v)
	})

	t.Run("No Namespace No Strip", func(t *testing.T) {
		m := Map{"greeting": "Hallo"}
		_, ok := m.Resolve("common.greeting", "")
		assert.False(t, ok)
	})

	t.Run("Foreign Prefix Not Stripped", func(t *testing.T) {
		m := Map{"greeting": "Hallo"}
		_, ok := m.Resolve("other.greeting", "common")
		assert.False(t, ok)
	})

	t.Run("Both Miss", func(t *testing.T) {
		m := Map{"unrelated": "x"}
		_, ok := m.Resolve("common.greeting", "common")
		assert.False(t, ok)
	})
}

func TestNest(t *testing.T) {
	m := Map{
		"common.title":    "Welcome",
		"common.nav.home": "Home",
		"greeting":        "Hello",
	}

	nested, conflicts := m.Nest()
	assert.Empty(t, conflicts)
	assert.Equal(t, map[string]any{
		"common": map[string]any{
			"title": "Welcome",
			"nav": map[string]any{
				"home": "Home",
			},
		},
		"greeting": "Hello",
	}, nested)

	// 与 Flatten 互逆
	assert.Equal(t, m, Flatten(nested))
}

func TestNestConflicts(t *testing.T) {
	m := Map{
		"a":   "scalar",
		"a.b": "nested",
	}

	nested, conflicts := m.Nest()
	assert.Equal(t, []string{"a.b"}, conflicts)
	assert.Equal(t, map[string]any{"a": "scalar"}, nested)
}

func TestKeysSorted(t *testing.T) {
	m := Map{"b": "2", "a": "1", "c": "3"}
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
}

func TestMerge(t *testing.T) {
	m := Map{"a": "1", "b": "2"}
	m.Merge(Map{"b": "overridden", "c": "3"})
	assert.Equal(t, Map{"a": "1", "b": "overridden", "c": "3"}, m)
}
