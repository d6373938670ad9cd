package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/keys"
	"github.com/nerdneilsfield/go-localizer-agent/pkg/storeclient"
)

// testScene 三个文本元素：两个待生成键，一个已带键
const testScene = `{
  "name": "Checkout",
  "schemaVersion": 1,
  "pages": [
    {
      "id": "p1",
      "name": "Main",
      "children": [
        {
          "id": "f1",
          "type": "frame",
          "name": "Summary",
          "children": [
            {"id": "t1", "type": "text", "name": "Title", "characters": "Order summary"},
            {"id": "t2", "type": "text", "name": "Text 4", "characters": "Thanks for your purchase"}
          ]
        },
        {
          "id": "t3",
          "type": "text",
          "name": "Pay",
          "characters": "Pay now",
          "pluginData": {"l10n_key": "checkout.pay", "l10n_original_name": "Pay"}
        }
      ]
    }
  ]
}`

type workspace struct {
	dir    string
	scene  string
	config string
}

func newWorkspace(t *testing.T) *workspace {
	return newWorkspaceWithConfig(t, "")
}

// newWorkspaceWithConfig 搭建临时工作区：场景文件加指向临时目录的配置
func newWorkspaceWithConfig(t *testing.T, extra string) *workspace {
	t.Helper()
	dir := t.TempDir()

	scene := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(scene, []byte(testScene), 0o644))

	content := fmt.Sprintf(`base_language: en
state_backend: file
state_dir: %s
translations_dir: %s
languages:
  - de
%s`, filepath.Join(dir, "state"), filepath.Join(dir, "translations"), extra)
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte(content), 0o644))

	return &workspace{dir: dir, scene: scene, config: config}
}

func (w *workspace) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := w.runErr(t, args...)
	require.NoError(t, err, out)
	return out
}

func (w *workspace) runErr(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("0.0.0-test", "none", "unknown")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--config", w.config))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

type testNode struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Characters string            `json:"characters"`
	PluginData map[string]string `json:"pluginData"`
	Children   []*testNode       `json:"children"`
}

// readSceneNodes 重新读回场景文件，按 id 索引所有节点
func readSceneNodes(t *testing.T, path string) map[string]*testNode {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var file struct {
		Pages []*testNode `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(data, &file))

	nodes := make(map[string]*testNode)
	var walk func(n *testNode)
	walk = func(n *testNode) {
		if n.ID != "" {
			nodes[n.ID] = n
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, page := range file.Pages {
		walk(page)
	}
	return nodes
}

func TestRootCommandHelp(t *testing.T) {
	ws := newWorkspace(t)
	out := ws.run(t, "--help")

	assert.Contains(t, out, "localizer")
	assert.Contains(t, out, "scan")
	assert.Contains(t, out, "pull")
	assert.Contains(t, out, "export")
	assert.Contains(t, out, "autotranslate")
}

func TestScanCommand(t *testing.T) {
	ws := newWorkspace(t)
	out := ws.run(t, "scan", ws.scene)

	assert.Contains(t, out, "共 3 个元素：新生成 2 个键，沿用 1 个键")
	// 键来自最近祖先链加显示名称；占位名称退回文本内容
	assert.Contains(t, out, "summary_title")
	assert.Contains(t, out, "summary_thanks_for_your_purchase")
	assert.Contains(t, out, "checkout.pay")
	assert.Contains(t, out, "existing")
}

func TestScanApplyWritesKeys(t *testing.T) {
	ws := newWorkspace(t)
	out := ws.run(t, "scan", ws.scene, "--apply")

	assert.Contains(t, out, "✅ 已写入 3 个键")
	assert.Contains(t, out, "命名空间: [checkout]")

	nodes := readSceneNodes(t, ws.scene)
	// 键写进槽位，显示名称改成键，原始名称只记录一次
	assert.Equal(t, "summary_title", nodes["t1"].PluginData["l10n_key"])
	assert.Equal(t, "summary_title", nodes["t1"].Name)
	assert.Equal(t, "Title", nodes["t1"].PluginData["l10n_original_name"])
	assert.Equal(t, "summary_thanks_for_your_purchase", nodes["t2"].PluginData["l10n_key"])
	assert.Equal(t, "checkout.pay", nodes["t3"].PluginData["l10n_key"])
	assert.Equal(t, "Pay", nodes["t3"].PluginData["l10n_original_name"])
}

func TestScanItemsFileAndApply(t *testing.T) {
	ws := newWorkspace(t)
	itemsPath := filepath.Join(ws.dir, "items.json")

	out := ws.run(t, "scan", ws.scene, "--json", itemsPath)
	assert.Contains(t, out, "💾 已写入扫描条目")

	data, err := os.ReadFile(itemsPath)
	require.NoError(t, err)
	var items []keys.ScanItem
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "t1", items[0].ElementID)
	assert.True(t, items[0].Selected)

	out = ws.run(t, "apply", ws.scene, "--items", itemsPath)
	assert.Contains(t, out, "✅ 已写入 3 个键")

	nodes := readSceneNodes(t, ws.scene)
	assert.Equal(t, "summary_title", nodes["t1"].PluginData["l10n_key"])
}

func TestKeysListFilters(t *testing.T) {
	ws := newWorkspace(t)
	ws.run(t, "scan", ws.scene, "--apply")

	t.Run("JSON Format", func(t *testing.T) {
		out := ws.run(t, "keys", "list", ws.scene, "--format", "json")
		var items []keys.ScanItem
		require.NoError(t, json.Unmarshal([]byte(out), &items))
		require.Len(t, items, 3)
		for _, item := range items {
			assert.True(t, item.Existing)
		}
	})

	t.Run("By Namespace Flag", func(t *testing.T) {
		out := ws.run(t, "keys", "list", ws.scene, "--namespace", "checkout", "--format", "json")
		var items []keys.ScanItem
		require.NoError(t, json.Unmarshal([]byte(out), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "checkout.pay", items[0].Key)
	})

	t.Run("By Where Expression", func(t *testing.T) {
		out := ws.run(t, "keys", "list", ws.scene, "--where", `namespace == "checkout"`, "--format", "json")
		var items []keys.ScanItem
		require.NoError(t, json.Unmarshal([]byte(out), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "t3", items[0].ElementID)
	})

	t.Run("By Search", func(t *testing.T) {
		out := ws.run(t, "keys", "list", ws.scene, "--search", "summary")
		assert.Contains(t, out, "共 2 个键")
	})

	t.Run("No Match", func(t *testing.T) {
		out := ws.run(t, "keys", "list", ws.scene, "--search", "zzzzzz")
		assert.Contains(t, out, "no keys match the given filters")
	})

	t.Run("Invalid Expression", func(t *testing.T) {
		_, err := ws.runErr(t, "keys", "list", ws.scene, "--where", "key &&&")
		assert.Error(t, err)
	})
}

func TestKeysMigrateCommand(t *testing.T) {
	ws := newWorkspace(t)
	ws.run(t, "scan", ws.scene, "--apply")

	out := ws.run(t, "keys", "migrate", ws.scene, "--namespace", "app")
	assert.Contains(t, out, `✅ 已迁移 2 个键到命名空间 "app"`)

	nodes := readSceneNodes(t, ws.scene)
	assert.Equal(t, "app.summary_title", nodes["t1"].PluginData["l10n_key"])
	// 已限定的键不动
	assert.Equal(t, "checkout.pay", nodes["t3"].PluginData["l10n_key"])

	// 重复执行无副作用
	out = ws.run(t, "keys", "migrate", ws.scene, "--namespace", "app")
	assert.Contains(t, out, "没有需要迁移的裸键")
}

func TestNamespacesCommand(t *testing.T) {
	ws := newWorkspace(t)

	out := ws.run(t, "namespaces", ws.scene)
	assert.Contains(t, out, "- checkout")

	ws.run(t, "keys", "migrate", ws.scene, "--namespace", "app")
	out = ws.run(t, "namespaces", ws.scene)
	assert.Contains(t, out, "- app")
	assert.Contains(t, out, "- checkout")
}

func TestApplyFileCommand(t *testing.T) {
	ws := newWorkspace(t)
	ws.run(t, "scan", ws.scene, "--apply")

	dePath := filepath.Join(ws.dir, "de.json")
	deContent := `{"summary_title": "Bestellübersicht", "checkout": {"pay": "Jetzt zahlen"}}`
	require.NoError(t, os.WriteFile(dePath, []byte(deContent), 0o644))

	out := ws.run(t, "apply-file", ws.scene, "--file", dePath)
	assert.Contains(t, out, "✅ 已应用 2 / 3 条翻译，未命中 1 条")

	nodes := readSceneNodes(t, ws.scene)
	assert.Equal(t, "Bestellübersicht", nodes["t1"].Characters)
	assert.Equal(t, "Jetzt zahlen", nodes["t3"].Characters)
	// 未命中的元素保持原文
	assert.Equal(t, "Thanks for your purchase", nodes["t2"].Characters)
}

func TestRestoreCommand(t *testing.T) {
	ws := newWorkspace(t)
	ws.run(t, "scan", ws.scene, "--apply")

	out := ws.run(t, "restore", ws.scene, "t1")
	assert.Contains(t, out, "✅ 已恢复 1 个名称")

	nodes := readSceneNodes(t, ws.scene)
	assert.Equal(t, "Title", nodes["t1"].Name)
	// 键槽位不受恢复影响
	assert.Equal(t, "summary_title", nodes["t1"].PluginData["l10n_key"])

	t.Run("Requires Ids Or All", func(t *testing.T) {
		_, err := ws.runErr(t, "restore", ws.scene)
		assert.Error(t, err)
	})

	t.Run("Restore All", func(t *testing.T) {
		out := ws.run(t, "restore", ws.scene, "--all")
		assert.Contains(t, out, "✅ 已恢复")
		nodes := readSceneNodes(t, ws.scene)
		assert.Equal(t, "Pay", nodes["t3"].Name)
	})
}

func TestSelectCommands(t *testing.T) {
	ws := newWorkspace(t)
	ws.run(t, "scan", ws.scene, "--apply")

	out := ws.run(t, "select", "show", ws.scene)
	assert.Contains(t, out, "没有排除的元素，全部参与推送")

	out = ws.run(t, "select", "exclude", ws.scene, "t2")
	assert.Contains(t, out, "✅ 已更新 1 个元素的选中状态")

	out = ws.run(t, "select", "show", ws.scene)
	assert.Contains(t, out, "排除的元素 (1):")
	assert.Contains(t, out, "- t2")

	// 排除状态反映在扫描条目上
	out = ws.run(t, "keys", "list", ws.scene, "--where", "!selected", "--format", "json")
	var items []keys.ScanItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "t2", items[0].ElementID)

	out = ws.run(t, "select", "reset", ws.scene)
	assert.Contains(t, out, "✅ 已清空 1 个例外")

	out = ws.run(t, "select", "show", ws.scene)
	assert.Contains(t, out, "没有排除的元素，全部参与推送")
}

func TestPushCommand(t *testing.T) {
	var calls atomic.Int32
	var received struct {
		Keys []storeclient.KeyUpload `json:"keys"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/projects/web-app/keys/import", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"created": %d, "updated": 0, "skipped": 0}`, len(received.Keys))
	}))
	defer srv.Close()

	extra := fmt.Sprintf("store:\n  endpoint: %s\n  project_id: web-app\n  write_key: wk-secret\n", srv.URL)
	ws := newWorkspaceWithConfig(t, extra)
	ws.run(t, "scan", ws.scene, "--apply")
	ws.run(t, "select", "exclude", ws.scene, "t2")

	out := ws.run(t, "push", ws.scene, "-q")
	assert.Contains(t, out, "✅ 新建 2 个，更新 0 个，服务端跳过 0 个")

	assert.Equal(t, int32(1), calls.Load())
	// 被排除的元素不上传
	require.Len(t, received.Keys, 2)
	assert.Equal(t, "summary_title", received.Keys[0].Key)
	assert.Equal(t, "Order summary", received.Keys[0].SourceText)
	assert.Equal(t, "Title", received.Keys[0].ElementName)
	assert.Equal(t, "checkout.pay", received.Keys[1].Key)
	assert.Equal(t, "checkout", received.Keys[1].Namespace)
}

func TestPullCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/web-app/translations/de", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"summary_title": "Bestellübersicht", "checkout": {"pay": "Jetzt zahlen"}}`)
	}))
	defer srv.Close()

	extra := fmt.Sprintf("store:\n  endpoint: %s\n  project_id: web-app\n", srv.URL)
	ws := newWorkspaceWithConfig(t, extra)
	ws.run(t, "scan", ws.scene, "--apply")

	t.Run("Dry Run", func(t *testing.T) {
		out := ws.run(t, "pull", ws.scene, "--language", "de", "--dry-run", "-q")
		assert.Contains(t, out, "预演：2 / 3 个元素会得到译文，1 个未命中")

		// 预演不修改文档
		nodes := readSceneNodes(t, ws.scene)
		assert.Equal(t, "Order summary", nodes["t1"].Characters)
	})

	t.Run("Apply", func(t *testing.T) {
		out := ws.run(t, "pull", ws.scene, "--language", "de", "-q")
		assert.Contains(t, out, "✅ 已应用 2 / 3 条翻译，未命中 1 条")

		nodes := readSceneNodes(t, ws.scene)
		assert.Equal(t, "Bestellübersicht", nodes["t1"].Characters)
	})
}

func TestExportCommand(t *testing.T) {
	ws := newWorkspace(t)
	ws.run(t, "scan", ws.scene, "--apply")

	t.Run("Default JSON", func(t *testing.T) {
		out := ws.run(t, "export", ws.scene)
		assert.Contains(t, out, "💾 已写入")
		assert.Contains(t, out, "(3 条)")

		data, err := os.ReadFile(filepath.Join(ws.dir, "translations", "en.json"))
		require.NoError(t, err)
		var nested map[string]any
		require.NoError(t, json.Unmarshal(data, &nested))
		assert.Equal(t, "Order summary", nested["summary_title"])
		checkout, ok := nested["checkout"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Pay now", checkout["pay"])
	})

	t.Run("YAML With Language", func(t *testing.T) {
		ws.run(t, "export", ws.scene, "--format", "yaml", "--language", "de")
		data, err := os.ReadFile(filepath.Join(ws.dir, "translations", "de.yaml"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "summary_title: Order summary")
	})

	t.Run("Namespace Filter", func(t *testing.T) {
		outDir := filepath.Join(ws.dir, "only-checkout")
		out := ws.run(t, "export", ws.scene, "--namespace", "checkout", "--out", outDir)
		assert.Contains(t, out, "(1 条)")
	})

	t.Run("Unknown Format", func(t *testing.T) {
		_, err := ws.runErr(t, "export", ws.scene, "--format", "csv")
		assert.Error(t, err)
	})
}

func TestReportCommand(t *testing.T) {
	ws := newWorkspace(t)
	ws.run(t, "scan", ws.scene, "--apply")

	translationsDir := filepath.Join(ws.dir, "translations")
	require.NoError(t, os.MkdirAll(translationsDir, 0o755))
	deContent := `{"summary_title": "Bestellübersicht", "checkout": {"pay": "Jetzt zahlen"}}`
	require.NoError(t, os.WriteFile(filepath.Join(translationsDir, "de.json"), []byte(deContent), 0o644))

	t.Run("Markdown To Stdout", func(t *testing.T) {
		out := ws.run(t, "report", ws.scene)
		assert.Contains(t, out, "# Localization Report: Checkout")
		assert.Contains(t, out, "summary_title")
		// de 覆盖 3 个键中的 2 个
		assert.Contains(t, out, "67%")
		assert.Contains(t, out, "Missing in de")
		assert.Contains(t, out, "summary_thanks_for_your_purchase")
	})

	t.Run("HTML To File", func(t *testing.T) {
		htmlPath := filepath.Join(ws.dir, "report.html")
		out := ws.run(t, "report", ws.scene, "--html", "--out", htmlPath, "-q")
		assert.Contains(t, out, "💾 已写入")

		data, err := os.ReadFile(htmlPath)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
		assert.Contains(t, string(data), "<table>")
	})
}

func TestAutoTranslateCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		// 把请求里的条目原样翻译成带前缀的值
		payload := req.Messages[len(req.Messages)-1].Content
		start := strings.Index(payload, "{")
		end := strings.LastIndex(payload, "}")
		require.GreaterOrEqual(t, end, start)
		var entries map[string]string
		require.NoError(t, json.Unmarshal([]byte(payload[start:end+1]), &entries))
		for key, value := range entries {
			entries[key] = "DE: " + value
		}
		content, err := json.Marshal(entries)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": string(content)}},
			},
		}))
	}))
	defer srv.Close()

	extra := fmt.Sprintf("auto_translate:\n  base_url: %s/v1\n  api_key: sk-test\n  batch_size: 10\n", srv.URL)
	ws := newWorkspaceWithConfig(t, extra)
	ws.run(t, "scan", ws.scene, "--apply")

	out := ws.run(t, "autotranslate", ws.scene, "--language", "de", "-q")
	assert.Contains(t, out, "💾 已写入")
	assert.Contains(t, out, "(3 条)")

	data, err := os.ReadFile(filepath.Join(ws.dir, "translations", "de.json"))
	require.NoError(t, err)
	var nested map[string]any
	require.NoError(t, json.Unmarshal(data, &nested))
	assert.Equal(t, "DE: Order summary", nested["summary_title"])

	t.Run("Missing API Key", func(t *testing.T) {
		plain := newWorkspace(t)
		plain.run(t, "scan", plain.scene, "--apply")
		_, err := plain.runErr(t, "autotranslate", plain.scene, "--language", "de", "-q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "autotranslate not configured")
	})
}

func TestProjectCommands(t *testing.T) {
	ws := newWorkspace(t)

	out := ws.run(t, "project", "set", "--project-id", "web-app", "--write-key", "wk-1234567890")
	assert.Contains(t, out, "✅ 项目设置已保存")

	out = ws.run(t, "project", "show")
	assert.Contains(t, out, "web-app")
	// 密钥只显示前后各4位
	assert.Contains(t, out, "wk-1...7890")
	assert.NotContains(t, out, "wk-1234567890")

	t.Run("Partial Update", func(t *testing.T) {
		ws.run(t, "project", "set", "--namespace", "common")
		out := ws.run(t, "project", "show")
		assert.Contains(t, out, "common")
		assert.Contains(t, out, "web-app")
	})

	t.Run("Invalid Base Language", func(t *testing.T) {
		_, err := ws.runErr(t, "project", "set", "--base-language", "!!!")
		assert.Error(t, err)
	})

	t.Run("Default Namespace Applied To Scan", func(t *testing.T) {
		// 设置里的默认命名空间在扫描时生效
		out := ws.run(t, "scan", ws.scene)
		assert.Contains(t, out, "common.summary_title")
	})
}

func TestScanWithSQLiteState(t *testing.T) {
	ws := newWorkspace(t)
	content := fmt.Sprintf(`base_language: en
state_backend: sqlite
state_dir: %s
translations_dir: %s
`, filepath.Join(ws.dir, "sqlite-state"), filepath.Join(ws.dir, "translations"))
	require.NoError(t, os.WriteFile(ws.config, []byte(content), 0o644))

	ws.run(t, "scan", ws.scene, "--apply")
	ws.run(t, "select", "exclude", ws.scene, "t2")

	// 排除状态在 sqlite 后端里跨调用保持
	out := ws.run(t, "select", "show", ws.scene)
	assert.Contains(t, out, "- t2")
}
