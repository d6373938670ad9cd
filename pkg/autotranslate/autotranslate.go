// Package autotranslate 通过 OpenAI 兼容接口机器预翻译文案。
// 结果只作为人工校对的底稿，不直接发布。
package autotranslate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/translation"
)

// Config 机器翻译配置
type Config struct {
	// BaseURL OpenAI 兼容接口地址，为空时使用官方地址
	BaseURL string `json:"baseUrl"`
	// APIKey 接口密钥
	APIKey string `json:"apiKey"`
	// Model 使用的模型 ID
	Model string `json:"model"`
	// Temperature 采样温度
	Temperature float64 `json:"temperature"`
	// BatchSize 单次请求携带的条目数
	BatchSize int `json:"batchSize"`
	// Timeout 单次请求超时时间
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		BatchSize:   20,
		Timeout:     120 * time.Second,
	}
}

// Translator 批量翻译文案条目
type Translator struct {
	client *openai.Client
	config Config
	logger *zap.Logger
}

// New 创建翻译器，APIKey 不能为空
func New(config Config, logger *zap.Logger) (*Translator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	if config.BaseURL != "" {
		// go-openai 的接口后缀以斜杠开头，去掉尾部斜杠避免双斜杠
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}

	return &Translator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// Translate 把映射中的文案从 sourceLang 翻译到 targetLang。
// 按 BatchSize 分批请求，失败的批次跳过并继续，
// 返回成功批次的结果；有失败时 error 非空。
func (t *Translator) Translate(ctx context.Context, m translation.Map, sourceLang, targetLang string) (translation.Map, error) {
	out := translation.Map{}
	if len(m) == 0 {
		return out, nil
	}

	batches := splitBatches(m.Keys(), t.config.BatchSize)
	t.logger.Debug("开始机器翻译",
		zap.String("模型", t.config.Model),
		zap.String("源语言", sourceLang),
		zap.String("目标语言", targetLang),
		zap.Int("条目数", len(m)),
		zap.Int("批次数", len(batches)),
		zap.String("密钥", maskAuthToken(t.config.APIKey)),
	)

	var failed int
	var firstErr error
	for i, batch := range batches {
		translated, err := t.translateBatch(ctx, m, batch, sourceLang, targetLang)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			t.logger.Warn("批次翻译失败",
				zap.Int("批次", i+1),
				zap.Int("条目数", len(batch)),
				zap.Error(err),
			)
			continue
		}
		out.Merge(translated)
	}

	if firstErr != nil {
		return out, fmt.Errorf("%d of %d batches failed: %w", failed, len(batches), firstErr)
	}
	return out, nil
}

func (t *Translator) translateBatch(ctx context.Context, m translation.Map, batch []string, sourceLang, targetLang string) (translation.Map, error) {
	payload := make(map[string]string, len(batch))
	for _, key := range batch {
		payload[key] = m[key]
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model: t.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(sourceLang, targetLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: string(body),
			},
		},
		Temperature: float32(t.config.Temperature),
	}

	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	content := extractJSON(resp.Choices[0].Message.Content)
	var translated map[string]string
	if err := json.Unmarshal([]byte(content), &translated); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	// 只保留请求过的键，模型多返回的内容丢弃
	result := translation.Map{}
	for _, key := range batch {
		if value, ok := translated[key]; ok && value != "" {
			result[key] = value
		}
	}

	t.logger.Debug("批次翻译完成",
		zap.Int("请求条目", len(batch)),
		zap.Int("返回条目", len(result)),
		zap.Int("提示词令牌数", resp.Usage.PromptTokens),
		zap.Int("完成令牌数", resp.Usage.CompletionTokens),
	)
	return result, nil
}

func systemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(
		"You are a professional UI copy translator. Translate the values of the given JSON object from %s to %s. "+
			"Keys are localization identifiers and must be returned unchanged. "+
			"Preserve placeholders such as {name} or {{count}} exactly. "+
			"Respond with a JSON object only, no explanations.",
		sourceLang, targetLang,
	)
}

// splitBatches 把键列表按批次大小切分
func splitBatches(keys []string, size int) [][]string {
	sort.Strings(keys)
	var batches [][]string
	for len(keys) > 0 {
		n := size
		if n > len(keys) {
			n = len(keys)
		}
		batches = append(batches, keys[:n])
		keys = keys[n:]
	}
	return batches
}

// extractJSON 剥掉模型可能附加的 Markdown 代码围栏
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return content
	}
	return content[start : end+1]
}

// maskAuthToken 遮蔽密钥，只显示前后各4位
func maskAuthToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
