// Package storeclient 访问远端翻译存储服务的 HTTP 客户端。
// 提供命名空间列举、语言拉取与键批量推送。
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-localizer-agent/pkg/translation"
)

// Config 客户端配置
type Config struct {
	// Endpoint 服务基础地址，如 https://store.example.com
	Endpoint string `json:"endpoint"`

	// ProjectID 项目标识
	ProjectID string `json:"project_id"`

	// WriteKey 写入密钥，只有推送需要
	WriteKey string `json:"write_key,omitempty"`

	// 超时和重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	// Headers 附加请求头
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
		Headers:    make(map[string]string),
	}
}

// KeyUpload 推送到存储服务的一个键
type KeyUpload struct {
	Key         string `json:"key"`
	Namespace   string `json:"namespace,omitempty"`
	SourceText  string `json:"sourceText,omitempty"`
	ElementName string `json:"elementName,omitempty"`
}

// PushResult 键推送结果
type PushResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Client 翻译存储服务客户端
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New 创建客户端
func New(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = DefaultConfig().RetryDelay
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// ListNamespaces 列举项目在存储服务侧可见的命名空间
func (c *Client) ListNamespaces(ctx context.Context) ([]string, error) {
	if c.config.ProjectID == "" {
		return nil, ErrMissingProject
	}

	var resp struct {
		Namespaces []string `json:"namespaces"`
	}
	path := fmt.Sprintf("/v1/projects/%s/namespaces", c.config.ProjectID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Namespaces, nil
}

// FetchTranslations 拉取一个语言的翻译映射。
// 服务端返回嵌套 JSON，这里压平成点分隔键。
func (c *Client) FetchTranslations(ctx context.Context, lang string) (translation.Map, error) {
	if c.config.ProjectID == "" {
		return nil, ErrMissingProject
	}
	if lang == "" {
		return nil, fmt.Errorf("language must not be empty")
	}

	var nested map[string]any
	path := fmt.Sprintf("/v1/projects/%s/translations/%s", c.config.ProjectID, lang)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &nested); err != nil {
		return nil, err
	}
	return translation.Flatten(nested), nil
}

// PushKeys 批量推送键。需要写入密钥；空批直接返回零结果，不发请求。
func (c *Client) PushKeys(ctx context.Context, uploads []KeyUpload) (PushResult, error) {
	if c.config.ProjectID == "" {
		return PushResult{}, ErrMissingProject
	}
	if c.config.WriteKey == "" {
		return PushResult{}, ErrMissingWriteKey
	}
	if len(uploads) == 0 {
		return PushResult{}, nil
	}

	body := struct {
		Keys []KeyUpload `json:"keys"`
	}{Keys: uploads}

	var result PushResult
	path := fmt.Sprintf("/v1/projects/%s/keys/import", c.config.ProjectID)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &result); err != nil {
		return PushResult{}, err
	}

	c.logger.Info("keys pushed to store",
		zap.Int("uploaded", len(uploads)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))
	return result, nil
}

// PushTranslations 上传一个语言的翻译映射，服务端按键覆盖旧值。
// 映射转回嵌套形式发送，冲突键丢弃并记录；空映射不发请求。
func (c *Client) PushTranslations(ctx context.Context, lang string, m translation.Map) (int, error) {
	if c.config.ProjectID == "" {
		return 0, ErrMissingProject
	}
	if c.config.WriteKey == "" {
		return 0, ErrMissingWriteKey
	}
	if lang == "" {
		return 0, fmt.Errorf("language must not be empty")
	}
	if len(m) == 0 {
		return 0, nil
	}

	nested, conflicts := m.Nest()
	for _, key := range conflicts {
		c.logger.Warn("conflicting translation key dropped", zap.String("key", key))
	}

	body := struct {
		Translations map[string]any `json:"translations"`
	}{Translations: nested}

	var resp struct {
		Updated int `json:"updated"`
	}
	path := fmt.Sprintf("/v1/projects/%s/translations/%s", c.config.ProjectID, lang)
	if err := c.doJSON(ctx, http.MethodPut, path, body, &resp); err != nil {
		return 0, err
	}

	c.logger.Info("translations pushed to store",
		zap.String("language", lang),
		zap.Int("entries", len(m)),
		zap.Int("updated", resp.Updated))
	return resp.Updated, nil
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/v1/health", nil, nil)
}

// doJSON 执行一次 JSON 请求，带重试。
// 每次尝试都重建请求，POST 的请求体才能在重试时完整重发。
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.config.WriteKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.WriteKey)
		}
		for k, v := range c.config.Headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			lastErr = fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
		case http.StatusNotFound:
			lastErr = fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("too many requests: %s", string(errBody))
		default:
			lastErr = fmt.Errorf("store error: %s: %s", resp.Status, string(errBody))
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			c.logger.Debug("retrying store request",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			continue
		}
		break
	}
	return lastErr
}
