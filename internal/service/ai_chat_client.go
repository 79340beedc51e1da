package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// AIProviderOpenAI 表示使用 OpenAI 能力。
	AIProviderOpenAI = "openai"
	// AIProviderDeepSeek 表示使用 DeepSeek 能力。
	AIProviderDeepSeek = "deepseek"
	// AIProviderGemini 使用 Gemini 的 OpenAI 兼容接口。
	AIProviderGemini = "gemini"
)

// ErrAIAPIKeyMissing 表示未提供必需的 AI 平台 API Key。
var ErrAIAPIKeyMissing = errors.New("api key is required")

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type aiProviderDefaults struct {
	label   string
	baseURL string
	model   string
}

var aiProviders = map[string]aiProviderDefaults{
	AIProviderOpenAI:   {label: "OpenAI", baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	AIProviderDeepSeek: {label: "DeepSeek", baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	AIProviderGemini:   {label: "Gemini", baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", model: "gemini-2.0-flash"},
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type aiChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

type aiChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// aiChatClient 调用 OpenAI 兼容的 chat/completions 接口。
type aiChatClient struct {
	http    httpDoer
	label   string
	apiKey  string
	baseURL string
	model   string
}

func newAIChatClient(provider, apiKey, baseURL, model string, timeout time.Duration) (*aiChatClient, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = AIProviderGemini
	}
	defaults, ok := aiProviders[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported AI provider %q", provider)
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	c := &aiChatClient{
		http:    &http.Client{Timeout: timeout},
		label:   defaults.label,
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaults.baseURL,
		model:   defaults.model,
	}
	c.SetBaseURL(baseURL)
	c.SetModel(model)
	return c, nil
}

func (c *aiChatClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 180 * time.Second}
		return
	}
	c.http = client
}

func (c *aiChatClient) SetBaseURL(base string) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return
	}
	c.baseURL = base
}

func (c *aiChatClient) SetModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	c.model = model
}

func (c *aiChatClient) call(ctx context.Context, req aiChatRequest) (aiChatResponse, error) {
	if c.apiKey == "" {
		return aiChatResponse{}, ErrAIAPIKeyMissing
	}

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}

	maxTokens := req.MaxTokens
	if maxTokens < 0 {
		maxTokens = 0
	}

	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	payload := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("构造请求失败: %w", err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("创建 %s 请求失败: %w", c.label, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "quickblog-ai/1.0")

	resp, err := client.Do(httpReq)
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("请求 %s 接口失败: %w", c.label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("读取 %s 响应失败: %w", c.label, err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return aiChatResponse{}, fmt.Errorf("解析 %s 响应失败: %w", c.label, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errMsg := strings.TrimSpace(completion.Error.Message)
		if errMsg == "" {
			errMsg = strings.TrimSpace(string(respBody))
		}
		if errMsg == "" {
			errMsg = resp.Status
		}
		return aiChatResponse{}, fmt.Errorf("%s 接口返回错误：%s", c.label, errMsg)
	}

	if len(completion.Choices) == 0 {
		return aiChatResponse{}, fmt.Errorf("%s 接口未返回结果", c.label)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	return aiChatResponse{
		Content:          content,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}, nil
}
