package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ContentGenerator 定义正文生成能力，便于在处理器中注入不同实现。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, topic string) (string, error)
}

const (
	defaultContentMaxTokens   = 2048
	defaultContentTemperature = 0.7
	contentPromptSuffix       = "Write a detailed blog post about this topic in HTML format with <h2>, <p>, <ul>, <li>, and <strong>."
)

// AIContentConfig configures AIContentService.
type AIContentConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Logger   *zap.Logger
	Recorder ExternalCallRecorder
}

// AIContentService 基于大模型接口生成博客正文草稿，结果不落库。
type AIContentService struct {
	client   *aiChatClient
	logger   *zap.Logger
	recorder ExternalCallRecorder
}

// NewAIContentService constructs an AIContentService for the configured provider.
func NewAIContentService(cfg AIContentConfig) (*AIContentService, error) {
	client, err := newAIChatClient(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &AIContentService{
		client:   client,
		logger:   loggerOrNop(cfg.Logger),
		recorder: recorderOrNoop(cfg.Recorder),
	}, nil
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AIContentService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// GenerateContent asks the model for an HTML article about topic and returns the cleaned fragment.
func (s *AIContentService) GenerateContent(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", invalid("prompt", "Prompt is required")
	}

	userPrompt := buildContentPrompt(topic)
	logAIExchange(s.logger, "CONTENT", "prompt", userPrompt)

	start := time.Now()
	result, err := s.client.call(ctx, aiChatRequest{
		UserPrompt:  userPrompt,
		MaxTokens:   defaultContentMaxTokens,
		Temperature: defaultContentTemperature,
	})
	s.recorder.RecordExternalCall("text_generation", "generate", time.Since(start), err)
	if err != nil {
		return "", upstreamError("text generation", err)
	}
	logAIExchange(s.logger, "CONTENT", "response", result.Content)

	cleaned := CleanGeneratedHTML(result.Content)
	if cleaned == "" {
		return "", upstreamError("text generation", errors.New("model returned no usable content"))
	}
	return cleaned, nil
}

func buildContentPrompt(topic string) string {
	return fmt.Sprintf("%s. %s", strings.TrimRight(topic, ". "), contentPromptSuffix)
}
