package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAIChatClientProviderDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider    string
		wantBaseURL string
		wantModel   string
	}{
		{"", "https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.0-flash"},
		{"OpenAI", "https://api.openai.com/v1", "gpt-4o-mini"},
		{"deepseek", "https://api.deepseek.com/v1", "deepseek-chat"},
	}

	for _, tt := range tests {
		client, err := newAIChatClient(tt.provider, "key", "", "", 0)
		if err != nil {
			t.Fatalf("provider %q: unexpected error: %v", tt.provider, err)
		}
		if client.baseURL != tt.wantBaseURL || client.model != tt.wantModel {
			t.Fatalf("provider %q: got %s/%s", tt.provider, client.baseURL, client.model)
		}
	}

	client, err := newAIChatClient("openai", "key", "https://proxy.local/v1/", "gpt-4o", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.baseURL != "https://proxy.local/v1" || client.model != "gpt-4o" {
		t.Fatalf("overrides not applied: %s/%s", client.baseURL, client.model)
	}

	if _, err := newAIChatClient("claude-ish", "key", "", "", 0); err == nil {
		t.Fatalf("expected unknown provider to be rejected")
	}
}

func TestAIChatClientUsesConfiguredTimeout(t *testing.T) {
	t.Parallel()

	client, err := newAIChatClient("openai", "key", "", "", 45*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	httpClient, ok := client.http.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client, got %T", client.http)
	}
	if httpClient.Timeout != 45*time.Second {
		t.Fatalf("expected configured timeout, got %v", httpClient.Timeout)
	}

	client.SetHTTPClient(nil)
	httpClient, ok = client.http.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client after reset, got %T", client.http)
	}
	if httpClient.Timeout <= 0 {
		t.Fatalf("reset client should keep a timeout, got %v", httpClient.Timeout)
	}
}

func TestAIChatClientCall(t *testing.T) {
	t.Parallel()

	client, err := newAIChatClient("deepseek", "sk-test", "https://ai.test/v1", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var captured chatCompletionRequest
	client.SetHTTPClient(fakeHTTPClient{handler: func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "https://ai.test/v1/chat/completions" {
			t.Errorf("unexpected endpoint %s", req.URL)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  hi  "}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`), nil
	}})

	resp, err := client.call(context.Background(), aiChatRequest{SystemPrompt: "be brief", UserPrompt: "hello", MaxTokens: 16})
	if err != nil {
		t.Fatalf("call returned error: %v", err)
	}
	if resp.Content != "hi" || resp.PromptTokens != 3 || resp.CompletionTokens != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if captured.Model != "deepseek-chat" || len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected request payload %+v", captured)
	}
}

func TestAIChatClientCallErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		apiKey  string
		handler func(*http.Request) (*http.Response, error)
		want    string
	}{
		{
			name:   "missing key",
			apiKey: "",
			want:   ErrAIAPIKeyMissing.Error(),
		},
		{
			name:   "provider error message",
			apiKey: "k",
			handler: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"quota exceeded"}}`), nil
			},
			want: "quota exceeded",
		},
		{
			name:   "no choices",
			apiKey: "k",
			handler: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"choices":[]}`), nil
			},
			want: "未返回结果",
		},
		{
			name:   "transport failure",
			apiKey: "k",
			handler: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			want: "connection refused",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := newAIChatClient("openai", tt.apiKey, "", "", 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			client.SetHTTPClient(fakeHTTPClient{handler: tt.handler})

			_, err = client.call(context.Background(), aiChatRequest{UserPrompt: "x"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
