package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ChatProvider speaks the OpenAI-compatible chat completions protocol used
// by Groq, OpenRouter and self-hosted gateways.
type ChatProvider struct {
	name       string
	apiKey     string
	model      string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
}

func NewChatProvider(name, baseURL, apiKey, model string) *ChatProvider {
	return &ChatProvider{
		name:    name,
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: map[string]string{},
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func NewGroqProvider(apiKey, model string) *ChatProvider {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return NewChatProvider("groq", "https://api.groq.com/openai/v1", apiKey, model)
}

func NewOpenRouterProvider(apiKey, model string) *ChatProvider {
	if model == "" {
		model = "openai/gpt-5-mini"
	}
	p := NewChatProvider("openrouter", "https://openrouter.ai/api/v1", apiKey, model)
	p.headers["X-Title"] = "PromptIt"
	return p
}

func NewCustomProvider(baseURL, apiKey, model string) *ChatProvider {
	return NewChatProvider("custom", baseURL, apiKey, model)
}

func (c *ChatProvider) Name() string {
	return c.name
}

func (c *ChatProvider) authHeaders() map[string]string {
	h := make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		h[k] = v
	}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

func (c *ChatProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	for k, v := range c.authHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot connect to %s API: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API error: status %d", c.name, resp.StatusCode)
	}

	return nil
}

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         float64         `json:"temperature"`
	TopP                float64         `json:"top_p"`
	FrequencyPenalty    float64         `json:"frequency_penalty"`
	PresencePenalty     float64         `json:"presence_penalty"`
	Stream              bool            `json:"stream"`
}

func (c *ChatProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	apiReq := chatRequest{
		Model:               model,
		Messages:            toOpenAIMessages(req.Messages),
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         req.Temperature,
		TopP:                req.TopP,
		FrequencyPenalty:    req.FrequencyPenalty,
		PresencePenalty:     req.PresencePenalty,
	}

	body, status, err := postJSON(ctx, c.httpClient, c.name, c.baseURL+"/chat/completions", c.authHeaders(), apiReq)
	if err != nil {
		return nil, err
	}

	resp, err := ParseResponse(c.name, status, body)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}
