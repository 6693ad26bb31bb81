package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider talks to the OpenAI responses API.
type OpenAIProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if model == "" {
		model = "gpt-5-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

func (o *OpenAIProvider) client() openai.Client {
	return openai.NewClient(
		option.WithAPIKey(o.apiKey),
		option.WithBaseURL(o.baseURL+"/"),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	)
}

func (o *OpenAIProvider) Ping(ctx context.Context) error {
	client := o.client()
	_, err := client.Models.List(ctx)
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("invalid API key")
		}
		return fmt.Errorf("OpenAI API error: status %d", apiErr.StatusCode)
	}
	return fmt.Errorf("cannot connect to OpenAI API: %w", err)
}

// Models lists the model ids available to the credential.
func (o *OpenAIProvider) Models(ctx context.Context) ([]string, error) {
	client := o.client()
	iter := client.Models.ListAutoPaging(ctx)
	var ids []string
	for iter.Next() {
		ids = append(ids, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return ids, nil
}

func (o *OpenAIProvider) chat() *ChatProvider {
	c := NewChatProvider(o.Name(), o.baseURL, o.apiKey, o.model)
	c.httpClient = o.httpClient
	return c
}

type responsesRequest struct {
	Model           string          `json:"model"`
	Instructions    string          `json:"instructions,omitempty"`
	Input           []openAIMessage `json:"input"`
	Temperature     float64         `json:"temperature"`
	TopP            float64         `json:"top_p"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty"`
	Store           bool            `json:"store"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toOpenAIMessages(messages []Message) []openAIMessage {
	out := make([]openAIMessage, len(messages))
	for i, m := range messages {
		out[i] = openAIMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// Complete uses the responses API. Requests with a frequency or presence
// penalty go to chat completions instead; the responses API has no such
// parameters.
func (o *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req.FrequencyPenalty != 0 || req.PresencePenalty != 0 {
		return o.chat().Complete(ctx, req)
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	system, rest := split(req.Messages)
	apiReq := responsesRequest{
		Model:           model,
		Instructions:    system,
		Input:           toOpenAIMessages(rest),
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
	}

	body, status, err := postJSON(ctx, o.httpClient, o.Name(), o.baseURL+"/responses",
		map[string]string{"Authorization": "Bearer " + o.apiKey}, apiReq)
	if err != nil {
		return nil, err
	}

	resp, err := ParseResponse(o.Name(), status, body)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}
