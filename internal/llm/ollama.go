package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OllamaProvider struct {
	host       string
	model      string
	httpClient *http.Client
}

func NewOllamaProvider(host, model string) *OllamaProvider {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaProvider{
		host:  strings.TrimRight(host, "/"),
		model: model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (o *OllamaProvider) Name() string {
	return "ollama"
}

func (o *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", o.host+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot connect to Ollama at %s: %w", o.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p,omitempty"`
	NumPredict       int     `json:"num_predict,omitempty"`
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64 `json:"presence_penalty,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         openAIMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	PromptEvalCount *int          `json:"prompt_eval_count"`
	EvalCount       *int          `json:"eval_count"`
}

func (o *OllamaProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	ollamaReq := ollamaChatRequest{
		Model:    model,
		Messages: toOpenAIMessages(req.Messages),
		Stream:   false,
		Options: &ollamaOptions{
			Temperature:      req.Temperature,
			TopP:             req.TopP,
			NumPredict:       req.MaxTokens,
			FrequencyPenalty: req.FrequencyPenalty,
			PresencePenalty:  req.PresencePenalty,
		},
	}

	body, status, err := postJSON(ctx, o.httpClient, o.Name(), o.host+"/api/chat", nil, ollamaReq)
	if err != nil {
		return nil, err
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, &APIError{Provider: o.Name(), StatusCode: status, Message: "invalid response: " + err.Error()}
	}

	text := strings.TrimSpace(ollamaResp.Message.Content)
	if text == "" {
		return nil, &APIError{Provider: o.Name(), StatusCode: status, Message: "no text in response"}
	}

	var usage *Usage
	if ollamaResp.PromptEvalCount != nil || ollamaResp.EvalCount != nil {
		usage = (&wireUsage{InputTokens: ollamaResp.PromptEvalCount, OutputTokens: ollamaResp.EvalCount}).normalize()
	}

	return &CompletionResponse{
		Content:      text,
		Model:        ollamaResp.Model,
		FinishReason: ollamaResp.DoneReason,
		Usage:        usage,
	}, nil
}
