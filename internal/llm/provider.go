package llm

import (
	"context"
	"fmt"
)

// Provider is the interface all LLM providers must implement
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one completion request and returns the full response.
	// Providers never retry.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Ping checks if the provider is reachable and the credential accepted
	Ping(ctx context.Context) error
}

// CompletionRequest represents a request to the LLM
type CompletionRequest struct {
	Model            string
	Messages         []Message
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Message represents a chat message
type Message struct {
	Role    string
	Content string
}

// CompletionResponse represents the full response
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string

	// Usage is nil when the provider reported none.
	Usage *Usage
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"inputTokens" yaml:"inputTokens"`
	OutputTokens int `json:"outputTokens" yaml:"outputTokens"`
	TotalTokens  int `json:"totalTokens" yaml:"totalTokens"`
}

func (u Usage) String() string {
	return fmt.Sprintf("Tokens: %d (In: %d | Out: %d)", u.TotalTokens, u.InputTokens, u.OutputTokens)
}

// NewRequest creates a completion request with an optional system message
func NewRequest(model, systemPrompt, userPrompt string) *CompletionRequest {
	var messages []Message
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt})

	return &CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   1500,
		Temperature: 1,
		TopP:        1,
	}
}

// split separates the system message from the conversation.
func split(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
