package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a failed or unusable response from the remote API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// newAPIError builds the error for a non-2xx response, preferring the
// upstream error.message over the HTTP status line.
func newAPIError(provider string, statusCode int, status string, body []byte) *APIError {
	msg := errorMessage(body)
	if msg == "" {
		if status == "" {
			status = fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode))
		}
		msg = "API error: " + status
	}
	return &APIError{Provider: provider, StatusCode: statusCode, Message: msg}
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(payload.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	return payload.Message
}

// postJSON sends payload and returns the body of a 2xx response.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s read failed: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, newAPIError(provider, resp.StatusCode, resp.Status, data)
	}
	return data, resp.StatusCode, nil
}

type wireUsage struct {
	InputTokens      *int `json:"input_tokens"`
	PromptTokens     *int `json:"prompt_tokens"`
	OutputTokens     *int `json:"output_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

// normalize accepts both the responses and the chat-completions field names.
// It returns nil when none of them is present.
func (w *wireUsage) normalize() *Usage {
	if w == nil {
		return nil
	}
	if w.InputTokens == nil && w.PromptTokens == nil && w.OutputTokens == nil &&
		w.CompletionTokens == nil && w.TotalTokens == nil {
		return nil
	}
	first := func(a, b *int) int {
		if a != nil {
			return *a
		}
		if b != nil {
			return *b
		}
		return 0
	}
	u := &Usage{
		InputTokens:  first(w.InputTokens, w.PromptTokens),
		OutputTokens: first(w.OutputTokens, w.CompletionTokens),
	}
	if w.TotalTokens != nil {
		u.TotalTokens = *w.TotalTokens
	} else {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

type wireContent struct {
	Type       string  `json:"type"`
	Text       *string `json:"text"`
	OutputText *string `json:"output_text"`
}

type wireResponse struct {
	Model      string  `json:"model"`
	Status     string  `json:"status"`
	OutputText *string `json:"output_text"`
	Output     []struct {
		Type    string        `json:"type"`
		Content []wireContent `json:"content"`
	} `json:"output"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
}

// ParseResponse extracts the generated text and usage from a responses API
// or chat-completions body. A top-level output_text wins; otherwise the
// textual items of message blocks are joined, taking text or output_text
// from each item but never both.
func ParseResponse(provider string, statusCode int, body []byte) (*CompletionResponse, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &APIError{Provider: provider, StatusCode: statusCode, Message: "invalid response: " + err.Error()}
	}

	resp := &CompletionResponse{
		Model:        wire.Model,
		FinishReason: wire.Status,
		Usage:        wire.Usage.normalize(),
	}

	switch {
	case wire.OutputText != nil && *wire.OutputText != "":
		resp.Content = *wire.OutputText
	case len(wire.Output) > 0:
		var parts []string
		for _, block := range wire.Output {
			if block.Type != "message" {
				continue
			}
			for _, item := range block.Content {
				switch {
				case item.Text != nil:
					parts = append(parts, *item.Text)
				case item.OutputText != nil:
					parts = append(parts, *item.OutputText)
				}
			}
		}
		resp.Content = strings.Join(parts, "\n")
	case len(wire.Choices) > 0:
		resp.Content = wire.Choices[0].Message.Content
		resp.FinishReason = wire.Choices[0].FinishReason
	}

	resp.Content = strings.TrimSpace(resp.Content)
	if resp.Content == "" {
		return nil, &APIError{Provider: provider, StatusCode: statusCode, Message: "no text in response"}
	}
	return resp, nil
}
