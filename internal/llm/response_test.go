package llm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantText  string
		wantUsage *Usage
	}{
		{
			name:     "output_text without usage",
			body:     `{"output_text": "hello"}`,
			wantText: "hello",
		},
		{
			name:      "chat usage names",
			body:      `{"choices": [{"message": {"content": " hi "}, "finish_reason": "stop"}], "usage": {"prompt_tokens": 10, "completion_tokens": 5}}`,
			wantText:  "hi",
			wantUsage: &Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		},
		{
			name: "responses message blocks",
			body: `{"output": [
				{"type": "reasoning", "content": [{"type": "reasoning_text", "text": "hidden"}]},
				{"type": "message", "content": [{"type": "output_text", "text": "line one"}, {"type": "output_text", "text": "line two"}]}
			], "usage": {"input_tokens": 3, "output_tokens": 4, "total_tokens": 9}}`,
			wantText:  "line one\nline two",
			wantUsage: &Usage{InputTokens: 3, OutputTokens: 4, TotalTokens: 9},
		},
		{
			name:     "content item carries both fields",
			body:     `{"output": [{"type": "message", "content": [{"text": "once", "output_text": "once"}]}]}`,
			wantText: "once",
		},
		{
			name:     "content item with output_text only",
			body:     `{"output": [{"type": "message", "content": [{"output_text": "alt"}]}]}`,
			wantText: "alt",
		},
		{
			name:     "top-level output_text wins over blocks",
			body:     `{"output_text": "top", "output": [{"type": "message", "content": [{"text": "top"}]}]}`,
			wantText: "top",
		},
		{
			name:     "empty usage object",
			body:     `{"output_text": "x", "usage": {}}`,
			wantText: "x",
		},
		{
			name:     "usage with unknown fields only",
			body:     `{"output_text": "x", "usage": {"cached_tokens": 7}}`,
			wantText: "x",
		},
		{
			name:      "usage with output tokens only",
			body:      `{"output_text": "x", "usage": {"output_tokens": 2}}`,
			wantText:  "x",
			wantUsage: &Usage{OutputTokens: 2, TotalTokens: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse("openai", 200, []byte(tt.body))
			if err != nil {
				t.Fatalf("ParseResponse() error = %v", err)
			}
			if resp.Content != tt.wantText {
				t.Errorf("Content = %q, want %q", resp.Content, tt.wantText)
			}
			if diff := cmp.Diff(tt.wantUsage, resp.Usage); diff != "" {
				t.Errorf("Usage mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseResponseFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `<html>`, "invalid response"},
		{"no text", `{"output": []}`, "no text in response"},
		{"whitespace only", `{"output_text": "   "}`, "no text in response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse("openai", 200, []byte(tt.body))
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if len(apiErr.Message) < len(tt.want) || apiErr.Message[:len(tt.want)] != tt.want {
				t.Errorf("Message = %q, want prefix %q", apiErr.Message, tt.want)
			}
		})
	}
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		line   string
		body   string
		want   string
	}{
		{"nested message", 401, "401 Unauthorized", `{"error": {"message": "bad key"}}`, "bad key"},
		{"string error", 404, "404 Not Found", `{"error": "model not found"}`, "model not found"},
		{"top-level message", 400, "400 Bad Request", `{"message": "too long"}`, "too long"},
		{"unparseable body", 502, "502 Bad Gateway", `upstream down`, "API error: 502 Bad Gateway"},
		{"missing status line", 503, "", ``, "API error: 503 Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newAPIError("openai", tt.status, tt.line, []byte(tt.body))
			if err.Error() != tt.want || err.StatusCode != tt.status {
				t.Errorf("newAPIError() = %q (%d), want %q", err.Error(), err.StatusCode, tt.want)
			}
		})
	}
}

func TestUsageString(t *testing.T) {
	u := Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	if got := u.String(); got != "Tokens: 15 (In: 10 | Out: 5)" {
		t.Errorf("String() = %q", got)
	}
}
