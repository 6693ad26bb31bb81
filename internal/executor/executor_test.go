package executor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/sant0-9/promptit/internal/config"
	"github.com/sant0-9/promptit/internal/llm"
	"github.com/sant0-9/promptit/internal/promptlet"
	"github.com/sant0-9/promptit/internal/storage"
)

type stubProvider struct {
	got   *llm.CompletionRequest
	resp  *llm.CompletionResponse
	err   error
	delay time.Duration
	calls int
}

func (s *stubProvider) Name() string                   { return "stub" }
func (s *stubProvider) Ping(ctx context.Context) error { return nil }

func (s *stubProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls++
	s.got = req
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.resp, s.err
}

func newTestExecutor(cfg *config.Config, key string, p llm.Provider) *Executor {
	kv := storage.NewMemory()
	if key != "" {
		SaveAPIKey(context.Background(), kv, key)
	}
	return New(cfg, StoredCredential{KV: kv}, nil).WithProvider(func(*config.Config, string) (llm.Provider, error) {
		return p, nil
	})
}

func summarise() promptlet.Promptlet {
	return promptlet.Promptlet{
		Name:        "Summarise",
		Prompt:      "Summarise clearly.",
		Model:       "gpt-5-mini",
		Temperature: 0.3,
		MaxTokens:   1500,
		TopP:        1,
	}
}

func TestExecuteBuildsRequest(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SystemPrompt = false
	stub := &stubProvider{resp: &llm.CompletionResponse{Content: "Sure.", Usage: &llm.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}}

	res, err := newTestExecutor(cfg, "sk-test", stub).Execute(context.Background(), summarise(), "draft a reply")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := &llm.CompletionRequest{
		Model:       "gpt-5-mini",
		Messages:    []llm.Message{{Role: "user", Content: "Summarise clearly.\n\ndraft a reply"}},
		MaxTokens:   1500,
		Temperature: 0.3,
		TopP:        1,
	}
	if diff := cmp.Diff(want, stub.got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	if res.Text != "Sure." || res.Model != "gpt-5-mini" || res.Usage.TotalTokens != 15 {
		t.Errorf("Execute() = %+v", res)
	}
}

func TestExecuteSystemPrompt(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Locale = "fr"
	stub := &stubProvider{resp: &llm.CompletionResponse{Content: "ok"}}

	if _, err := newTestExecutor(cfg, "sk", stub).Execute(context.Background(), summarise(), "x"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(stub.got.Messages) != 2 || stub.got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", stub.got.Messages)
	}
	if !strings.Contains(stub.got.Messages[0].Content, "French") {
		t.Errorf("system prompt does not name the locale: %q", stub.got.Messages[0].Content)
	}
}

func TestExecuteMissingCredential(t *testing.T) {
	stub := &stubProvider{}
	_, err := newTestExecutor(config.DefaultConfig(), "", stub).Execute(context.Background(), summarise(), "x")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Execute() error = %v, want ErrMissingCredential", err)
	}
	if stub.calls != 0 {
		t.Errorf("provider called %d times without a key", stub.calls)
	}

	// Ollama runs without a key.
	cfg := config.DefaultConfig()
	cfg.Provider = "ollama"
	cfg.Model = "llama3.1:8b"
	stub = &stubProvider{resp: &llm.CompletionResponse{Content: "local"}}
	if _, err := newTestExecutor(cfg, "", stub).Execute(context.Background(), summarise(), "x"); err != nil {
		t.Fatalf("Execute(ollama) error = %v", err)
	}
	if stub.got.Model != "llama3.1:8b" {
		t.Errorf("ollama model = %q, want the configured model", stub.got.Model)
	}
}

func TestExecuteTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config.DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	stub := &stubProvider{delay: time.Second, resp: &llm.CompletionResponse{Content: "late"}}

	_, err := newTestExecutor(cfg, "sk", stub).Execute(context.Background(), summarise(), "x")
	if !errors.Is(err, context.DeadlineExceeded) || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("Execute() error = %v, want a timeout", err)
	}
	if stub.calls != 1 {
		t.Errorf("provider called %d times, want exactly one", stub.calls)
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	var body struct {
		Model string `json:"model"`
		Input []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"input"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		if r.Header.Get("Authorization") != "Bearer sk-live" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error": {"message": "bad key"}}`)
			return
		}
		io.WriteString(w, `{"output": [{"type": "message", "content": [{"type": "output_text", "text": "Thanks, I'll reply today."}]}]}`)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.SystemPrompt = false
	kv := storage.NewMemory()
	exec := New(cfg, StoredCredential{KV: kv}, nil)

	SaveAPIKey(context.Background(), kv, "sk-wrong")
	_, err := exec.Execute(context.Background(), summarise(), "draft a reply")
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "bad key" {
		t.Fatalf("Execute() error = %v, want APIError bad key", err)
	}

	SaveAPIKey(context.Background(), kv, "sk-live")
	res, err := exec.Execute(context.Background(), summarise(), "draft a reply")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Text != "Thanks, I'll reply today." || res.Usage != nil {
		t.Errorf("Execute() = %+v", res)
	}
	if len(body.Input) != 1 || body.Input[0].Content != "Summarise clearly.\n\ndraft a reply" {
		t.Errorf("input = %+v", body.Input)
	}
}

func TestStoredCredential(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()

	tests := []struct {
		name     string
		stored   string
		override string
		want     string
	}{
		{"nothing stored", "", "", ""},
		{"stored", "  sk-abc  ", "", "sk-abc"},
		{"override wins", "sk-abc", "sk-env", "sk-env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := SaveAPIKey(ctx, kv, tt.stored); err != nil {
				t.Fatalf("SaveAPIKey() error = %v", err)
			}
			got, err := StoredCredential{KV: kv, Override: tt.override}.APIKey(ctx)
			if err != nil || got != tt.want {
				t.Errorf("APIKey() = %q, %v, want %q", got, err, tt.want)
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("sk-proj-1234567890abcd"); got != "sk-********abcd" {
		t.Errorf("MaskKey() = %q", got)
	}
	if got := MaskKey("short"); got != "*****" {
		t.Errorf("MaskKey() = %q", got)
	}
}
