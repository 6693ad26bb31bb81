// Package executor turns a promptlet and a piece of selected text into one
// call to the configured language model.
package executor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/sant0-9/promptit/internal/config"
	"github.com/sant0-9/promptit/internal/llm"
	"github.com/sant0-9/promptit/internal/promptlet"
	"github.com/sant0-9/promptit/internal/prompts"
)

// ErrMissingCredential is returned before any network call when the
// provider needs an API key and none is stored.
var ErrMissingCredential = errors.New("no API key set")

const defaultTimeout = 30 * time.Second

// Result is the outcome of one successful invocation.
type Result struct {
	Text    string
	Usage   *llm.Usage
	Model   string
	Elapsed time.Duration
}

// ProviderFunc builds a provider for one call.
type ProviderFunc func(cfg *config.Config, apiKey string) (llm.Provider, error)

type Executor struct {
	cfg         *config.Config
	creds       CredentialSource
	logger      *zap.Logger
	newProvider ProviderFunc
}

func New(cfg *config.Config, creds CredentialSource, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		cfg:         cfg,
		creds:       creds,
		logger:      logger,
		newProvider: llm.NewProvider,
	}
}

// WithProvider replaces how providers are built.
func (e *Executor) WithProvider(fn ProviderFunc) *Executor {
	e.newProvider = fn
	return e
}

// Execute sends prompt + "\n\n" + input as a single request. There are no
// retries; every failure ends the invocation.
func (e *Executor) Execute(ctx context.Context, p promptlet.Promptlet, input string) (*Result, error) {
	key, err := e.creds.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("read API key: %w", err)
	}
	if key == "" && llm.NeedsAPIKey(e.cfg.Provider) {
		return nil, ErrMissingCredential
	}

	provider, err := e.newProvider(e.cfg, key)
	if err != nil {
		return nil, err
	}

	var system string
	if e.cfg.SystemPrompt {
		if system, err = prompts.System(e.cfg.Locale); err != nil {
			return nil, err
		}
	}

	p.Normalize(e.cfg.Model)
	req := llm.NewRequest(e.modelFor(p), system, prompts.UserContent(p.Prompt, input))
	req.MaxTokens = p.MaxTokens
	req.Temperature = p.Temperature
	req.TopP = p.TopP
	req.FrequencyPenalty = p.FrequencyPenalty
	req.PresencePenalty = p.PresencePenalty

	timeout := e.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := e.logger.With(
		zap.String("promptlet", p.Name),
		zap.String("provider", provider.Name()),
		zap.String("model", req.Model),
	)
	log.Debug("executing promptlet", zap.Int("input_chars", len(input)))

	start := time.Now()
	resp, err := provider.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("request timed out after %s: %w", timeout, err)
		}
		log.Warn("promptlet failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	fields := []zap.Field{zap.Duration("elapsed", elapsed)}
	if resp.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", resp.Usage.TotalTokens))
	}
	log.Info("promptlet completed", fields...)

	return &Result{
		Text:    resp.Content,
		Usage:   resp.Usage,
		Model:   model,
		Elapsed: elapsed,
	}, nil
}

// modelFor keeps the promptlet's model on OpenAI. Other providers cannot
// serve the OpenAI models the bundled promptlets name, so those fall back
// to the configured model.
func (e *Executor) modelFor(p promptlet.Promptlet) string {
	if e.cfg.Provider == "openai" || e.cfg.Provider == "" {
		return p.Model
	}
	if openai := config.GetProvider("openai"); openai != nil && slices.Contains(openai.Models, p.Model) {
		return e.cfg.Model
	}
	return p.Model
}
