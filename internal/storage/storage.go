// Package storage provides the durable key-value collaborator that holds
// promptlets, the API credential and pending hand-off records.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Well-known keys.
const (
	KeyDefaultPromptlets = "defaultPromptlets"
	KeyCustomPromptlets  = "customPromptlets"
	KeyLegacyPromptlets  = "promptlets"
	KeyInitialized       = "hasInitialized"
	KeyAPIKey            = "apiKey"
	KeyPendingPromptlet  = "pendingPromptlet"
)

// KV is a durable key-value store of JSON documents.
type KV interface {
	// Get returns the stored documents for the given keys. Missing keys are
	// absent from the result.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)

	// Set marshals and stores every value in one write.
	Set(ctx context.Context, values map[string]any) error

	// Remove deletes the keys. Removing a missing key is not an error.
	Remove(ctx context.Context, keys ...string) error
}

// Notifier reports the keys touched by each completed write.
type Notifier interface {
	OnChange(fn func(keys []string)) (cancel func())
}

// Lookup decodes the document stored under key into dst. When the key is
// missing dst is left untouched, so callers pre-fill it with defaults.
func Lookup(ctx context.Context, kv KV, key string, dst any) (bool, error) {
	values, err := kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// hub fans change notifications out to subscribers.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func([]string)
}

func (h *hub) OnChange(fn func(keys []string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func([]string))
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *hub) notify(keys []string) {
	if len(keys) == 0 {
		return
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	h.mu.Lock()
	fns := make([]func([]string), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(sorted)
	}
}

func keysOf(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys
}
