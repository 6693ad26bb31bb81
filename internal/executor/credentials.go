package executor

import (
	"context"
	"strings"

	"github.com/sant0-9/promptit/internal/storage"
)

// CredentialSource yields the API key at the moment of each call, so a key
// saved mid-session is picked up without a restart.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

// StoredCredential reads the key from storage. Override, when set from the
// environment or the config file, takes precedence.
type StoredCredential struct {
	KV       storage.KV
	Override string
}

func (c StoredCredential) APIKey(ctx context.Context) (string, error) {
	if c.Override != "" {
		return c.Override, nil
	}
	var key string
	if _, err := storage.Lookup(ctx, c.KV, storage.KeyAPIKey, &key); err != nil {
		return "", err
	}
	return strings.TrimSpace(key), nil
}

// SaveAPIKey stores key, or removes the stored key when it is empty.
func SaveAPIKey(ctx context.Context, kv storage.KV, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return kv.Remove(ctx, storage.KeyAPIKey)
	}
	return kv.Set(ctx, map[string]any{storage.KeyAPIKey: key})
}

// MaskKey shows only the ends of a key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + strings.Repeat("*", 8) + key[len(key)-4:]
}
