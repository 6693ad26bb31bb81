package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultConfig()
	want.StoragePath = filepath.Join(dir, "promptit.db")
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`provider: ollama
model: llama3.1:8b
timeout: 45s
max_chain_depth: 0
api_key: ${PROMPTIT_TEST_SECRET}
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROMPTIT_TEST_SECRET", "sk-from-env")
	t.Setenv("PROMPTIT_LOCALE", "fr-FR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"provider", cfg.Provider, "ollama"},
		{"timeout", cfg.Timeout, 45 * time.Second},
		{"max_chain_depth", cfg.MaxChainDepth, 0},
		{"api_key", cfg.APIKey, "sk-from-env"},
		{"locale from env", cfg.Locale, "fr-FR"},
		{"handoff default", cfg.HandoffWindow, 200 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Provider = "anthropic"
	cfg.Model = "claude-haiku-4-5"
	cfg.StoragePath = filepath.Join(t.TempDir(), "store.db")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGetProvider(t *testing.T) {
	for _, id := range ProviderIDs() {
		if p := GetProvider(id); p == nil || p.ID != id {
			t.Errorf("GetProvider(%q) = %v", id, p)
		}
	}
	if GetProvider("nope") != nil {
		t.Error("GetProvider(unknown) != nil")
	}
	if p := GetProvider("ollama"); p.NeedsAPIKey {
		t.Error("ollama should not need a key")
	}
}
