package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

type backend interface {
	KV
	Notifier
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "promptit.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]backend{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			type record struct {
				Name   string `json:"name"`
				Active bool   `json:"active"`
			}
			want := []record{{Name: "Summarise", Active: true}, {Name: "Rephrase"}}

			if err := kv.Set(ctx, map[string]any{KeyCustomPromptlets: want, KeyInitialized: true}); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			var got []record
			found, err := Lookup(ctx, kv, KeyCustomPromptlets, &got)
			if err != nil || !found {
				t.Fatalf("Lookup() found=%v err=%v", found, err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
			}

			values, err := kv.Get(ctx, KeyCustomPromptlets, KeyInitialized, "missing")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if len(values) != 2 {
				t.Errorf("Get() returned %d keys, want 2", len(values))
			}

			if err := kv.Remove(ctx, KeyCustomPromptlets, "missing"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			got = nil
			found, err = Lookup(ctx, kv, KeyCustomPromptlets, &got)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if found || got != nil {
				t.Errorf("Lookup() after Remove found=%v got=%v", found, got)
			}
		})
	}
}

func TestKVLastWriteWins(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, v := range []string{"first", "second"} {
				if err := kv.Set(ctx, map[string]any{KeyAPIKey: v}); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
			}
			var got string
			if _, err := Lookup(ctx, kv, KeyAPIKey, &got); err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got != "second" {
				t.Errorf("Lookup() = %q, want %q", got, "second")
			}
		})
	}
}

func TestKVOnChange(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var mu sync.Mutex
			var seen [][]string
			cancel := kv.OnChange(func(keys []string) {
				mu.Lock()
				seen = append(seen, keys)
				mu.Unlock()
			})

			kv.Set(ctx, map[string]any{KeyDefaultPromptlets: []int{}, KeyCustomPromptlets: []int{}})
			kv.Remove(ctx, KeyPendingPromptlet)
			cancel()
			kv.Set(ctx, map[string]any{KeyAPIKey: "ignored"})

			want := [][]string{
				{KeyCustomPromptlets, KeyDefaultPromptlets},
				{KeyPendingPromptlet},
			}
			mu.Lock()
			defer mu.Unlock()
			if diff := cmp.Diff(want, seen); diff != "" {
				t.Errorf("OnChange() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "promptit.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := db.Set(ctx, map[string]any{KeyInitialized: true}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	db.Close()

	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	var initialized bool
	found, err := Lookup(ctx, db, KeyInitialized, &initialized)
	if err != nil || !found || !initialized {
		t.Errorf("Lookup() = %v found=%v err=%v, want true", initialized, found, err)
	}
}

func TestWatchReportsWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "promptit.db")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 4)
	w, err := Watch(context.Background(), path, func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	// Unrelated files in the same directory are ignored.
	os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("x"), 0600)
	select {
	case <-fired:
		t.Fatal("watch fired for an unrelated file")
	case <-time.After(2 * watchDebounce):
	}

	os.WriteFile(path, []byte("a"), 0600)
	os.WriteFile(path+"-wal", []byte("b"), 0600)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not fire after a write")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := Watch(ctx, filepath.Join(t.TempDir(), "promptit.db"), func() {})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	cancel()
	<-w.done
}
