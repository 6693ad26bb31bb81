package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Writes land in the database, its WAL and its shared-memory file in quick
// succession; they are coalesced into one callback.
const watchDebounce = 150 * time.Millisecond

// Watcher reports writes to a database file made by any process.
type Watcher struct {
	fw   *fsnotify.Watcher
	done chan struct{}
}

// Watch calls fn after the database at path (or its WAL) is written. It stops
// when ctx is cancelled or Close is called.
func Watch(ctx context.Context, path string, fn func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{fw: fw, done: make(chan struct{})}
	go w.loop(ctx, filepath.Base(path), fn)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context, base string, fn func()) {
	defer close(w.done)

	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				pending = time.After(watchDebounce)
			}
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
		case <-pending:
			pending = nil
			fn()
		case <-ctx.Done():
			w.fw.Close()
			return
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
