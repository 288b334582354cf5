// Package watch reports changes other processes make to the chunk
// directories, so long-running servers can drop their cached corpus.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/logger"
)

var (
	_ driven.ChangeWatcher = (*Watcher)(nil)
	_ driven.ChangeWatcher = Null{}
)

// DefaultDebounce groups bursts of events into one notification.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a set of directories with fsnotify.
type Watcher struct {
	dirs     []string
	debounce time.Duration
}

// New creates a watcher over dirs. A debounce of 0 uses DefaultDebounce.
func New(debounce time.Duration, dirs ...string) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dirs: dirs, debounce: debounce}
}

// Watch blocks until ctx is done, calling onChange after each burst of
// relevant events. It returns nil on cancellation.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("watch: %s %s", event.Op, event.Name)
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			onChange()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// relevant filters out permission changes and atomic-write temp files.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, ".tmp")
}

// Null never reports changes.
type Null struct{}

// Watch blocks until ctx is done.
func (Null) Watch(ctx context.Context, _ func()) error {
	<-ctx.Done()
	return nil
}
