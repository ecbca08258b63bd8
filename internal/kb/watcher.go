package kb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"bioclas/internal/logging"
)

// ReloadFunc receives the result of each reload: the new knowledge base, or
// the load error with kb nil.
type ReloadFunc func(kb *KnowledgeBase, err error)

// Watcher reloads the knowledge base when either definition file changes.
// A reload that fails to parse is logged and the previous base stays current.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	variables   string
	rules       string
	current     atomic.Pointer[KnowledgeBase]
	onReload    ReloadFunc
	debounceDur time.Duration
	pending     time.Time // zero when nothing is pending
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats counts watcher activity.
type WatcherStats struct {
	Events        int
	Reloads       int
	FailedReloads int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastError     string
}

// NewWatcher wraps an already loaded knowledge base. onReload may be nil.
func NewWatcher(initial *KnowledgeBase, onReload ReloadFunc) (*Watcher, error) {
	if initial == nil {
		return nil, fmt.Errorf("watcher needs an initial knowledge base")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	vars, err := filepath.Abs(initial.VariablesPath)
	if err != nil {
		fw.Close()
		return nil, err
	}
	rules, err := filepath.Abs(initial.RulesPath)
	if err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		watcher:     fw,
		variables:   vars,
		rules:       rules,
		onReload:    onReload,
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	w.current.Store(initial)
	return w, nil
}

// SetDebounce changes how long events must settle before a reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounceDur = d
	w.mu.Unlock()
}

// Current returns the most recent successfully loaded knowledge base.
func (w *Watcher) Current() *KnowledgeBase { return w.current.Load() }

// Start watches the directories holding the definition files. Directories
// are watched rather than files so editors that replace files on save are
// still seen. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := map[string]bool{filepath.Dir(w.variables): true, filepath.Dir(w.rules): true}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logging.Watch("watching directory: %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processPending()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil || (path != w.variables && path != w.rules) {
		return
	}
	logging.WatchDebug("%s event for %s", event.Op, path)

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = path
	w.pending = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processPending() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	w.Reload()
}

// Reload re-reads both files now. On failure the current base is kept and
// the error returned.
func (w *Watcher) Reload() error {
	kb, err := Load(w.variables, w.rules)
	w.mu.Lock()
	if err != nil {
		w.stats.FailedReloads++
		w.stats.LastError = err.Error()
		w.mu.Unlock()
		logging.WatchError("reload failed, keeping previous knowledge base: %v", err)
		if w.onReload != nil {
			w.onReload(nil, err)
		}
		return err
	}
	w.stats.Reloads++
	w.stats.LastError = ""
	w.mu.Unlock()

	w.current.Store(kb)
	logging.Watch("knowledge base reloaded (%d rules)", len(kb.FIS.Rules()))
	if w.onReload != nil {
		w.onReload(kb, nil)
	}
	return nil
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string { return w.watcher.WatchList() }
