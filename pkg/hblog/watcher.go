package hblog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bascanada/hblog/pkg/tier"
	"github.com/fsnotify/fsnotify"
)

// TierMapWatcher watches a YAML tier-map override file and reloads the
// agent's tier.Table whenever it changes, debounced the same way the
// teacher's ConfigWatcher debounces config reloads.
type TierMapWatcher struct {
	watcher      *fsnotify.Watcher
	path         string
	table        *tier.Table
	mu           *sync.RWMutex
	logger       *slog.Logger
	lastReload   time.Time
	debounceTime time.Duration
}

// NewTierMapWatcher builds a watcher for path, reloading into table
// under mu's protection on every qualifying write/create event.
func NewTierMapWatcher(path string, table *tier.Table, mu *sync.RWMutex, logger *slog.Logger) (*TierMapWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("hblog: creating tier-map watcher: %w", err)
	}
	return &TierMapWatcher{
		watcher:      w,
		path:         path,
		table:        table,
		mu:           mu,
		logger:       logger,
		debounceTime: time.Second,
	}, nil
}

// Start begins watching in the background until ctx is cancelled.
func (w *TierMapWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("hblog: watching %s: %w", w.path, err)
	}
	w.logger.Info("watching tier map override", "path", w.path)
	go w.watch(ctx)
	return nil
}

func (w *TierMapWatcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("tier map watcher error", "err", err)
		}
	}
}

func (w *TierMapWatcher) reload() {
	if time.Since(w.lastReload) < w.debounceTime {
		return
	}
	w.lastReload = time.Now()

	override, err := LoadTierMapOverride(w.path)
	if err != nil {
		w.logger.Error("failed to reload tier map override", "err", err)
		return
	}

	fresh := tier.DefaultTable()
	fresh.ApplyOverride(override.Globs, override.Equivalents)

	w.mu.Lock()
	*w.table = *fresh
	w.mu.Unlock()

	w.logger.Info("reloaded tier map override", "path", w.path)
}

// Stop stops the watcher.
func (w *TierMapWatcher) Stop() error {
	return w.watcher.Close()
}
