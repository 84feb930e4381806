package aggregate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gitlab.com/efronlicht/nbblog/postmeta"
	"go.uber.org/zap"
)

// editors tend to write a file in several bursts: wait for them to settle.
const debounce = 100 * time.Millisecond

// Watch runs the aggregation once, then again every time a metadata file in dir is created, written, removed, or renamed,
// until ctx is done. Each rebuild is a full Run. A failed rebuild is logged and leaves the previous index in place.
func Watch(ctx context.Context, dir, out string, logger *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger = logger.With(zap.String("dir", dir))
	rebuild := func() {
		if _, err := Run(dir, out, logger); err != nil {
			logger.Error("rebuild failed: keeping previous index", zap.Error(err))
		}
	}
	rebuild()
	logger.Info("watching for changes")

	var (
		wait    debouncer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			wait.stop()
			logger.Info("watcher stopped")
			return nil
		case <-pending:
			pending = nil
			rebuild()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, postmeta.Ext) || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("metadata changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			pending = wait.reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// debouncer hands out a fresh timer per burst of events.
// Reusing one timer would leave a tick that fired but was never received sitting in its channel.
type debouncer struct{ timer *time.Timer }

// reset cancels any pending tick and returns a channel that fires once d has passed.
func (db *debouncer) reset(d time.Duration) <-chan time.Time {
	db.stop()
	db.timer = time.NewTimer(d)
	return db.timer.C
}

func (db *debouncer) stop() {
	if db.timer != nil {
		db.timer.Stop()
	}
}
