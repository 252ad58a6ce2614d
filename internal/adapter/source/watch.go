package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/layer-catalog-service/internal/debounce"
)

// Watcher calls onChange after the catalog file is written. Bursts of events
// (editors and the harvester write in several steps) collapse into one call.
type Watcher struct {
	path      string
	watcher   *fsnotify.Watcher
	debouncer *debounce.Debouncer
	delay     time.Duration
	onChange  func()
	logger    *slog.Logger
}

// NewWatcher creates a watcher for the file at path. The parent directory is
// watched so that atomic replace-by-rename is seen.
func NewWatcher(path string, delay time.Duration, clock clockwork.Clock, onChange func(), logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	return &Watcher{
		path:      abs,
		watcher:   fw,
		debouncer: debounce.New(clock),
		delay:     delay,
		onChange:  onChange,
		logger:    logger,
	}, nil
}

// Run blocks until ctx is cancelled. The underlying watcher is closed on
// return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.debouncer.Cancel()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching catalog file", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("catalog file changed", "path", ev.Name, "op", ev.Op.String())
			w.debouncer.Schedule(w.delay, w.onChange)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
