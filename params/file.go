package params

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML mapping of parameter names to values.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse params file %s: %w", path, err)
	}
	return values, nil
}

// ApplyFile loads path and sets every value it holds on the store.
func ApplyFile(store *Store, path string) error {
	values, err := LoadFile(path)
	if err != nil {
		return err
	}
	return store.SetMany(values)
}

// Watcher reapplies a params file to a store whenever it is written.
type Watcher struct {
	logger   *zap.Logger
	store    *Store
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	started  bool
	done     chan struct{}
}

// NewWatcher creates a watcher for path. Call Start to begin watching.
func NewWatcher(logger *zap.Logger, store *Store, path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to resolve params path: %w", err)
	}
	return &Watcher{
		logger:   logger,
		store:    store,
		watcher:  w,
		path:     abs,
		debounce: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}, nil
}

// Start applies the file once and then watches its directory; editors often
// replace files rather than write them in place.
func (w *Watcher) Start(ctx context.Context) error {
	if err := ApplyFile(w.store, w.path); err != nil {
		w.logger.Warn("Params file applied with errors", zap.String("path", w.path), zap.Error(err))
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.logger.Info("Watching params file", zap.String("path", w.path))
	w.started = true

	timer := time.NewTimer(0)
	<-timer.C

	go func() {
		defer close(w.done)
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if w.shouldProcessEvent(event) {
					timer.Reset(w.debounce)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("Params watcher error", zap.Error(err))
			case <-timer.C:
				w.reload()
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop closes the underlying watcher and waits for the watch loop to exit.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	if w.started {
		<-w.done
	}
	return err
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

func (w *Watcher) reload() {
	if err := ApplyFile(w.store, w.path); err != nil {
		w.logger.Warn("Params reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Debug("Params reloaded", zap.String("path", w.path))
}
