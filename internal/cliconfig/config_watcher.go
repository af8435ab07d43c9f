package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/eventship/pkg/log"
)

// DefaultDebounceDelay is how long the watcher waits after a file change
// before reloading, so editors that write in several steps trigger one
// reload, not many.
const DefaultDebounceDelay = 100 * time.Millisecond

// Watcher monitors a TOML config file and invokes a callback with the
// re-parsed contents whenever the file changes. The parent directory is
// watched so atomic save strategies (write temp file, rename over) are
// picked up too.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(FileConfig)
	logger   log.Logger

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, onChange func(FileConfig), logger log.Logger) *Watcher {
	return &Watcher{
		path:     path,
		debounce: DefaultDebounceDelay,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching. It returns once the underlying fsnotify watcher is
// registered; change handling runs in a background goroutine until Stop or
// context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsw.Close()
		w.loop(ctx, fsw)
	}()
	return nil
}

// Stop cancels watching and waits for the background goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", log.Err(err))
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", log.Err(err), log.String("path", w.path))
		return
	}
	w.logger.Info("config file changed", log.String("path", w.path))
	w.onChange(fc)
}
