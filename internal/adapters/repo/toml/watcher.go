package toml

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

type WatcherConfig struct {
	// OnChange is called once per burst of changes to the accounts file.
	OnChange func()
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher reports changes to the accounts file made by other processes.
// The parent directory is watched because saves replace the file by rename.
type Watcher struct {
	path    string
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu       sync.Mutex
	watching bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewWatcher(accountsPath string, config WatcherConfig) (*Watcher, error) {
	if config.Debounce <= 0 {
		config.Debounce = defaultDebounce
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.OnChange == nil {
		config.OnChange = func() {}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:    filepath.Clean(accountsPath),
		config:  config,
		watcher: fsWatcher,
		logger:  config.Logger,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return fmt.Errorf("watcher already running")
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, accountsDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch accounts directory: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.watching = true

	go w.eventLoop(loopCtx, w.done)
	w.logger.Debug("watching accounts file", "path", w.path)

	return nil
}

// Stop halts the watcher and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.watching = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	return w.watcher.Close()
}

func (w *Watcher) eventLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fire:
			fire = nil
			w.config.OnChange()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			w.logger.Debug("accounts file changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
			} else {
				timer.Reset(w.config.Debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}
