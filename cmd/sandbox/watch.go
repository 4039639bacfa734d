package main

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 100 * time.Millisecond

// watcher signals when the guest module file changes. It watches the parent
// directory because editors and build tools usually replace the file rather
// than write it in place.
type watcher struct {
	fs       *fsnotify.Watcher
	path     string
	logger   *zap.Logger
	events   chan struct{}
	stop     chan struct{}
	debounce *time.Timer
	mu       sync.Mutex
	closed   bool
	stopOnce sync.Once
}

func newWatcher(path string, logger *zap.Logger) (*watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &watcher{
		fs:     fsw,
		path:   abs,
		logger: logger,
		events: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer func() {
		w.mu.Lock()
		w.closed = true
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
		close(w.events)
	}()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.mu.Lock()
			if w.debounce != nil {
				w.debounce.Stop()
			}
			w.debounce = time.AfterFunc(reloadDebounce, w.fire)
			w.mu.Unlock()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("module watcher error", zap.Error(err))
		}
	}
}

func (w *watcher) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// Events yields once per settled change. It is closed when the watcher
// stops. A nil watcher never yields.
func (w *watcher) Events() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.events
}

// Close stops watching.
func (w *watcher) Close() error {
	if w == nil {
		return nil
	}
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.fs.Close()
	})
	return err
}
