package audio

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// CacheInvalidator drops decoded data for an asset.
type CacheInvalidator interface {
	InvalidateCache(asset string)
}

// Watcher watches asset files and invalidates the decoded cache when they
// change on disk, so the next session picks up the new sound.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	cache   CacheInvalidator

	// Watched asset paths, and how many of them live in each directory
	paths map[string]struct{}
	dirs  map[string]int

	onChange func(path string)

	done    chan struct{}
	stopped chan struct{}
	running bool
}

// NewWatcher creates a new asset watcher.
func NewWatcher(cache CacheInvalidator, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		logger:  logger,
		watcher: fw,
		cache:   cache,
		paths:   make(map[string]struct{}),
		dirs:    make(map[string]int),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// SetOnChange sets a callback run after an asset's cache entry is dropped.
func (w *Watcher) SetOnChange(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Watch adds an asset file. The containing directory is watched so editors
// that replace the file by rename are still seen.
func (w *Watcher) Watch(path string) error {
	if path == "" {
		return nil
	}
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; ok {
		return nil
	}

	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.paths[path] = struct{}{}

	w.logger.Debug("watching asset", "path", path)
	return nil
}

// Unwatch removes an asset file.
func (w *Watcher) Unwatch(path string) {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; !ok {
		return
	}
	delete(w.paths, path)

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

// Watched reports whether path is being watched.
func (w *Watcher) Watched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.paths[filepath.Clean(path)]
	return ok
}

// Start begins processing file events.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true

	go w.watch()
	w.logger.Debug("asset watcher started")
}

// watch is the main watch loop.
func (w *Watcher) watch() {
	defer close(w.stopped)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.handle(filepath.Clean(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("asset watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(path string) {
	w.mu.Lock()
	_, ok := w.paths[path]
	fn := w.onChange
	w.mu.Unlock()

	if !ok {
		return
	}

	w.logger.Debug("asset changed, invalidating cache", "path", path)
	w.cache.InvalidateCache(path)
	if fn != nil {
		fn(path)
	}
}

// Stop stops the watcher and closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	close(w.done)
	w.mu.Unlock()

	<-w.stopped
	w.logger.Debug("asset watcher stopped")
	return w.watcher.Close()
}
