package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mvp-joe/dirindex/internal/fsenum"
	"github.com/mvp-joe/dirindex/internal/roots"
)

// DefaultDebounce is the quiet period before accumulated changes are reported.
const DefaultDebounce = 500 * time.Millisecond

// dirWatcher implements DirWatcher on top of fsnotify.
type dirWatcher struct {
	watcher       *fsnotify.Watcher
	ignore        *fsenum.IgnoreMatcher // Names never watched
	boundary      func(dir string) bool // Directories watched without their subdirectories
	debounceTime  time.Duration         // Quiet period before firing callback
	callback      func(dirs []string)   // Callback to invoke with changed directories
	ctx           context.Context
	cancel        context.CancelFunc
	paused        bool
	pausedMu      sync.RWMutex
	watched       map[string]bool // Directories currently watched
	watchedMu     sync.Mutex
	accumulated   map[string]bool // Changed directories since the last callback
	accumulatedMu sync.Mutex
	debounceTimer *time.Timer
	timerMu       sync.Mutex
	stopOnce      sync.Once
	doneCh        chan struct{}
}

// DirWatcherOption configures a DirWatcher.
type DirWatcherOption func(*dirWatcher)

// WithBoundary stops recursion at directories for which fn returns true.
// Such a directory is watched itself, so its removal is still reported, but
// nothing below it is watched or reported.
func WithBoundary(fn func(dir string) bool) DirWatcherOption {
	return func(dw *dirWatcher) { dw.boundary = fn }
}

// NewDirWatcher creates a watcher over roots. Directories whose name matches
// ignore are neither watched nor reported. debounce <= 0 uses DefaultDebounce.
// Roots that do not exist are skipped.
func NewDirWatcher(rootDirs []string, ignore *fsenum.IgnoreMatcher, debounce time.Duration, opts ...DirWatcherOption) (DirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dw := &dirWatcher{
		watcher:      watcher,
		ignore:       ignore,
		debounceTime: debounce,
		watched:      make(map[string]bool),
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(dw)
	}

	for _, root := range rootDirs {
		if err := dw.Watch(root); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return dw, nil
}

// Start begins watching for directory changes.
func (dw *dirWatcher) Start(ctx context.Context, callback func(dirs []string)) error {
	if callback == nil {
		return nil
	}

	dw.callback = callback
	dw.ctx, dw.cancel = context.WithCancel(ctx)

	go dw.watch()
	return nil
}

// Watch adds root and everything below it. Watching an already watched tree
// again picks up boundaries that changed since. A missing root is skipped.
func (dw *dirWatcher) Watch(root string) error {
	return dw.addDirectoriesRecursively(root)
}

// Stop stops the watcher.
func (dw *dirWatcher) Stop() error {
	var err error
	dw.stopOnce.Do(func() {
		if dw.cancel != nil {
			dw.cancel()
			<-dw.doneCh
		} else {
			close(dw.doneCh)
		}
		err = dw.watcher.Close()
	})
	return err
}

// Pause stops firing callbacks but continues accumulating events.
func (dw *dirWatcher) Pause() {
	dw.pausedMu.Lock()
	defer dw.pausedMu.Unlock()
	dw.paused = true
}

// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
func (dw *dirWatcher) Resume() {
	dw.pausedMu.Lock()
	wasPaused := dw.paused
	dw.paused = false
	dw.pausedMu.Unlock()

	if wasPaused {
		dw.flush()
	}
}

// watch is the main event loop.
func (dw *dirWatcher) watch() {
	defer close(dw.doneCh)

	fireCh := make(chan struct{}, 1)

	for {
		select {
		case <-dw.ctx.Done():
			dw.stopDebounceTimer()
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dir, changed := dw.classifyEvent(event)
			if !changed {
				continue
			}

			dw.accumulatedMu.Lock()
			dw.accumulated[dir] = true
			dw.accumulatedMu.Unlock()

			dw.resetDebounceTimer(fireCh)

		case <-fireCh:
			dw.pausedMu.RLock()
			paused := dw.paused
			dw.pausedMu.RUnlock()
			if !paused {
				dw.flush()
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Directory watcher error: %v", err)
		}
	}
}

// classifyEvent decides whether event changed the directory structure and
// returns the directory to rescan.
func (dw *dirWatcher) classifyEvent(event fsnotify.Event) (string, bool) {
	if dw.ignore.IsIgnored(filepath.Base(event.Name)) {
		return "", false
	}
	if dw.isBoundary(filepath.Dir(event.Name)) {
		return "", false
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(event.Name)
		if err != nil || !info.IsDir() {
			return "", false
		}
		if err := dw.addDirectoriesRecursively(event.Name); err != nil {
			log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
		}
		return event.Name, true

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// The path is gone, so only the watch set tells whether it was a
		// directory.
		dw.watchedMu.Lock()
		wasDir := dw.watched[event.Name]
		if wasDir {
			for p := range dw.watched {
				if roots.IsUnder(p, event.Name) {
					delete(dw.watched, p)
				}
			}
		}
		dw.watchedMu.Unlock()
		return event.Name, wasDir
	}
	return "", false
}

// flush fires the callback with everything accumulated so far.
func (dw *dirWatcher) flush() {
	dw.accumulatedMu.Lock()
	if len(dw.accumulated) == 0 {
		dw.accumulatedMu.Unlock()
		return
	}
	dirs := make([]string, 0, len(dw.accumulated))
	for dir := range dw.accumulated {
		dirs = append(dirs, dir)
	}
	dw.accumulated = make(map[string]bool)
	dw.accumulatedMu.Unlock()

	slices.Sort(dirs)
	if dw.callback != nil {
		dw.callback(dirs)
	}
}

// resetDebounceTimer resets the debounce timer, properly stopping the old one.
func (dw *dirWatcher) resetDebounceTimer(fireCh chan struct{}) {
	dw.timerMu.Lock()
	defer dw.timerMu.Unlock()

	if dw.debounceTimer != nil {
		dw.debounceTimer.Stop()
	}
	dw.debounceTimer = time.AfterFunc(dw.debounceTime, func() {
		select {
		case fireCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists.
func (dw *dirWatcher) stopDebounceTimer() {
	dw.timerMu.Lock()
	defer dw.timerMu.Unlock()

	if dw.debounceTimer != nil {
		dw.debounceTimer.Stop()
		dw.debounceTimer = nil
	}
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (dw *dirWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				if errors.Is(err, fs.ErrNotExist) {
					log.Printf("Warning: not watching %s: directory does not exist", rootPath)
					return nil
				}
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != rootPath && dw.ignore.IsIgnored(info.Name()) {
			return filepath.SkipDir
		}

		if err := dw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
			return nil
		}
		dw.watchedMu.Lock()
		dw.watched[path] = true
		dw.watchedMu.Unlock()

		if dw.isBoundary(path) {
			return filepath.SkipDir
		}
		return nil
	})
}

func (dw *dirWatcher) isBoundary(dir string) bool {
	return dw.boundary != nil && dw.boundary(dir)
}
