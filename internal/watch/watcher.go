// Package watch reports debounced changes to scenario and workflow files.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fnprobe/pkg/logging"
)

// Operation is the kind of change seen on a file.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Change is one debounced change to a watched file.
type Change struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Watcher watches a fixed set of files. Editors often replace files instead
// of writing them in place, so the parent directories are watched and
// events are filtered by path.
type Watcher struct {
	mu sync.Mutex

	files            map[string]bool
	debounceInterval time.Duration
	watcher          *fsnotify.Watcher
	pending          map[string]*debounceEntry
	stopCh           chan struct{}
	running          bool
}

type debounceEntry struct {
	change Change
	timer  *time.Timer
}

// New creates a watcher for paths. A zero debounce means 500ms.
func New(paths []string, debounceInterval time.Duration) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		files[filepath.Clean(p)] = true
	}
	return &Watcher{
		files:            files,
		debounceInterval: debounceInterval,
		pending:          make(map[string]*debounceEntry),
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching and sends changes on changes until ctx is done or
// Stop is called.
func (w *Watcher) Start(ctx context.Context, changes chan<- Change) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	w.running = true
	w.mu.Unlock()

	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			w.Stop()
			return err
		}
		logging.Debug("Watch", "Watching directory: %s", dir)
	}

	go w.processEvents(ctx, changes)
	return nil
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	if w.watcher != nil {
		w.watcher.Close()
	}
	for key, entry := range w.pending {
		entry.timer.Stop()
		delete(w.pending, key)
	}
}

func (w *Watcher) processEvents(ctx context.Context, changes chan<- Change) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, changes)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watch", err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, changes chan<- Change) {
	path := filepath.Clean(event.Name)
	if !w.files[path] {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		op = OperationCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		op = OperationUpdate
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		op = OperationDelete
	default:
		return
	}
	w.debounce(Change{Path: path, Operation: op, Timestamp: time.Now()}, changes)
}

// debounce coalesces bursts of events on one path into a single change.
func (w *Watcher) debounce(change Change, changes chan<- Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry, ok := w.pending[change.Path]; ok {
		entry.timer.Stop()
		change.Operation = mergeOperations(entry.change.Operation, change.Operation)
	}

	key := change.Path
	timer := time.AfterFunc(w.debounceInterval, func() {
		w.mu.Lock()
		entry, ok := w.pending[key]
		if ok {
			delete(w.pending, key)
		}
		w.mu.Unlock()

		if ok {
			select {
			case changes <- entry.change:
				logging.Debug("Watch", "Emitted %s for %s", entry.change.Operation, entry.change.Path)
			default:
				logging.Warn("Watch", "Change channel full, dropping event for %s", entry.change.Path)
			}
		}
	})
	w.pending[key] = &debounceEntry{change: change, timer: timer}
}

// mergeOperations folds two successive operations into one.
func mergeOperations(old, new Operation) Operation {
	if old == OperationCreate {
		if new == OperationDelete {
			return OperationDelete
		}
		return OperationCreate
	}
	// Editors that save via rename produce delete then create
	if old == OperationDelete && new == OperationCreate {
		return OperationUpdate
	}
	return new
}
