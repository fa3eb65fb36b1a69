// Package watch reports changes to a fixed set of configuration files. It
// watches each file's directory so editors that save by rename are seen,
// and coalesces bursts of events into a single change notification.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 250 * time.Millisecond

var (
	// ErrNoFiles indicates no files were configured for watching.
	ErrNoFiles = errors.New("no files configured for watching")

	// ErrNothingWatchable indicates none of the files' directories exist.
	ErrNothingWatchable = errors.New("no watched file has an existing directory")
)

// Config configures a Watcher.
type Config struct {
	// Files are the paths whose create, write, remove and rename events
	// are reported. They need not exist yet.
	Files []string

	// Debounce is the quiet period after the last event. Default is 250ms.
	Debounce time.Duration
}

// Change is one coalesced notification.
type Change struct {
	Paths []string // sorted, deduplicated
	Time  time.Time
}

// Watcher monitors configuration files using fsnotify.
type Watcher struct {
	debounce time.Duration
	watcher  *fsnotify.Watcher
	files    map[string]bool
	dirs     []string

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	out     chan Change
	stopped bool
}

// New creates a Watcher for cfg.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Files) == 0 {
		return nil, ErrNoFiles
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	files := make(map[string]bool, len(cfg.Files))
	seenDirs := make(map[string]bool)
	var dirs []string
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", f, err)
		}
		files[abs] = true
		if dir := filepath.Dir(abs); !seenDirs[dir] {
			seenDirs[dir] = true
			dirs = append(dirs, dir)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		debounce: cfg.Debounce,
		watcher:  fw,
		files:    files,
		dirs:     dirs,
		pending:  make(map[string]bool),
	}, nil
}

// Start begins watching. The returned channel is closed when ctx is done.
// Directories that do not exist are skipped; if none exist Start fails.
func (w *Watcher) Start(ctx context.Context) (<-chan Change, error) {
	added := 0
	for _, dir := range w.dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			_ = w.watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		added++
	}
	if added == 0 {
		_ = w.watcher.Close()
		return nil, ErrNothingWatchable
	}

	w.out = make(chan Change, 1)
	go w.processEvents(ctx)
	return w.out, nil
}

// =============================================================================
// Event Processing
// =============================================================================

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.cleanup()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	if !w.files[name] {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	w.schedule(name)
}

// schedule records path and restarts the debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.pending[path] = true

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.emit)
}

// emit sends the pending paths as one Change. When a change is already
// queued the new paths are dropped; the queued one triggers the same work.
func (w *Watcher) emit() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || len(w.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	w.pending = make(map[string]bool)

	select {
	case w.out <- Change{Paths: paths, Time: time.Now()}:
	default:
	}
}

func (w *Watcher) cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	_ = w.watcher.Close()
	close(w.out)
}
