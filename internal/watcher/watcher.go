// file: internal/watcher/watcher.go
// version: 3.0.0
// guid: b2c3d4e5-f6a7-8901-bcde-f23456789012

package watcher

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jdfalk/anime-organizer/internal/normalize"
)

// DefaultExtensions are the video containers watched when none are given.
var DefaultExtensions = []string{"mkv", "mp4", "avi"}

// DefaultDebounce is the default debounce period.
const DefaultDebounce = 5 * time.Second

// Callback is invoked after the debounce period with the anime folder that
// saw changes.
type Callback func(rootDir string)

// Watcher monitors anime folders for video file changes and invokes a
// callback per changed folder after a debounce period.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	roots      []string
	extensions map[string]bool
	debounce   time.Duration
	callback   Callback
	stop       chan struct{}
	stopped    chan struct{}
	mu         sync.Mutex
	timer      *time.Timer
	pending    map[string]bool
	running    bool
}

// New creates a Watcher. Pass 0 for debounce to use DefaultDebounce and no
// extensions to use DefaultExtensions.
func New(callback Callback, debounce time.Duration, extensions ...string) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts["."+strings.TrimPrefix(strings.ToLower(e), ".")] = true
	}
	return &Watcher{
		extensions: exts,
		debounce:   debounce,
		callback:   callback,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
		pending:    make(map[string]bool),
	}
}

// Start begins watching every root recursively. It is safe to call only once.
// Roots that do not exist are logged and skipped.
func (w *Watcher) Start(roots ...string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw

	for _, root := range roots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			log.Printf("[WARN] watcher: skipping %s: not a directory", root)
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = root
		}
		w.roots = append(w.roots, filepath.Clean(abs))
		if err := w.addRecursive(abs); err != nil {
			fsw.Close()
			return err
		}
	}

	go w.eventLoop()
	return nil
}

// Stop gracefully shuts down the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	<-w.stopped

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if d.IsDir() {
			if watchErr := w.fsWatcher.Add(path); watchErr != nil {
				log.Printf("[WARN] watcher: cannot watch %s: %v", path, watchErr)
			}
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[ERROR] watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// On Create, if it's a directory, watch it recursively.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
		}
	}

	relevant := event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0
	if !relevant || !w.IsVideoFile(event.Name) {
		return
	}
	if normalize.IsExtraVideo(filepath.Base(event.Name)) {
		return
	}

	root := w.rootOf(event.Name)
	if root == "" {
		return
	}
	w.scheduleScan(root)
}

// rootOf returns the watched root containing path.
func (w *Watcher) rootOf(path string) string {
	path = filepath.Clean(path)
	best := ""
	for _, r := range w.roots {
		if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
			if len(r) > len(best) {
				best = r
			}
		}
	}
	return best
}

func (w *Watcher) scheduleScan(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[root] = true
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		roots := make([]string, 0, len(w.pending))
		for r := range w.pending {
			roots = append(roots, r)
		}
		w.pending = make(map[string]bool)
		w.mu.Unlock()

		sort.Strings(roots)
		for _, r := range roots {
			log.Printf("[INFO] watcher: triggering rescan of %s", r)
			if w.callback != nil {
				w.callback(r)
			}
		}
	})
}

// IsVideoFile reports whether name has one of the watched extensions.
func (w *Watcher) IsVideoFile(name string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(name))]
}
