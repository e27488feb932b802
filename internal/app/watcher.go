package app

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/tscat/internal/debug"
)

const defaultDebounce = 200 * time.Millisecond

// FileWatcher reports changes to individual files. It watches their parent
// directories because editors usually replace a file instead of writing it.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watching map[string]bool // cleaned file paths
	notify   chan string
	done     chan struct{}
	debounce time.Duration
}

func NewFileWatcher(debounce time.Duration) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fw := &FileWatcher{
		watcher:  w,
		watching: make(map[string]bool),
		notify:   make(chan string, 4),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go fw.run()
	return fw, nil
}

func (fw *FileWatcher) run() {
	lastEvent := make(map[string]time.Time)
	ticker := time.NewTicker(fw.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(event.Name)
			fw.mu.Lock()
			if fw.watching[name] {
				lastEvent[name] = time.Now()
				debug.Log(debug.APP, "FSNotify event: %s on %s", event.Op, name)
			}
			fw.mu.Unlock()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			debug.Log(debug.APP, "FSNotify error: %v", err)

		case now := <-ticker.C:
			for name, at := range lastEvent {
				if now.Sub(at) < fw.debounce {
					continue
				}
				select {
				case fw.notify <- name:
					debug.Log(debug.APP, "File change notification: %s", name)
				default:
				}
				delete(lastEvent, name)
			}
		}
	}
}

// Watch adds a file to the watch list. The file need not exist yet.
func (fw *FileWatcher) Watch(path string) error {
	path = filepath.Clean(path)
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.watching[path] {
		return nil
	}
	if err := fw.watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	fw.watching[path] = true
	debug.Log(debug.APP, "Now watching file: %s", path)
	return nil
}

// Notify receives the path of every file that changed, debounced.
func (fw *FileWatcher) Notify() <-chan string { return fw.notify }

func (fw *FileWatcher) Close() error {
	close(fw.done)
	return fw.watcher.Close()
}
