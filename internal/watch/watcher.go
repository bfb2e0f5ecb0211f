package watch

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher monitors the dataset file and calls onChange after it settles.
// The parent directory is watched so rename-and-replace saves are seen.
type Watcher struct {
	path     string
	enabled  bool
	debounce time.Duration
	onChange func()

	mu    sync.Mutex
	timer *time.Timer
}

func New(path string, enabled bool, onChange func()) *Watcher {
	return &Watcher{path: filepath.Clean(path), enabled: enabled, debounce: defaultDebounce, onChange: onChange}
}

// Start begins watching until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.enabled {
		log.Println("watch: disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				w.stopTimer()
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if w.relevant(evt) {
					w.schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("watch: error path=%s err=%v", w.path, err)
			}
		}
	}()
	log.Printf("watch: watching path=%s", w.path)
	return nil
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != w.path {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// schedule coalesces bursts of events into one onChange call.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
