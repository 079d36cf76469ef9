package ingest

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers a rebuild callback when trail files change. Bursts of
// filesystem events (editors, rsync) are debounced into one trigger.
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange func()

	fs   *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher creates a watcher over the trail directory. The callback runs
// on the watcher goroutine; long rebuilds should hand off to their own.
func NewWatcher(dir string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, err
	}
	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
		fs:       fs,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			log.Printf("Trail data changed: %s", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: trail watcher error: %v", err)
		case <-fire:
			timer = nil
			fire = nil
			w.onChange()
		}
	}
}

// relevant filters for writes, creates, renames and removals of .geojson
// and .json files.
func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".geojson" || ext == ".json"
}
