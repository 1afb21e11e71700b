package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/voxterm/internal/logging"
)

// debounce coalesces the burst of fsnotify events an editor save
// produces into one reload.
const debounce = 100 * time.Millisecond

// Watcher reloads the config file on change and publishes the result.
type Watcher struct {
	path string
	log  *logging.Logger

	fsw     *fsnotify.Watcher
	updates chan Config

	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}
}

// Watch starts watching path's directory. Watching the directory
// rather than the file survives the rename-over-save that most editors
// and atomic writers do.
func Watch(path string, log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		log:     log.WithComponent("config"),
		fsw:     fsw,
		updates: make(chan Config, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Updates delivers each successfully reloaded Config. Only the latest
// unconsumed update is kept.
func (w *Watcher) Updates() <-chan Config { return w.updates }

func (w *Watcher) run() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}
		case <-fire:
			timer = nil
			fire = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error: %v", err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		// Keep running on the previous config; a bad edit should not
		// kill the session.
		w.log.Warn("config reload failed, keeping previous: %v", err)
		return
	}
	w.log.Info("config reloaded: %s", w.path)

	// Replace any unconsumed update with the newest one.
	for {
		select {
		case w.updates <- cfg:
			return
		default:
			select {
			case <-w.updates:
			default:
			}
		}
	}
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.fsw.Close()
		<-w.done
	})
	return err
}
