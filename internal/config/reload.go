package config

import (
	"time"

	"github.com/fsnotify/fsnotify"

	"ridgelb/internal/acme"
	applog "ridgelb/internal/log"
)

const logApp = "config"

// Watcher watches the TOML config file for changes and republishes a
// rebuilt RuntimeConfig into Cell on every change. A parse or validate
// failure is logged and the previous snapshot is kept.
type Watcher struct {
	Path      string
	Cell      *Cell
	AcmeStore *acme.Store

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

func NewWatcher(path string, cell *Cell, acmeStore *acme.Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		Path:      path,
		Cell:      cell,
		AcmeStore: acmeStore,
		watcher:   fsw,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Run blocks, debouncing bursts of filesystem events into a single
// rebuild, until Stop is called.
func (w *Watcher) Run() {
	defer close(w.done)
	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(250 * time.Millisecond)
			} else {
				debounce.Reset(250 * time.Millisecond)
			}
			debounceC = debounce.C
		case <-debounceC:
			w.reload()
			debounceC = nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			applog.Error(logApp, "watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	fileCfg, err := Load(w.Path)
	if err != nil {
		applog.Error(logApp, "reload failed, keeping previous snapshot: %v", err)
		return
	}
	rc, err := Build(fileCfg, w.AcmeStore)
	if err != nil {
		applog.Error(logApp, "rebuild failed, keeping previous snapshot: %v", err)
		return
	}
	w.Cell.Store(rc)
	applog.Info(logApp, "reloaded %s", w.Path)
}

func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
	w.watcher.Close()
}
