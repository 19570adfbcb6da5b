package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher reloads the config file when it changes on disk and hands the new
// config to a callback. Only runtime-tunable settings (debug, log_file) are
// expected to take effect without a restart; the callback decides.
type Watcher struct {
	path     string
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	lastMod time.Time
	stopCh  chan struct{}
}

// NewWatcher starts watching path. current is the config the process booted
// with; it becomes the "old" value of the first change notification.
func NewWatcher(path string, current *Config, onChange func(old, new *Config)) *Watcher {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		current:  current,
		stopCh:   make(chan struct{}),
	}
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	w.start()
	return w
}

// Stop terminates the watcher goroutine.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

func (w *Watcher) start() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		w.startPolling()
		return
	}
	if err := watcher.Add(w.path); err != nil {
		log.WithError(err).WithField("path", w.path).Warn("failed to watch config file, falling back to polling")
		watcher.Close()
		w.startPolling()
		return
	}
	// Watch the directory too so atomic replace-by-rename is caught.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		log.WithError(err).WithField("dir", filepath.Dir(w.path)).Warn("failed to watch config directory")
	}

	log.WithField("path", w.path).Info("config watcher started using fsnotify")

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		const debounceDelay = 100 * time.Millisecond

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, w.checkAndReload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watcher error")
			case <-w.stopCh:
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()
}

func (w *Watcher) startPolling() {
	ticker := time.NewTicker(5 * time.Second)
	log.WithField("interval", "5s").Info("config watcher started using polling")

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.checkAndReload()
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *Watcher) checkAndReload() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}

	w.mu.Lock()
	stale := info.ModTime().After(w.lastMod)
	w.mu.Unlock()
	if !stale {
		return
	}

	next, err := Load(w.path)
	if err != nil {
		log.WithError(err).WithField("path", w.path).Warn("failed to reload config, keeping previous")
		return
	}
	if err := next.Validate(); err != nil {
		log.WithError(err).WithField("path", w.path).Warn("reloaded config is invalid, keeping previous")
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = next
	w.lastMod = info.ModTime()
	w.mu.Unlock()

	logChanges(old, next)
	if w.onChange != nil {
		w.onChange(old, next)
	}
}

func logChanges(old, next *Config) {
	if old.Debug != next.Debug {
		log.WithFields(log.Fields{"field": "debug", "old": old.Debug, "new": next.Debug}).Info("config changed")
	}
	if old.LogFile != next.LogFile {
		log.WithFields(log.Fields{"field": "log_file", "old": old.LogFile, "new": next.LogFile}).Info("config changed")
	}
	if old.MinIntervalMin != next.MinIntervalMin || old.MaxIntervalMin != next.MaxIntervalMin {
		log.WithFields(log.Fields{
			"field": "interval_bounds",
			"old":   []int{old.MinIntervalMin, old.MaxIntervalMin},
			"new":   []int{next.MinIntervalMin, next.MaxIntervalMin},
		}).Info("config changed (takes effect after restart)")
	}
}
