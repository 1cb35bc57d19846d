package identity

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// watchDir calls callback once a burst of changes in directory has settled.
// Closing the returned watcher stops both goroutines.
func watchDir(
	directory string,
	logger *slog.Logger,
	callback func(),
) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = watcher.Add(directory)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	reload := make(chan struct{})
	go scheduleReload(reload, callback)
	go handleWatcher(watcher, reload, logger)
	return watcher, nil
}

func handleWatcher(
	watcher *fsnotify.Watcher,
	reload chan<- struct{},
	logger *slog.Logger,
) {
	defer close(reload)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write | fsnotify.Remove | fsnotify.Create | fsnotify.Rename) {
				reload <- struct{}{}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("key directory watcher error", "error", err)
		}
	}
}

func scheduleReload(reload <-chan struct{}, callback func()) {
	var timer *time.Timer
	var c <-chan time.Time
	for {
		select {
		case _, ok := <-reload:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if timer != nil {
				timer.Reset(reloadDebounce)
			} else {
				timer = time.NewTimer(reloadDebounce)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			callback()
		}
	}
}
