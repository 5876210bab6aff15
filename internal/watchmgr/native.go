package watchmgr

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// startNative builds an fsnotify watcher rooted at w.path and starts the
// event loop + debounce-flush ticker. Returns an error if fsnotify can't
// initialize a native watcher (caller falls back to polling).
func (w *watch) startNative(debounce time.Duration) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addRecursive(fsw, w.path, w.recursive); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	go w.nativeLoop(debounce)
	return nil
}

func (w *watch) nativeLoop(debounce time.Duration) {
	ticker := time.NewTicker(debounce / DefaultTickFraction)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			kind := classify(ev.Op)
			// A newly created directory under a recursive watch needs its
			// own watch descriptor so future events inside it surface too.
			if kind == "created" && w.recursive && isDir(ev.Name) {
				w.fsw.Add(ev.Name)
			}
			w.queue(ev.Name, kind, nil)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sink.Errorf("io", "watch %s: %v", w.path, err)
			return

		case <-ticker.C:
			w.flush()

		case <-w.done:
			return
		}
	}
}
