package watchmgr

import (
	"os"
	"path/filepath"
	"time"

	"github.com/outpost-dev/outpost/internal/proto"
)

// snapshot is a path → mtime map used to diff successive directory walks.
type snapshot map[string]time.Time

func (w *watch) scan() (snapshot, error) {
	snap := make(snapshot)
	fi, err := os.Stat(w.path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		snap[w.path] = fi.ModTime()
		return snap, nil
	}
	walk := filepath.Walk
	err = walk(w.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && !w.recursive && path != w.path {
			return filepath.SkipDir
		}
		snap[path] = info.ModTime()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// startPolling is the fallback watcher, modeled on a ticker-driven poll
// loop: stat the tree on an interval and diff
// against the previous snapshot to synthesize created/removed/modified
// events.
func (w *watch) startPolling(debounce time.Duration) error {
	initial, err := w.scan()
	if err != nil {
		return err
	}
	go w.pollLoop(initial, debounce)
	return nil
}

func (w *watch) pollLoop(prev snapshot, debounce time.Duration) {
	scanInterval := debounce / DefaultTickFraction
	if scanInterval <= 0 {
		scanInterval = 125 * time.Millisecond
	}
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cur, err := w.scan()
			if err != nil {
				w.sink.Errorf("io", "poll %s: %v", w.path, err)
				return
			}
			diffSnapshots(prev, cur, w.queue)
			w.flush()
			prev = cur

		case <-w.done:
			return
		}
	}
}

// diffSnapshots compares two successive directory scans and queues a
// created/removed/modified event for every path whose presence or mtime
// changed.
func diffSnapshots(prev, cur snapshot, queue func(path, kind string, details *proto.ChangeDetails)) {
	for path, mtime := range cur {
		prevMtime, existed := prev[path]
		if !existed {
			queue(path, "created", nil)
		} else if !mtime.Equal(prevMtime) {
			queue(path, "modified", nil)
		}
	}
	for path := range prev {
		if _, stillThere := cur[path]; !stillThere {
			queue(path, "removed", nil)
		}
	}
}
