// Package watchmgr watches files and directories for changes and
// translates native filesystem events into change responses. It prefers
// fsnotify's native OS backend and falls back to a
// polling loop when the native watcher can't be constructed or the caller
// explicitly asks for polling.
package watchmgr

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/outpost-dev/outpost/internal/proto"
)

// DefaultDebounce and DefaultTickFraction are the default debounce settings:
// a 500ms debounce window, coalesced on a tick rate of one quarter of it.
const (
	DefaultDebounce    = 500 * time.Millisecond
	DefaultTickFraction = 4
)

// Sink receives change/error payloads for one watch. ResponseKind is
// always RKindChanged until the final call, which is either a clean close
// (no further call) or one RKindError delivered by Errorf.
type Sink interface {
	Changed(proto.ChangedPayload)
	Errorf(kind, format string, args ...any)
}

// Manager owns every active watch for one connection, keyed by the path
// that established it; unwatch ends the stream established by the most
// recent watch on that path for the same connection.
type Manager struct {
	debounce  time.Duration
	forcePoll bool

	mu      sync.Mutex
	watches map[string]*watch
}

// NewManager builds a Manager with the given debounce window. forcePoll
// makes every watch use the polling backend regardless of what the
// individual watch request asks for, matching outpostd's --poll/config
// watch.poll escape hatch for environments where the native backend
// misbehaves.
func NewManager(debounce time.Duration, forcePoll bool) *Manager {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Manager{debounce: debounce, forcePoll: forcePoll, watches: make(map[string]*watch)}
}

// Watch establishes a new watch on path and begins delivering change
// events to sink until Unwatch(path) is called, the watcher fails, or
// Close is called on the Manager.
func (m *Manager) Watch(params proto.WatchParams, sink Sink) error {
	debounce := m.debounce

	w := &watch{
		path:      params.Path,
		recursive: params.Recursive,
		only:      toSet(params.Only),
		except:    toSet(params.Except),
		sink:      sink,
		pending:   make(map[string]pendingEvent),
		done:      make(chan struct{}),
	}

	var err error
	if params.Poll || m.forcePoll {
		err = w.startPolling(debounce)
	} else {
		err = w.startNative(debounce)
		if err != nil {
			// Native backend unavailable (e.g. inotify instance limit);
			// fall back to polling.
			err = w.startPolling(debounce)
		}
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	if old, ok := m.watches[params.Path]; ok {
		old.stop()
	}
	m.watches[params.Path] = w
	m.mu.Unlock()

	return nil
}

// Unwatch ends the watch most recently established on path.
func (m *Manager) Unwatch(path string) bool {
	m.mu.Lock()
	w, ok := m.watches[path]
	if ok {
		delete(m.watches, path)
	}
	m.mu.Unlock()
	if ok {
		w.stop()
	}
	return ok
}

// Close stops every watch owned by this manager, as happens when the
// owning connection closes.
func (m *Manager) Close() {
	m.mu.Lock()
	watches := m.watches
	m.watches = make(map[string]*watch)
	m.mu.Unlock()
	for _, w := range watches {
		w.stop()
	}
}

func toSet(kinds []string) map[string]bool {
	if len(kinds) == 0 {
		return nil
	}
	s := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

type pendingEvent struct {
	kind proto.ChangedPayload
}

type watch struct {
	path      string
	recursive bool
	only      map[string]bool
	except    map[string]bool
	sink      Sink

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]pendingEvent

	stopOnce sync.Once
	done     chan struct{}
}

func (w *watch) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.fsw != nil {
			w.fsw.Close()
		}
	})
}

// allowed applies the only/except emission-time filters.
func (w *watch) allowed(kind string) bool {
	if w.only != nil && !w.only[kind] {
		return false
	}
	if w.except != nil && w.except[kind] {
		return false
	}
	return true
}

// queue records the latest event for path, replacing any pending event for
// the same path whatever its kind. The event loop started by
// startNative/startPolling flushes all pending events on every tick
// (debounce/DefaultTickFraction), so only events on one path that fall
// within the same tick are coalesced; events are not held for the full
// debounce window.
func (w *watch) queue(path string, kind string, details *proto.ChangeDetails) {
	if !w.allowed(kind) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = pendingEvent{kind: proto.ChangedPayload{
		Path:    path,
		Kind:    kind,
		Details: details,
	}}
}

func (w *watch) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]pendingEvent)
	w.mu.Unlock()

	now := time.Now().Unix()
	for _, ev := range batch {
		ev.kind.Unix = now
		w.sink.Changed(ev.kind)
	}
}

func classify(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "created"
	case op&fsnotify.Remove != 0:
		return "removed"
	case op&fsnotify.Write != 0:
		return "modified"
	case op&fsnotify.Rename != 0:
		return "renamed-from"
	case op&fsnotify.Chmod != 0:
		return "attribute-changed"
	default:
		return "other"
	}
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// addRecursive registers fsw on path and, if it's a directory and
// recursive is requested, every subdirectory beneath it — the same
// filepath.Walk idiom docker-compose's naiveNotify uses for its fsnotify
// fallback.
func addRecursive(fsw *fsnotify.Watcher, root string, recursive bool) error {
	fi, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !fi.IsDir() || !recursive {
		return fsw.Add(root)
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
