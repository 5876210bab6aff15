package watchmgr

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/outpost-dev/outpost/internal/proto"
	"github.com/stretchr/testify/require"
)

type collectSink struct {
	mu      sync.Mutex
	changed []proto.ChangedPayload
	errs    []string
}

func (s *collectSink) Changed(p proto.ChangedPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = append(s.changed, p)
}

func (s *collectSink) Errorf(kind, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, kind)
}

func (s *collectSink) snapshot() ([]proto.ChangedPayload, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := make([]proto.ChangedPayload, len(s.changed))
	copy(c, s.changed)
	e := make([]string, len(s.errs))
	copy(e, s.errs)
	return c, e
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatchDetectsCreatedFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(0, false)
	sink := &collectSink{}
	require.NoError(t, m.Watch(proto.WatchParams{Path: dir, Poll: true}, sink))
	defer m.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644))

	waitFor(t, 3*time.Second, func() bool {
		changed, _ := sink.snapshot()
		for _, c := range changed {
			if c.Kind == "created" {
				return true
			}
		}
		return false
	})
}

func TestUnwatchStopsFurtherEvents(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(0, false)
	sink := &collectSink{}
	require.NoError(t, m.Watch(proto.WatchParams{Path: dir, Poll: true}, sink))

	require.True(t, m.Unwatch(dir))
	require.False(t, m.Unwatch(dir), "second unwatch on the same path reports not-found")
}

func TestOnlyFilterRestrictsKinds(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(0, false)
	sink := &collectSink{}
	require.NoError(t, m.Watch(proto.WatchParams{Path: dir, Poll: true, Only: []string{"removed"}}, sink))
	defer m.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)

	changed, _ := sink.snapshot()
	for _, c := range changed {
		require.Equal(t, "removed", c.Kind)
	}
}

func TestManagerCloseStopsAllWatches(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	m := NewManager(0, false)
	sink := &collectSink{}
	require.NoError(t, m.Watch(proto.WatchParams{Path: dir1, Poll: true}, sink))
	require.NoError(t, m.Watch(proto.WatchParams{Path: dir2, Poll: true}, sink))

	m.Close()
	// Creating events after close must not panic.
	require.NotPanics(t, func() {
		os.WriteFile(filepath.Join(dir1, "after-close.txt"), []byte("x"), 0o644)
		time.Sleep(100 * time.Millisecond)
	})
}

func TestDiffSnapshots(t *testing.T) {
	now := time.Now()
	prev := snapshot{"a": now, "b": now}
	cur := snapshot{"b": now.Add(time.Second), "c": now}

	var kinds []string
	queue := func(path, kind string, details *proto.ChangeDetails) {
		kinds = append(kinds, kind)
	}
	diffSnapshots(prev, cur, queue)

	require.Contains(t, kinds, "created") // c
	require.Contains(t, kinds, "modified") // b
	require.Contains(t, kinds, "removed") // a
}
