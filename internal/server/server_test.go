package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/outpost-dev/outpost/internal/frame"
	"github.com/outpost-dev/outpost/internal/proto"
	"github.com/outpost-dev/outpost/internal/session"
	"github.com/outpost-dev/outpost/internal/transport"
	"github.com/stretchr/testify/require"
)

func newTestPair(t *testing.T) (*session.Session, func()) {
	t.Helper()
	clientT, serverT := transport.Pipe(frame.PlainCodec{})

	sRead, sWrite := serverT.Split()
	d := New(sRead, sWrite, NewRegistry(0, false))
	go d.Run()

	cRead, cWrite := clientT.Split()
	sess := session.New(cRead, cWrite, session.Options{})

	return sess, func() { sess.Close(); serverT.Close() }
}

func next(t *testing.T, seq *session.ResponseSeq) proto.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, ok, err := seq.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	return resp
}

func TestFileWriteReadExistsEndToEnd(t *testing.T) {
	sess, cleanup := newTestPair(t)
	defer cleanup()

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")

	seq, err := sess.Send(proto.RequestPayload{Kind: proto.KindFileWriteText, FileWriteText: &proto.FileWriteTextParams{Path: path, Text: "hi"}})
	require.NoError(t, err)
	resp := next(t, seq)
	require.Equal(t, proto.RKindOK, resp.Payload.Kind)

	seq, err = sess.Send(proto.RequestPayload{Kind: proto.KindFileReadText, FileReadText: &proto.FileReadParams{Path: path}})
	require.NoError(t, err)
	resp = next(t, seq)
	require.Equal(t, proto.RKindText, resp.Payload.Kind)
	require.Equal(t, "hi", resp.Payload.Text.Text)

	seq, err = sess.Send(proto.RequestPayload{Kind: proto.KindExists, Exists: &proto.ExistsParams{Path: path}})
	require.NoError(t, err)
	resp = next(t, seq)
	require.True(t, resp.Payload.Exists.Exists)
}

func TestFileReadMissingReturnsNotFoundError(t *testing.T) {
	sess, cleanup := newTestPair(t)
	defer cleanup()

	seq, err := sess.Send(proto.RequestPayload{Kind: proto.KindFileRead, FileRead: &proto.FileReadParams{Path: "/nonexistent/path/x"}})
	require.NoError(t, err)
	resp := next(t, seq)
	require.Equal(t, proto.RKindError, resp.Payload.Kind)
	require.Equal(t, "not_found", resp.Payload.Error.Kind)
}

func TestSystemInfoEndToEnd(t *testing.T) {
	sess, cleanup := newTestPair(t)
	defer cleanup()

	seq, err := sess.Send(proto.RequestPayload{Kind: proto.KindSystemInfo})
	require.NoError(t, err)
	resp := next(t, seq)
	require.Equal(t, proto.RKindSystemInfo, resp.Payload.Kind)
	require.NotEmpty(t, resp.Payload.SystemInfo.OS)
}

func TestProcSpawnEchoEndToEnd(t *testing.T) {
	sess, cleanup := newTestPair(t)
	defer cleanup()

	seq, err := sess.Send(proto.RequestPayload{Kind: proto.KindProcSpawn, ProcSpawn: &proto.ProcSpawnParams{Cmd: "echo", Args: []string{"hi"}}})
	require.NoError(t, err)

	var sawSpawned, sawDone bool
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		resp, ok, err := seq.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		switch resp.Payload.Kind {
		case proto.RKindProcSpawned:
			sawSpawned = true
		case proto.RKindProcDone:
			sawDone = true
		}
		if resp.Payload.IsTerminal() {
			break
		}
	}
	require.True(t, sawSpawned)
	require.True(t, sawDone)
}

func TestWatchThenUnwatchEndsCleanly(t *testing.T) {
	sess, cleanup := newTestPair(t)
	defer cleanup()

	dir := t.TempDir()
	seq, err := sess.Send(proto.RequestPayload{Kind: proto.KindWatch, Watch: &proto.WatchParams{Path: dir, Poll: true}})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("x"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var sawCreated bool
	for i := 0; i < 5; i++ {
		resp, ok, err := seq.Next(ctx)
		if err != nil || !ok {
			break
		}
		if resp.Payload.Kind == proto.RKindChanged && resp.Payload.Changed.Kind == "created" {
			sawCreated = true
			break
		}
	}
	require.True(t, sawCreated)

	unwatchSeq, err := sess.Send(proto.RequestPayload{Kind: proto.KindUnwatch, Unwatch: &proto.UnwatchParams{Path: dir}})
	require.NoError(t, err)
	resp = next(t, unwatchSeq)
	require.Equal(t, proto.RKindOK, resp.Payload.Kind)
}

func TestBatchRequestPreservesSubPayloadOrder(t *testing.T) {
	sess, cleanup := newTestPair(t)
	defer cleanup()

	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))

	seq, err := sess.Send(proto.RequestPayload{Kind: proto.KindBatch, Batch: []proto.RequestPayload{
		{Kind: proto.KindExists, Exists: &proto.ExistsParams{Path: a}},
		{Kind: proto.KindExists, Exists: &proto.ExistsParams{Path: b}},
	}})
	require.NoError(t, err)

	var results []bool
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		resp, ok, err := seq.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, proto.RKindExists, resp.Payload.Kind)
		results = append(results, resp.Payload.Exists.Exists)
	}
	require.Equal(t, []bool{true, false}, results, "batch responses must arrive in sub-payload-index order")
}

// TestConcurrentExistsRequests exercises two callers issuing 100 exists
// requests each against the same session, confirming every response lands
// in its own sequence without cross-talk.
func TestConcurrentExistsRequests(t *testing.T) {
	sess, cleanup := newTestPair(t)
	defer cleanup()

	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	var wg sync.WaitGroup
	for caller := 0; caller < 2; caller++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				seq, err := sess.Send(proto.RequestPayload{Kind: proto.KindExists, Exists: &proto.ExistsParams{Path: path}})
				require.NoError(t, err)
				resp := next(t, seq)
				require.True(t, resp.Payload.Exists.Exists)
			}
		}()
	}
	wg.Wait()
}
