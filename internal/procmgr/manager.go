// Package procmgr owns remote child processes and their PTYs, fanning
// stdout/stderr/exit events back through a ReplySink tagged with the
// request id that spawned them.
package procmgr

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/outpost-dev/outpost/internal/proto"
)

// chunkSize bounds how much stdout/stderr data is read per response chunk.
const chunkSize = 64 * 1024

// ReplySink is the narrow interface procmgr needs from a server-side reply
// handle: emit one more response tagged with the originating request.
type ReplySink interface {
	Send(proto.ResponsePayload) error
}

// discardSink silently absorbs payloads; it is swapped in for a persistent
// process once its owning connection closes, so its output is dropped from
// then on. No request kind re-attaches a detached process to a new sink.
type discardSink struct{}

func (discardSink) Send(proto.ResponsePayload) error { return nil }

// Manager is a server-wide registry of live processes, keyed by a process
// id independent of any one connection's request id space — persistent
// processes must survive past the connection (and therefore the request id
// space) that spawned them.
type Manager struct {
	mu     sync.Mutex
	procs  map[uint64]*Process
	nextID uint64
}

func NewManager() *Manager {
	return &Manager{procs: make(map[uint64]*Process)}
}

// Spawn starts cmd either under a PTY (if params.Pty is set) or with plain
// pipes, registers it, and launches the goroutines that drain its output
// and wait for exit. It returns synchronously once the OS process exists.
func (m *Manager) Spawn(params proto.ProcSpawnParams, sink ReplySink) (*Process, error) {
	cmd := exec.Command(params.Cmd, params.Args...)
	if params.Cwd != "" {
		cmd.Dir = params.Cwd
	}
	cmd.Env = buildEnv(params.Env)

	p := &Process{
		cmd:     params.Cmd,
		args:    params.Args,
		persist: params.Persist,
		done:    make(chan struct{}),
	}
	p.sink.Store(&sink)

	if params.Pty != nil {
		if err := p.startPty(cmd, params.Pty.Cols, params.Pty.Rows); err != nil {
			return nil, err
		}
	} else {
		if err := p.startPlain(cmd); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.nextID++
	p.id = m.nextID
	m.procs[p.id] = p
	m.mu.Unlock()

	// process-spawned must reach the client before any stdout/stderr/done
	// response drain's pump goroutines may emit, since they share the same
	// serialized writer and the client correlates by arrival order.
	sink.Send(proto.ResponsePayload{Kind: proto.RKindProcSpawned, ProcSpawned: &proto.ProcSpawnedPayload{ID: p.id}})

	go p.drain(m)

	return p, nil
}

// WriteStdin routes bytes to the child's stdin.
func (m *Manager) WriteStdin(id uint64, data []byte) error {
	p, ok := m.get(id)
	if !ok {
		return fmt.Errorf("procmgr: no such process %d", id)
	}
	return p.writeStdin(data)
}

// Resize adjusts a PTY-backed process's window size.
func (m *Manager) Resize(id uint64, rows, cols uint16) error {
	p, ok := m.get(id)
	if !ok {
		return fmt.Errorf("procmgr: no such process %d", id)
	}
	return p.resize(rows, cols)
}

// Kill signals the process (and its process group on POSIX) to terminate.
func (m *Manager) Kill(id uint64) error {
	p, ok := m.get(id)
	if !ok {
		return fmt.Errorf("procmgr: no such process %d", id)
	}
	return p.kill()
}

// List returns every live process this server owns, including ones spawned
// by other connections when they were marked persist=true.
func (m *Manager) List() []proto.ProcEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]proto.ProcEntry, 0, len(m.procs))
	for _, p := range m.procs {
		out = append(out, proto.ProcEntry{
			ID:      p.id,
			Cmd:     p.cmd,
			Args:    p.args,
			Persist: p.persist,
			Pty:     p.ptm != nil,
		})
	}
	return out
}

// Detach swaps a persistent process's sink for a discard sink so its
// output no longer attempts delivery to a dead connection, then returns
// without killing it. Non-persistent processes should be Killed instead.
func (m *Manager) Detach(id uint64) {
	if p, ok := m.get(id); ok {
		var s ReplySink = discardSink{}
		p.sink.Store(&s)
	}
}

// OnConnectionClose cleans up one process that belonged to a connection
// which just disconnected: persistent processes are detached so their
// output drops silently, everything else is killed since no session will
// ever observe its output or exit status again.
func (m *Manager) OnConnectionClose(id uint64) {
	p, ok := m.get(id)
	if !ok {
		return
	}
	if p.persist {
		m.Detach(id)
		return
	}
	p.kill()
}

func (m *Manager) get(id uint64) (*Process, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.procs[id]
	return p, ok
}

func (m *Manager) remove(id uint64) {
	m.mu.Lock()
	delete(m.procs, id)
	m.mu.Unlock()
}

func buildEnv(overrides map[string]string) []string {
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
