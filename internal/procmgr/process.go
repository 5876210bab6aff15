package procmgr

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/outpost-dev/outpost/internal/proto"
)

// Process is the in-memory record of one spawned child: its stdio and
// enough state to answer write_stdin, resize, kill, and list.
type Process struct {
	id      uint64
	cmd     string
	args    []string
	persist bool

	sink atomic.Value // holds ReplySink

	execCmd *exec.Cmd
	ptm     *os.File // non-nil when PTY-backed
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	stderr  io.ReadCloser

	mu      sync.Mutex
	killed  bool
	exited  bool
	done    chan struct{}
}

// ID is the process id reported in process-spawned and proc-list payloads.
func (p *Process) ID() uint64 { return p.id }

func (p *Process) startPty(cmd *exec.Cmd, cols, rows uint16) error {
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")
	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return err
	}
	p.execCmd = cmd
	p.ptm = ptm
	return nil
}

func (p *Process) startPlain(cmd *exec.Cmd) error {
	setNewProcessGroup(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	p.execCmd = cmd
	p.stdin = stdin
	p.stdout = stdout
	p.stderr = stderr
	return nil
}

func (p *Process) replySink() ReplySink {
	return *p.sink.Load().(*ReplySink)
}

// drain reads stdout (and stderr, for plain processes) until EOF, emitting
// process-stdout/process-stderr responses, then waits for the process to
// exit and emits the terminal process-done response (Running →
// Exited/Killed/Errored).
func (p *Process) drain(m *Manager) {
	var wg sync.WaitGroup

	if p.ptm != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.pump(p.ptm, proto.RKindProcStdout)
		}()
	} else {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.pump(p.stdout, proto.RKindProcStdout)
		}()
		go func() {
			defer wg.Done()
			p.pump(p.stderr, proto.RKindProcStderr)
		}()
	}

	wg.Wait()

	waitErr := p.execCmd.Wait()
	if p.ptm != nil {
		p.ptm.Close()
	}

	p.mu.Lock()
	p.exited = true
	killed := p.killed
	p.mu.Unlock()

	success := waitErr == nil
	var code *int32
	var signal string
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		c := int32(exitErr.ExitCode())
		code = &c
		if status, ok := exitStatus(exitErr); ok {
			signal = status
		}
	} else if waitErr == nil {
		c := int32(0)
		code = &c
	}
	if killed {
		signal = "killed"
	}

	p.replySink().Send(proto.ResponsePayload{
		Kind: proto.RKindProcDone,
		ProcDone: &proto.ProcDonePayload{
			Success: success,
			Code:    code,
			Signal:  signal,
		},
	})

	close(p.done)
	m.remove(p.id)
}

func (p *Process) pump(r io.Reader, kind proto.ResponseKind) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			payload := proto.ResponsePayload{Kind: kind}
			if kind == proto.RKindProcStdout {
				payload.ProcStdout = &proto.ProcDataPayload{Data: chunk}
			} else {
				payload.ProcStderr = &proto.ProcDataPayload{Data: chunk}
			}
			p.replySink().Send(payload)
		}
		if err != nil {
			return
		}
	}
}

func (p *Process) writeStdin(data []byte) error {
	if p.ptm != nil {
		_, err := p.ptm.Write(data)
		return err
	}
	_, err := p.stdin.Write(data)
	return err
}

func (p *Process) resize(rows, cols uint16) error {
	if p.ptm == nil {
		return errUnsupportedResize
	}
	return pty.Setsize(p.ptm, &pty.Winsize{Rows: rows, Cols: cols})
}

func (p *Process) kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	return killProcessGroup(p.execCmd)
}
