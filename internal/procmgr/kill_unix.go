//go:build !windows

package procmgr

import (
	"os/exec"
	"syscall"
)

// setNewProcessGroup puts cmd in its own process group at Start time, so
// killProcessGroup can later signal just the child's group instead of
// outpostd's. pty.Start already calls setsid on PTY-backed children, which
// has the same effect; plain children need it set explicitly or they
// inherit outpostd's process group.
func setNewProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessGroup sends SIGKILL to the process group of cmd, falling back
// to killing just the process if the group lookup fails or the child is
// not the leader of its own group.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 && pgid == pid {
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return syscall.Kill(pid, syscall.SIGKILL)
}

// exitStatus extracts a POSIX signal name from an ExitError, if the process
// was terminated by a signal rather than exiting normally.
func exitStatus(err *exec.ExitError) (string, bool) {
	status, ok := err.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return "", false
	}
	return status.Signal().String(), true
}
