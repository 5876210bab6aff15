//go:build windows

package procmgr

import "os/exec"

// setNewProcessGroup is a no-op on Windows: there is no POSIX process
// group to isolate the child into, and killProcessGroup below operates on
// the process handle directly regardless.
func setNewProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup maps to TerminateProcess on Windows. Windows has no
// POSIX process-group signal; killing the handle is the closest
// equivalent cmd.Process offers.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// exitStatus: Windows exit codes don't carry a POSIX signal, so there is
// never a signal name to report.
func exitStatus(err *exec.ExitError) (string, bool) {
	return "", false
}
