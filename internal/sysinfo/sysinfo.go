// Package sysinfo answers the system-info request kind, reporting the
// server's OS family, current directory, and shell so a
// client can adapt path handling before issuing filesystem requests.
package sysinfo

import (
	"os"
	"os/user"
	"runtime"

	"github.com/outpost-dev/outpost/internal/proto"
)

// Collect gathers a SystemInfoPayload describing the host outpostd runs on.
func Collect() proto.SystemInfoPayload {
	cwd, _ := os.Getwd()

	info := proto.SystemInfoPayload{
		Family:        family(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CurrentDir:    cwd,
		MainSeparator: string(os.PathSeparator),
		Shell:         shell(),
	}
	if u, err := user.Current(); err == nil {
		info.Username = u.Username
	}
	return info
}

func family() string {
	if runtime.GOOS == "windows" {
		return "windows"
	}
	return "unix"
}

func shell() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	return "/bin/sh"
}
