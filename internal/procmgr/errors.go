package procmgr

import "github.com/outpost-dev/outpost/internal/wireerr"

// errUnsupportedResize is returned by Process.resize for non-PTY processes.
// It carries its own wire Kind so wireerr.FromErr classifies it as
// "unsupported" instead of falling through to "other".
var errUnsupportedResize = wireerr.New(wireerr.Unsupported, "procmgr: resize requires a pty-backed process")
