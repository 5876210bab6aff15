package server

import (
	"github.com/outpost-dev/outpost/internal/proto"
)

// handleProcSpawn spawns the process; Manager.Spawn itself emits the
// process-spawned response (before starting the drain goroutines) so it
// is guaranteed to reach the client before any stdout/stderr/done.
func handleProcSpawn(d *Dispatcher, h replyHandle, params proto.ProcSpawnParams) {
	p, err := d.reg.Procs.Spawn(params, h)
	if err != nil {
		sendErr(h, err)
		return
	}
	d.trackProc(p.ID())
}

func handleProcStdin(d *Dispatcher, h replyHandle, params proto.ProcStdinParams) {
	if err := d.reg.Procs.WriteStdin(params.ID, params.Data); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleProcResizePty(d *Dispatcher, h replyHandle, params proto.ProcResizePtyParams) {
	if err := d.reg.Procs.Resize(params.ID, params.Rows, params.Cols); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleProcKill(d *Dispatcher, h replyHandle, params proto.ProcKillParams) {
	if err := d.reg.Procs.Kill(params.ID); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleProcList(d *Dispatcher, h replyHandle) {
	h.Send(proto.ResponsePayload{Kind: proto.RKindProcEntries, ProcEntries: &proto.ProcEntriesPayload{List: d.reg.Procs.List()}})
}

// handleWatch establishes the watch and returns. There is no ack: the
// response sequence carries only the changed{...} stream until unwatch,
// so sending a terminal OK here would close the mailbox before the first
// change ever arrives.
func handleWatch(d *Dispatcher, h replyHandle, params proto.WatchParams) {
	if err := d.watch.Watch(params, h); err != nil {
		sendErr(h, err)
	}
}

func handleUnwatch(d *Dispatcher, h replyHandle, params proto.UnwatchParams) {
	d.watch.Unwatch(params.Path)
	h.Send(proto.OK())
}
