// Package server implements outpostd's per-connection request dispatch: one
// reader loop per connection, one goroutine per request, replies tagged
// with the originating request id so a client's session package can route
// them back to the right mailbox.
package server

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outpost-dev/outpost/internal/procmgr"
	"github.com/outpost-dev/outpost/internal/proto"
	"github.com/outpost-dev/outpost/internal/transport"
	"github.com/outpost-dev/outpost/internal/watchmgr"
)

// Registry is the server-wide state shared across every connection:
// persistent processes outlive the connection that spawned them, so the
// process Manager is not per-connection. Watches are
// torn down on connection close, so the watch Manager is allocated fresh
// per Dispatcher, seeded from the same config every connection shares.
type Registry struct {
	Procs *procmgr.Manager

	WatchDebounce  time.Duration
	WatchForcePoll bool
}

// NewRegistry builds the shared server-wide state outpostd constructs once
// at startup and hands to every accepted connection. debounce and
// forcePoll come from config.Config's watch section (watchmgr.DefaultDebounce
// and no forced polling if zero-valued, matching config.Default()).
func NewRegistry(debounce time.Duration, forcePoll bool) *Registry {
	return &Registry{
		Procs:          procmgr.NewManager(),
		WatchDebounce:  debounce,
		WatchForcePoll: forcePoll,
	}
}

// Dispatcher owns one connection's request/response lifecycle.
type Dispatcher struct {
	read   *transport.ReadHalf
	write  *transport.WriteHalf
	reg    *Registry
	watch  *watchmgr.Manager
	nextID uint64 // atomic; allocates Response.ID values for this connection

	procMu     sync.Mutex
	ownedProcs map[uint64]bool // processes this connection spawned
}

// New builds a Dispatcher for one accepted connection. Call Run to start
// serving requests; Run blocks until the connection dies.
func New(read *transport.ReadHalf, write *transport.WriteHalf, reg *Registry) *Dispatcher {
	return &Dispatcher{
		read:       read,
		write:      write,
		reg:        reg,
		watch:      watchmgr.NewManager(reg.WatchDebounce, reg.WatchForcePoll),
		ownedProcs: make(map[uint64]bool),
	}
}

// Run reads requests until the transport closes, dispatching each to its
// own goroutine so a slow or streaming request (proc-spawn, watch) never
// blocks unrelated requests on the same connection.
func (d *Dispatcher) Run() {
	defer d.watch.Close()
	defer d.disownProcesses()

	for {
		body, err := d.read.Recv()
		if err != nil {
			return
		}
		req, err := proto.UnmarshalRequest(body)
		if err != nil {
			log.Printf("server: dropping malformed request: %v", err)
			continue
		}
		go d.handle(req)
	}
}

// trackProc records that this connection spawned id, so disownProcesses
// can clean it up (kill or detach) when the connection dies.
func (d *Dispatcher) trackProc(id uint64) {
	d.procMu.Lock()
	d.ownedProcs[id] = true
	d.procMu.Unlock()
}

// disownProcesses runs when the connection closes. Persistent processes
// are detached (their output drops silently); everything else is killed,
// since nothing will ever read its output again.
func (d *Dispatcher) disownProcesses() {
	d.procMu.Lock()
	ids := d.ownedProcs
	d.procMu.Unlock()
	for id := range ids {
		d.reg.Procs.OnConnectionClose(id)
	}
}

// reply allocates a fresh response id for this connection and sends it
// tagged with origin, the request id being answered, echoing back tenant
// unchanged as the request that carried it specified.
func (d *Dispatcher) reply(origin uint64, tenant string, payload proto.ResponsePayload) error {
	id := atomic.AddUint64(&d.nextID, 1)
	resp := proto.Response{ID: id, OriginID: origin, Tenant: tenant, Payload: payload}
	body, err := proto.MarshalResponse(resp)
	if err != nil {
		return err
	}
	return d.write.Send(body)
}

// replyHandle adapts a Dispatcher+origin id pair to the narrow ReplySink
// interfaces procmgr and watchmgr need, so they can emit responses without
// knowing about Request/Response framing.
type replyHandle struct {
	d      *Dispatcher
	origin uint64
	tenant string
}

func (h replyHandle) Send(payload proto.ResponsePayload) error {
	return h.d.reply(h.origin, h.tenant, payload)
}

func (h replyHandle) Changed(payload proto.ChangedPayload) {
	h.d.reply(h.origin, h.tenant, proto.ResponsePayload{Kind: proto.RKindChanged, Changed: &payload})
}

func (h replyHandle) Errorf(kind, format string, args ...any) {
	h.d.reply(h.origin, h.tenant, proto.Err(kind, fmt.Sprintf(format, args...)))
}

func (d *Dispatcher) handle(req proto.Request) {
	h := replyHandle{d: d, origin: req.ID, tenant: req.Tenant}
	route(d, h, req.Payload)
}
