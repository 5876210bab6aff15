// Package session implements the client-facing half of the protocol: a
// Session bundles a transport and a post office and exposes
// send(request) → stream of responses. Channel is a cheap, cloneable handle
// sharing the same transport and post office.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/outpost-dev/outpost/internal/proto"
	"github.com/outpost-dev/outpost/internal/transport"
)

// ErrSessionClosed is the single error value a caller sees once the
// transport has died: every Send call completes with either a response
// sequence or this one error value representing transport death.
var ErrSessionClosed = errors.New("session: transport closed")

// Session is the client-facing object wrapping one transport and one post
// office. Construct with New; call Send to issue requests, Channel to mint
// a cheap cloneable handle, and Close to tear the session down.
type Session struct {
	read  *transport.ReadHalf
	write *transport.WriteHalf
	po    *postOffice

	tenant     string
	mailboxCap int
	nextID     uint64 // atomic; monotonic request id

	deadMu sync.RWMutex
	dead   error
}

// Options configures a Session at construction time.
type Options struct {
	// Tenant is copied into every Request this session sends and echoed
	// back unchanged on every Response.
	Tenant string
	// MailboxCap overrides the default bounded mailbox capacity (100).
	MailboxCap int
}

// New starts the session's single reader goroutine and returns a ready
// Session. The transport must already be split.
func New(read *transport.ReadHalf, write *transport.WriteHalf, opts Options) *Session {
	if opts.MailboxCap <= 0 {
		opts.MailboxCap = defaultMailboxCap
	}
	s := &Session{
		read:       read,
		write:      write,
		po:         newPostOffice(),
		tenant:     opts.Tenant,
		mailboxCap: opts.MailboxCap,
	}
	go s.readLoop()
	return s
}

func (s *Session) readLoop() {
	for {
		body, err := s.read.Recv()
		if err != nil {
			s.markDead(err)
			return
		}
		resp, err := proto.UnmarshalResponse(body)
		if err != nil {
			// A decode failure on the wire is a protocol-level framing
			// problem, not a per-request error: treat serialization errors
			// on the transport as connection-fatal.
			log.Printf("session: decode response: %v", err)
			s.markDead(err)
			return
		}
		s.po.deliverTo(resp.OriginID, func(mb *mailbox) {
			mb.deliver(resp)
		})
	}
}

func (s *Session) markDead(cause error) {
	s.deadMu.Lock()
	if s.dead == nil {
		s.dead = cause
	}
	s.deadMu.Unlock()
	s.po.closeAll()
}

func (s *Session) deadErr() error {
	s.deadMu.RLock()
	defer s.deadMu.RUnlock()
	return s.dead
}

// Send allocates a fresh request id, registers its mailbox, and enqueues
// the request on the write half. The returned ResponseSeq yields every
// response tagged with that id until a terminal payload arrives (for a
// batch, one terminal payload per sub-payload) or the caller drops it.
func (s *Session) Send(payload proto.RequestPayload) (*ResponseSeq, error) {
	if err := s.deadErr(); err != nil {
		return nil, ErrSessionClosed
	}

	id := atomic.AddUint64(&s.nextID, 1)
	mb := s.po.register(id, s.mailboxCap)

	req := proto.Request{ID: id, Tenant: s.tenant, Payload: payload}
	body, err := proto.MarshalRequest(req)
	if err != nil {
		s.po.unregister(id)
		return nil, err
	}
	if err := s.write.Send(body); err != nil {
		s.po.unregister(id)
		return nil, ErrSessionClosed
	}
	terminals := 1
	if payload.Kind == proto.KindBatch {
		terminals = len(payload.Batch)
	}
	return &ResponseSeq{id: id, mb: mb, po: s.po, remaining: terminals}, nil
}

// Channel returns a cheap handle sharing this session's transport and post
// office; multiple channels may exist per session.
func (s *Session) Channel() *Channel {
	return &Channel{s: s}
}

// Close marks the session dead, so later Send calls fail with
// ErrSessionClosed, and closes every outstanding mailbox. It does not close
// the underlying transport; the reader goroutine keeps running until that
// transport is closed by its owner or by the peer.
func (s *Session) Close() error {
	s.markDead(ErrSessionClosed)
	return nil
}

// ResponseSeq is the lazy, pull-based sequence of responses to one request:
// a finite or infinite sequence, restartable only by issuing a new request.
type ResponseSeq struct {
	id uint64
	mb *mailbox
	po *postOffice

	remaining int // terminal payloads still expected before auto-unregister

	closeOnce sync.Once
}

// Next blocks until a response arrives, the sequence ends (ok=false), or
// ctx is done. Once the expected terminal payloads (error, ok, blob, text,
// dir-entries, exists, metadata, process-done, proc-entries, system-info)
// have been observed — one for an ordinary request, one per sub-payload for
// a batch — the mailbox is unregistered automatically.
func (rs *ResponseSeq) Next(ctx context.Context) (proto.Response, bool, error) {
	select {
	case resp, ok := <-rs.mb.ch:
		if !ok {
			return proto.Response{}, false, nil
		}
		if resp.Payload.IsTerminal() {
			rs.remaining--
			if rs.remaining <= 0 {
				rs.closeOnce.Do(func() { rs.po.unregister(rs.id) })
			}
		}
		return resp, true, nil
	case <-ctx.Done():
		return proto.Response{}, false, ctx.Err()
	}
}

// Close is the cancellation signal for a response sequence: dropping it
// removes its mailbox from the post office without
// notifying the server. Request kinds that need server-side cleanup (kill,
// unwatch) must send an explicit counter-request before calling Close.
func (rs *ResponseSeq) Close() {
	rs.closeOnce.Do(func() { rs.po.unregister(rs.id) })
}
