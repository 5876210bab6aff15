package session

import (
	"sync"

	"github.com/outpost-dev/outpost/internal/proto"
)

// defaultMailboxCap is the default bounded mailbox capacity.
const defaultMailboxCap = 100

// mailbox is the per-request response queue. The reader goroutine never
// blocks on a slow consumer: once full, the oldest undelivered response is
// evicted to make room (see DESIGN.md for the overflow policy rationale).
//
// deliver and close can race (the reader goroutine delivering a response
// concurrently with the caller dropping the sequence), so both take mu
// rather than relying on channel send/close semantics alone.
type mailbox struct {
	mu     sync.Mutex
	ch     chan proto.Response
	closed bool
}

func newMailbox(cap int) *mailbox {
	if cap <= 0 {
		cap = defaultMailboxCap
	}
	return &mailbox{ch: make(chan proto.Response, cap)}
}

// deliver enqueues resp, evicting the oldest queued response if the
// mailbox is full. Never blocks. A no-op once the mailbox has been closed.
func (m *mailbox) deliver(resp proto.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for {
		select {
		case m.ch <- resp:
			return
		default:
		}
		// Full: drop the oldest to make room, then retry.
		<-m.ch
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}
