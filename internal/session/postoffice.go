package session

import (
	"log"
	"sync"
)

// postOffice is the client-side registry mapping outstanding request ids to
// mailboxes. It is concurrent-readable and serialized on insert/remove.
type postOffice struct {
	mu    sync.RWMutex
	boxes map[uint64]*mailbox
}

func newPostOffice() *postOffice {
	return &postOffice{boxes: make(map[uint64]*mailbox)}
}

func (po *postOffice) register(id uint64, cap int) *mailbox {
	mb := newMailbox(cap)
	po.mu.Lock()
	po.boxes[id] = mb
	po.mu.Unlock()
	return mb
}

// deliverTo routes resp to the mailbox registered for originID. If no
// mailbox exists (the caller already dropped its sequence, or the response
// is stray), the response is dropped and a local warning is logged.
func (po *postOffice) deliverTo(originID uint64, deliver func(*mailbox)) {
	po.mu.RLock()
	mb, ok := po.boxes[originID]
	po.mu.RUnlock()
	if !ok {
		log.Printf("session: dropping response for unknown request id %d", originID)
		return
	}
	deliver(mb)
}

// unregister removes and closes the mailbox for id, if present. Safe to
// call more than once for the same id.
func (po *postOffice) unregister(id uint64) {
	po.mu.Lock()
	mb, ok := po.boxes[id]
	if ok {
		delete(po.boxes, id)
	}
	po.mu.Unlock()
	if ok {
		mb.close()
	}
}

// closeAll tears down every outstanding mailbox, used when the underlying
// transport dies: a connection-level failure signals every live mailbox
// rather than leaving them waiting forever.
func (po *postOffice) closeAll() {
	po.mu.Lock()
	boxes := po.boxes
	po.boxes = make(map[uint64]*mailbox)
	po.mu.Unlock()
	for _, mb := range boxes {
		mb.close()
	}
}
