package session

import (
	"testing"

	"github.com/outpost-dev/outpost/internal/proto"
	"github.com/stretchr/testify/require"
)

func TestMailboxEvictsOldestWhenFull(t *testing.T) {
	mb := newMailbox(2)
	mb.deliver(proto.Response{ID: 1})
	mb.deliver(proto.Response{ID: 2})
	mb.deliver(proto.Response{ID: 3}) // evicts ID 1

	first := <-mb.ch
	second := <-mb.ch
	require.Equal(t, uint64(2), first.ID)
	require.Equal(t, uint64(3), second.ID)
}

func TestMailboxDeliverAfterCloseIsNoop(t *testing.T) {
	mb := newMailbox(1)
	mb.close()
	require.NotPanics(t, func() { mb.deliver(proto.Response{ID: 1}) })
}

func TestMailboxCloseIsIdempotent(t *testing.T) {
	mb := newMailbox(1)
	mb.close()
	require.NotPanics(t, func() { mb.close() })
}

func TestMailboxDefaultCapacity(t *testing.T) {
	mb := newMailbox(0)
	require.Equal(t, defaultMailboxCap, cap(mb.ch))
}
