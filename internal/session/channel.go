package session

import "github.com/outpost-dev/outpost/internal/proto"

// Channel is a cheap, cloneable handle onto a Session: sending from any
// channel allocates an id from the shared post office.
type Channel struct {
	s *Session
}

// Send delegates to the underlying Session.
func (c *Channel) Send(payload proto.RequestPayload) (*ResponseSeq, error) {
	return c.s.Send(payload)
}

// Channel returns another handle sharing the same session; cloning a
// channel is just copying this pointer.
func (c *Channel) Channel() *Channel {
	return &Channel{s: c.s}
}
