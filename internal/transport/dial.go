package transport

import (
	"fmt"
	"net"

	"github.com/outpost-dev/outpost/internal/frame"
)

// Dial connects to address over network ("tcp" or "unix") and wraps the
// resulting connection in a Transport using codec.
func Dial(network, address string, codec frame.Codec) (*Transport, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s %s: %w", network, address, err)
	}
	return Wrap(conn, codec), nil
}

// Listener wraps a net.Listener, handing each accepted connection back as a
// Transport. codecFn is invoked once per accepted connection so that, for
// the encryption variant, each connection gets its own *frame.CryptoCodec
// (and therefore its own frozen random nonce half and counter) rather than
// sharing nonce state across connections.
type Listener struct {
	ln      net.Listener
	codecFn func() (frame.Codec, error)
}

// Listen starts accepting connections on network/address.
func Listen(network, address string, codecFn func() (frame.Codec, error)) (*Listener, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s %s: %w", network, address, err)
	}
	return &Listener{ln: ln, codecFn: codecFn}, nil
}

// Accept blocks for the next inbound connection and returns it wrapped as a
// Transport. The caller is expected to loop on Accept from its own
// goroutine.
func (l *Listener) Accept() (*Transport, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	codec, err := l.codecFn()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return Wrap(conn, codec), nil
}

func (l *Listener) Close() error {
	return l.ln.Close()
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Pipe returns two Transports connected by an in-memory net.Pipe, for tests
// that want to exercise the session/dispatcher without a real socket.
func Pipe(codec frame.Codec) (client *Transport, server *Transport) {
	a, b := net.Pipe()
	return Wrap(a, codec), Wrap(b, codec)
}
