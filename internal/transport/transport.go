// Package transport presents a duplex, frame-oriented channel over any
// byte-stream substrate: TCP, Unix domain sockets, or an in-memory pipe for
// tests. A Transport owns exactly one reader goroutine and one writer
// goroutine so that all outbound frames are serialized through a single
// writer task consuming a bounded (64-entry) in-process queue.
package transport

import (
	"errors"
	"net"
	"sync"

	"github.com/outpost-dev/outpost/internal/frame"
)

// ErrClosed is returned by WriteHalf.Send once the transport has torn
// down, and by ReadHalf.Recv when the teardown carried no read error.
var ErrClosed = errors.New("transport: closed")

// Transport is a duplex frame channel over a net.Conn. Construct one with
// Wrap (for a connection obtained elsewhere, e.g. from Dial or an accept
// loop) and immediately call Split to obtain independent halves.
type Transport struct {
	conn  net.Conn
	codec frame.Codec

	reader *frame.Reader
	writer *frame.Writer

	recvCh chan []byte
	sendCh chan []byte

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// Wrap builds a Transport around an already-connected net.Conn, using codec
// to transform frame bodies (frame.PlainCodec{} or a *frame.CryptoCodec).
// The caller must still call Split (and drain both halves) to start I/O.
func Wrap(conn net.Conn, codec frame.Codec) *Transport {
	return &Transport{
		conn:   conn,
		codec:  codec,
		reader: frame.NewReader(conn, codec),
		writer: frame.NewWriter(conn, codec),
		recvCh: make(chan []byte, 64),
		sendCh: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

// ReadHalf yields decoded envelope bytes in arrival order. Single-consumer:
// at most one goroutine should call Recv at a time.
type ReadHalf struct{ t *Transport }

// WriteHalf accepts envelope bytes to be framed and sent. Single-consumer
// on the receiving end, but Send itself may be called concurrently from
// many goroutines — it only hands the payload to the internal writer queue.
type WriteHalf struct{ t *Transport }

// Split starts the reader and writer goroutines and returns the two halves.
// Must be called exactly once per Transport.
func (t *Transport) Split() (*ReadHalf, *WriteHalf) {
	go t.readLoop()
	go t.writeLoop()
	return &ReadHalf{t}, &WriteHalf{t}
}

func (t *Transport) readLoop() {
	defer t.shutdown(nil)
	for {
		body, err := t.reader.ReadFrame()
		if err != nil {
			t.shutdown(err)
			return
		}
		select {
		case t.recvCh <- body:
		case <-t.done:
			return
		}
	}
}

func (t *Transport) writeLoop() {
	for {
		select {
		case body, ok := <-t.sendCh:
			if !ok {
				return
			}
			if err := t.writer.WriteFrame(body); err != nil {
				t.shutdown(err)
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *Transport) shutdown(err error) {
	t.closeOnce.Do(func() {
		t.closeErr = err
		close(t.done)
		close(t.recvCh)
		t.conn.Close()
	})
}

// Recv blocks for the next envelope. Once the transport has died it returns
// the read error that ended it (for example io.EOF or a *frame.FramingError),
// or ErrClosed if it was closed without one.
func (r *ReadHalf) Recv() ([]byte, error) {
	body, ok := <-r.t.recvCh
	if !ok {
		if r.t.closeErr != nil {
			return nil, r.t.closeErr
		}
		return nil, ErrClosed
	}
	return body, nil
}

// Send enqueues an envelope for the writer goroutine. It does not write to
// the network itself, but it blocks while the 64-entry queue is full; it
// returns ErrClosed if the transport has already torn down.
func (w *WriteHalf) Send(body []byte) error {
	select {
	case <-w.t.done:
		return ErrClosed
	default:
	}
	select {
	case w.t.sendCh <- body:
		return nil
	case <-w.t.done:
		return ErrClosed
	}
}

// Close tears down both halves and the underlying connection.
func (t *Transport) Close() error {
	t.shutdown(nil)
	return nil
}
