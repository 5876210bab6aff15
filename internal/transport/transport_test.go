package transport

import (
	"testing"
	"time"

	"github.com/outpost-dev/outpost/internal/frame"
	"github.com/stretchr/testify/require"
)

func TestPipeSendRecvRoundTrip(t *testing.T) {
	client, server := Pipe(frame.PlainCodec{})
	defer client.Close()
	defer server.Close()

	cRead, cWrite := client.Split()
	sRead, sWrite := server.Split()

	require.NoError(t, cWrite.Send([]byte("ping")))
	got, err := sRead.Recv()
	require.NoError(t, err)
	require.Equal(t, "ping", string(got))

	require.NoError(t, sWrite.Send([]byte("pong")))
	got, err = cRead.Recv()
	require.NoError(t, err)
	require.Equal(t, "pong", string(got))
}

func TestCloseUnblocksRecv(t *testing.T) {
	client, server := Pipe(frame.PlainCodec{})
	defer server.Close()

	cRead, _ := client.Split()
	server.Close()

	done := make(chan struct{})
	go func() {
		_, err := cRead.Recv()
		require.Error(t, err)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not unblock after peer close")
	}
}

func TestSendAfterCloseReturnsErrClosed(t *testing.T) {
	client, server := Pipe(frame.PlainCodec{})
	defer server.Close()
	_, cWrite := client.Split()
	client.Close()

	err := cWrite.Send([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestListenDialRoundTrip(t *testing.T) {
	ln, err := Listen("tcp", "127.0.0.1:0", func() (frame.Codec, error) {
		return frame.PlainCodec{}, nil
	})
	require.NoError(t, err)
	defer ln.Close()

	acceptedCh := make(chan *Transport, 1)
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		acceptedCh <- conn
	}()

	client, err := Dial("tcp", ln.Addr().String(), frame.PlainCodec{})
	require.NoError(t, err)
	defer client.Close()

	server := <-acceptedCh
	defer server.Close()

	cRead, cWrite := client.Split()
	sRead, sWrite := server.Split()
	require.NoError(t, cWrite.Send([]byte("hello")))
	got, err := sRead.Recv()
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
	_ = sWrite
	_ = cRead
}
