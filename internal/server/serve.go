package server

import (
	"context"
	"log"
	"sync"

	"github.com/outpost-dev/outpost/internal/authkey"
	"github.com/outpost-dev/outpost/internal/frame"
	"github.com/outpost-dev/outpost/internal/transport"
)

// Serve listens on addr, logging ready-to-use credentials through the
// standard log package (stderr by default) as "outpostd listening:
// host:port key", then accepts connections forever, running one Dispatcher per
// connection against the shared reg. It returns only on a listener error
// or once ctx is done, in which case it stops accepting and returns nil
// once every connection it already accepted has closed on its own.
//
// keyFile, if non-empty, persists the listen key across restarts instead
// of generating a fresh one every run.
func Serve(ctx context.Context, network, addr, keyFile string, reg *Registry) error {
	key, err := authkey.LoadOrGenerateKey(keyFile)
	if err != nil {
		return err
	}

	ln, err := transport.Listen(network, addr, func() (frame.Codec, error) {
		return frame.NewCryptoCodec(key[:])
	})
	if err != nil {
		return err
	}
	defer ln.Close()

	log.Printf("outpostd listening: %s", authkey.Format(ln.Addr().String(), key))

	var wg sync.WaitGroup
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		t, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(t, reg)
		}()
	}
}

func serveConn(t *transport.Transport, reg *Registry) {
	read, write := t.Split()
	d := New(read, write, reg)
	d.Run()
}
