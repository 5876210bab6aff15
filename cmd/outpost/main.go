// outpost – the CLI client for outpostd.
//
// Usage:
//
//	outpost --key <host:port key> cat <path>
//	outpost --key <host:port key> write <path> <text>
//	outpost --key <host:port key> ls <path>
//	outpost --key <host:port key> exists <path>
//	outpost --key <host:port key> rm <path>
//	outpost --key <host:port key> spawn <cmd> [args...]
//	outpost --key <host:port key> attach <cmd> [args...]
//	outpost --key <host:port key> watch <path>
//
// The --key value is the credentials line outpostd prints on startup.
// outpost makes no attempt at a rich argument grammar: each subcommand
// takes a small, fixed argument list, just enough to exercise the
// protocol from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/outpost-dev/outpost/internal/authkey"
	"github.com/outpost-dev/outpost/internal/frame"
	"github.com/outpost-dev/outpost/internal/proto"
	"github.com/outpost-dev/outpost/internal/session"
	"github.com/outpost-dev/outpost/internal/transport"
)

func main() {
	keyFlag := flag.String("key", "", "credentials printed by outpostd (\"host:port key\")")
	flag.Parse()

	args := flag.Args()
	if *keyFlag == "" || len(args) < 1 {
		usage()
		os.Exit(1)
	}

	creds, err := authkey.Parse(*keyFlag)
	if err != nil {
		log.Fatalf("outpost: %v", err)
	}

	codec, err := frame.NewCryptoCodec(creds.Key[:])
	if err != nil {
		log.Fatalf("outpost: %v", err)
	}
	t, err := transport.Dial("tcp", creds.Addr(), codec)
	if err != nil {
		log.Fatalf("outpost: dial: %v", err)
	}
	read, write := t.Split()
	sess := session.New(read, write, session.Options{})
	defer sess.Close()

	ctx := context.Background()

	switch args[0] {
	case "cat":
		cmdCat(ctx, sess, args[1:])
	case "write":
		cmdWrite(ctx, sess, args[1:])
	case "ls":
		cmdLs(ctx, sess, args[1:])
	case "exists":
		cmdExists(ctx, sess, args[1:])
	case "rm":
		cmdRemove(ctx, sess, args[1:])
	case "spawn":
		cmdSpawn(ctx, sess, args[1:])
	case "attach":
		cmdAttach(ctx, sess, args[1:])
	case "watch":
		cmdWatch(ctx, sess, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "outpost: unknown command %q\n", args[0])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: outpost --key <creds> <cat|write|ls|exists|rm|spawn|attach|watch> ...")
}

// drain pulls responses off seq, handing each one to onResp, and returns
// after the first terminal payload or once the sequence ends.
func drain(ctx context.Context, seq *session.ResponseSeq, onResp func(proto.Response)) {
	for {
		resp, ok, err := seq.Next(ctx)
		if err != nil || !ok {
			return
		}
		onResp(resp)
		if resp.Payload.IsTerminal() {
			return
		}
	}
}

func send(sess *session.Session, payload proto.RequestPayload) *session.ResponseSeq {
	seq, err := sess.Send(payload)
	if err != nil {
		log.Fatalf("outpost: send: %v", err)
	}
	return seq
}
