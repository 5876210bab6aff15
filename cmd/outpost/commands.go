package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/outpost-dev/outpost/internal/proto"
	"github.com/outpost-dev/outpost/internal/session"
	"golang.org/x/term"
)

func cmdCat(ctx context.Context, sess *session.Session, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: outpost cat <path>")
		os.Exit(1)
	}
	seq := send(sess, proto.RequestPayload{Kind: proto.KindFileReadText, FileReadText: &proto.FileReadParams{Path: args[0]}})
	drain(ctx, seq, func(r proto.Response) {
		switch r.Payload.Kind {
		case proto.RKindText:
			fmt.Print(r.Payload.Text.Text)
		case proto.RKindError:
			fmt.Fprintf(os.Stderr, "outpost: %s: %s\n", r.Payload.Error.Kind, r.Payload.Error.Description)
		}
	})
}

func cmdWrite(ctx context.Context, sess *session.Session, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: outpost write <path> <text>")
		os.Exit(1)
	}
	seq := send(sess, proto.RequestPayload{Kind: proto.KindFileWriteText, FileWriteText: &proto.FileWriteTextParams{Path: args[0], Text: args[1]}})
	drain(ctx, seq, printOKOrError)
}

func cmdLs(ctx context.Context, sess *session.Session, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: outpost ls <path>")
		os.Exit(1)
	}
	seq := send(sess, proto.RequestPayload{Kind: proto.KindDirRead, DirRead: &proto.DirReadParams{Path: args[0]}})
	drain(ctx, seq, func(r proto.Response) {
		switch r.Payload.Kind {
		case proto.RKindDirEntries:
			for _, e := range r.Payload.DirEntries.Entries {
				fmt.Printf("%s\t%s\n", e.FileType, e.Path)
			}
			for _, errLine := range r.Payload.DirEntries.Errors {
				fmt.Fprintln(os.Stderr, errLine)
			}
		case proto.RKindError:
			fmt.Fprintf(os.Stderr, "outpost: %s: %s\n", r.Payload.Error.Kind, r.Payload.Error.Description)
		}
	})
}

func cmdExists(ctx context.Context, sess *session.Session, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: outpost exists <path>")
		os.Exit(1)
	}
	seq := send(sess, proto.RequestPayload{Kind: proto.KindExists, Exists: &proto.ExistsParams{Path: args[0]}})
	drain(ctx, seq, func(r proto.Response) {
		if r.Payload.Kind == proto.RKindExists {
			fmt.Println(r.Payload.Exists.Exists)
		}
	})
}

func cmdRemove(ctx context.Context, sess *session.Session, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: outpost rm <path>")
		os.Exit(1)
	}
	seq := send(sess, proto.RequestPayload{Kind: proto.KindRemove, Remove: &proto.RemoveParams{Path: args[0]}})
	drain(ctx, seq, printOKOrError)
}

func printOKOrError(r proto.Response) {
	switch r.Payload.Kind {
	case proto.RKindOK:
		fmt.Println("ok")
	case proto.RKindError:
		fmt.Fprintf(os.Stderr, "outpost: %s: %s\n", r.Payload.Error.Kind, r.Payload.Error.Description)
	}
}

func cmdSpawn(ctx context.Context, sess *session.Session, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: outpost spawn <cmd> [args...]")
		os.Exit(1)
	}
	seq := send(sess, proto.RequestPayload{Kind: proto.KindProcSpawn, ProcSpawn: &proto.ProcSpawnParams{
		Cmd:  args[0],
		Args: args[1:],
	}})
	drain(ctx, seq, func(r proto.Response) {
		switch r.Payload.Kind {
		case proto.RKindProcSpawned:
			fmt.Fprintf(os.Stderr, "outpost: spawned process %d\n", r.Payload.ProcSpawned.ID)
		case proto.RKindProcStdout:
			os.Stdout.Write(r.Payload.ProcStdout.Data)
		case proto.RKindProcStderr:
			os.Stderr.Write(r.Payload.ProcStderr.Data)
		case proto.RKindProcDone:
			done := r.Payload.ProcDone
			if done.Code != nil {
				fmt.Fprintf(os.Stderr, "outpost: exited %d\n", *done.Code)
			} else if done.Signal != "" {
				fmt.Fprintf(os.Stderr, "outpost: terminated (%s)\n", done.Signal)
			}
		case proto.RKindError:
			fmt.Fprintf(os.Stderr, "outpost: %s: %s\n", r.Payload.Error.Kind, r.Payload.Error.Description)
		}
	})
}

// cmdAttach spawns cmd under a remote PTY and puts the local terminal in raw
// mode so keystrokes go straight to it, Ctrl-] (0x1D) detaches. Window size
// changes are forwarded as proc-resize-pty requests on SIGWINCH.
func cmdAttach(ctx context.Context, sess *session.Session, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: outpost attach <cmd> [args...]")
		os.Exit(1)
	}

	fd := int(os.Stdin.Fd())
	cols, rows := uint16(80), uint16(24)
	if w, h, err := term.GetSize(fd); err == nil {
		cols, rows = uint16(w), uint16(h)
	}

	seq := send(sess, proto.RequestPayload{Kind: proto.KindProcSpawn, ProcSpawn: &proto.ProcSpawnParams{
		Cmd:  args[0],
		Args: args[1:],
		Pty:  &proto.PtyDimensions{Rows: rows, Cols: cols},
	}})

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outpost: cannot set raw mode: %v\n", err)
		os.Exit(1)
	}
	defer term.Restore(fd, oldState)

	var procID uint64
	idKnown := make(chan struct{})

	done := make(chan struct{}, 1)
	signalDone := func() {
		select {
		case done <- struct{}{}:
		default:
		}
	}

	go func() {
		<-idKnown
		buf := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				for i := 0; i < n; i++ {
					if buf[i] == 0x1D {
						signalDone()
						return
					}
				}
				sess.Send(proto.RequestPayload{Kind: proto.KindProcStdin, ProcStdin: &proto.ProcStdinParams{ID: procID, Data: append([]byte(nil), buf[:n]...)}})
			}
			if err != nil {
				signalDone()
				return
			}
		}
	}()

	winchCh := make(chan os.Signal, 1)
	signal.Notify(winchCh, syscall.SIGWINCH)
	defer signal.Stop(winchCh)
	go func() {
		for range winchCh {
			if w, h, err := term.GetSize(fd); err == nil {
				sess.Send(proto.RequestPayload{Kind: proto.KindProcResizePty, ProcResizePty: &proto.ProcResizePtyParams{ID: procID, Rows: uint16(h), Cols: uint16(w)}})
			}
		}
	}()

	go func() {
		for {
			resp, ok, err := seq.Next(ctx)
			if err != nil || !ok {
				signalDone()
				return
			}
			switch resp.Payload.Kind {
			case proto.RKindProcSpawned:
				procID = resp.Payload.ProcSpawned.ID
				close(idKnown)
			case proto.RKindProcStdout:
				os.Stdout.Write(resp.Payload.ProcStdout.Data)
			case proto.RKindProcStderr:
				os.Stderr.Write(resp.Payload.ProcStderr.Data)
			case proto.RKindProcDone, proto.RKindError:
				signalDone()
				return
			}
		}
	}()

	<-done
}

func cmdWatch(ctx context.Context, sess *session.Session, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: outpost watch <path>")
		os.Exit(1)
	}
	seq := send(sess, proto.RequestPayload{Kind: proto.KindWatch, Watch: &proto.WatchParams{Path: args[0], Recursive: true}})

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for {
		resp, ok, err := seq.Next(ctx)
		if err != nil || !ok {
			return
		}
		switch resp.Payload.Kind {
		case proto.RKindChanged:
			c := resp.Payload.Changed
			fmt.Fprintf(w, "%s\t%s\t%s\n", strconv.FormatInt(c.Unix, 10), c.Kind, c.Path)
			w.Flush()
		case proto.RKindError:
			fmt.Fprintf(os.Stderr, "outpost: %s: %s\n", resp.Payload.Error.Kind, resp.Payload.Error.Description)
			return
		}
	}
}
