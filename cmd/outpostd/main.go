// outpostd – the remote file and process operation server.
//
// Usage:
//
//	outpostd [--listen <host:port>] [--config <path>] [--key-file <path>]
//
// outpostd listens for encrypted, framed connections and serves file,
// directory, process, and filesystem-watch requests on behalf of the
// outpost client. On startup it logs (to stderr) a line ending in the
// credentials ("host:port key") that a client passes to outpost --key; unless
// --key-file names a path to persist it at, the listen key is generated
// fresh each run.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outpost-dev/outpost/internal/config"
	"github.com/outpost-dev/outpost/internal/server"
)

func main() {
	listen := flag.String("listen", "", "address to listen on, host:port (default 127.0.0.1:0)")
	configPath := flag.String("config", "", "optional YAML config file")
	keyFile := flag.String("key-file", "", "persist/reuse the listen key at this path instead of generating a fresh one every run")
	poll := flag.Bool("poll", false, "force polling-based file watching instead of native OS events")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}
	cfg = cfg.Override(*listen, *keyFile, *poll)

	reg := server.NewRegistry(cfg.DebounceDuration(), cfg.Watch.Poll)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ctx, "tcp", cfg.Listen, cfg.KeyFile, reg) }()

	select {
	case sig := <-sigCh:
		grace := time.Duration(cfg.Shutdown.GraceSeconds) * time.Second
		log.Printf("received %v, shutting down (grace %s)", sig, grace)
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				log.Fatalf("outpostd: %v", err)
			}
		case <-time.After(grace):
			log.Printf("shutdown grace period elapsed, exiting")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("outpostd: %v", err)
		}
	}
}
