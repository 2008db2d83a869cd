// Package main provides a small demonstration client for SAM v3 stream
// sessions, built directly on lib/endpoint and lib/session.
//
// Usage:
//
//	txi2p-tool -mode connect -dest <remote.b32.i2p> [flags]
//	txi2p-tool -mode listen [flags]
//
// Flags:
//
//	-sam string        SAM bridge control address (default "127.0.0.1:7656")
//	-nickname string   session nickname (default auto-generated)
//	-dest string       remote destination, required for -mode connect
//	-keyfile string    path to persist/reuse the session private key
//	-debug             enable debug logging
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/go-i2p/txi2p/lib/endpoint"
	"github.com/go-i2p/txi2p/lib/session"
	"github.com/go-i2p/txi2p/lib/transport"
)

// Config holds the tool's command-line configuration.
type Config struct {
	Mode     string
	SAMAddr  string
	Nickname string
	Dest     string
	Keyfile  string
	Debug    bool
}

func main() {
	cfg := parseFlags()

	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
	}()

	registry := session.NewRegistry(log)
	samEndpoint := transport.NewTCPEndpoint(cfg.SAMAddr)

	var err error
	switch cfg.Mode {
	case "connect":
		err = runConnect(ctx, registry, samEndpoint, cfg, log)
	case "listen":
		err = runListen(ctx, registry, samEndpoint, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown -mode %q; want connect or listen\n", cfg.Mode)
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Error("txi2p-tool failed")
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}
	flag.StringVar(&cfg.Mode, "mode", "connect", "connect or listen")
	flag.StringVar(&cfg.SAMAddr, "sam", "127.0.0.1:7656", "SAM bridge control address")
	flag.StringVar(&cfg.Nickname, "nickname", "", "session nickname (default auto-generated)")
	flag.StringVar(&cfg.Dest, "dest", "", "remote destination (required for -mode connect)")
	flag.StringVar(&cfg.Keyfile, "keyfile", "", "path to persist/reuse the session private key")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.Parse()
	return cfg
}

func runConnect(ctx context.Context, registry *session.Registry, samEndpoint transport.Endpoint, cfg *Config, log *logrus.Logger) error {
	if cfg.Dest == "" {
		return fmt.Errorf("-dest is required for -mode connect")
	}

	client := endpoint.NewClientEndpoint(registry, samEndpoint, cfg.Nickname, cfg.Dest, true, nil).
		WithKeyfile(cfg.Keyfile)

	log.WithField("dest", cfg.Dest).Info("connecting")
	return client.Connect(ctx, func(conn transport.Conn) {
		pipeStdio(ctx, conn, log)
	})
}

func runListen(ctx context.Context, registry *session.Registry, samEndpoint transport.Endpoint, cfg *Config, log *logrus.Logger) error {
	server := endpoint.NewServerEndpoint(registry, samEndpoint, cfg.Nickname, true, nil).
		WithKeyfile(cfg.Keyfile)

	log.Info("listening for inbound streams")
	return server.Listen(ctx, func(conn transport.Conn) {
		log.Info("accepted inbound stream")
		pipeStdio(ctx, conn, log)
	})
}

// pipeStdio copies stdin to the data stream and the data stream's lines to
// stdout, until either side ends or ctx is cancelled. This tool has no
// framing opinions about the payload carried over a data stream; it simply
// demonstrates the handshake and relays raw lines.
func pipeStdio(ctx context.Context, conn transport.Conn, log *logrus.Logger) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := conn.Write(ctx, append(scanner.Bytes(), '\n')); err != nil {
				log.WithError(err).Warn("write failed")
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case line, ok := <-conn.Lines():
			if !ok {
				if err := conn.Err(); err != nil && err != io.EOF {
					log.WithError(err).Warn("stream closed")
				}
				return
			}
			fmt.Println(line)
		}
	}
}
