// Command osnma-cli drives the OSNMA engine against a live or captured
// I/NAV page stream and prints one authentication or diagnostic event per
// line, per spec.md §6. Flag/logging/shutdown wiring follows the
// teacher's ro/main.go and reset/main.go almost directly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/barnettlynn/osnma/internal/config"
	"github.com/barnettlynn/osnma/internal/merkle"
	"github.com/barnettlynn/osnma/internal/transport"
	"github.com/barnettlynn/osnma/pkg/engine"
	"github.com/barnettlynn/osnma/pkg/kroot"
	"github.com/barnettlynn/osnma/pkg/page"
)

// stdoutSubscriber prints the canonical event lines from spec.md §6 to
// stdout; anything else the engine publishes is ignored at this
// verbosity, matching the teacher's split between user-facing stdout
// output and slog-based diagnostics.
type stdoutSubscriber struct{}

func (stdoutSubscriber) Notify(event any) {
	switch e := event.(type) {
	case *page.CRCFailEvent:
		fmt.Println(e.Error())
	case fmt.Stringer:
		fmt.Println(e.String())
	}
}

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	input := flag.String("i", "", "input source: file:path, serial:dev:baud, net:ip:port, or a bare path (default: stdin)")
	protocol := flag.String("p", "sbf", "input protocol: sbf or ascii")
	pubKeyPath := flag.String("k", "", "path to PEM-encoded ECDSA public key")
	rootKeyPath := flag.String("r", "", "path to cached hex-encoded DSM-KROOT hot-start file")
	merkleTreePath := flag.String("m", "", "path to Merkle tree file pinning the public key")
	allowGaps := flag.Bool("g", false, "allow sub-frames with missing pages (see spec.md §4.C)")
	saveKROOTPath := flag.String("s", "", "path to write the hot-start cache once a DSM-KROOT verifies")
	configPath := flag.String("c", "", "optional YAML receiver config, overridden by any flag set above")
	asciiWN := flag.Int("wn", 0, "GST week number to stamp on ascii-protocol input (ascii lines carry tow only)")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		if *pubKeyPath == "" {
			*pubKeyPath = cfg.PublicKeyFile
		}
		if *rootKeyPath == "" {
			*rootKeyPath = cfg.RootKeyFile
		}
		if *merkleTreePath == "" {
			*merkleTreePath = cfg.MerkleTreeFile
		}
		if *saveKROOTPath == "" {
			*saveKROOTPath = cfg.SaveKROOTFile
		}
		if !*allowGaps && cfg.AllowGaps != nil {
			*allowGaps = *cfg.AllowGaps
		}
	}

	if *pubKeyPath == "" {
		log.Fatalf("-k public-key is required")
	}
	pub, err := kroot.LoadPublicKeyPEM(*pubKeyPath)
	if err != nil {
		log.Fatalf("public key load failed: %v", err)
	}

	verifier := kroot.NewVerifier(pub, 0)
	if *merkleTreePath != "" {
		tree, err := merkle.Load(*merkleTreePath)
		if err != nil {
			log.Fatalf("merkle tree load failed: %v", err)
		}
		verifier.SetMerkleTree(tree)
	}

	var hotStart []byte
	if *rootKeyPath != "" {
		bits, err := kroot.LoadHotStartFile(*rootKeyPath)
		if err != nil {
			slog.Warn("hot-start KROOT file unreadable, falling back to live reassembly", "path", *rootKeyPath, "error", err)
		} else {
			hotStart = bits
		}
	}

	eng := engine.New(engine.Config{
		AllowGaps:     *allowGaps,
		Verifier:      verifier,
		HotStartKROOT: hotStart,
	})
	eng.Subscribe(stdoutSubscriber{})

	src, err := transport.Open(*input)
	if err != nil {
		log.Fatalf("input source failed: %v", err)
	}
	defer src.Close()

	pages, err := transport.NewPageSource(src, *protocol, *asciiWN)
	if err != nil {
		log.Fatalf("page source setup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ch := make(chan page.HalfPage, 4*15)
	errCh := make(chan error, 1)
	go func() {
		defer close(ch)
		for {
			hp, err := pages.Next()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case ch <- hp:
			case <-ctx.Done():
				return
			}
		}
	}()

	runErr := eng.Run(ctx, ch)

	if *saveKROOTPath != "" {
		if bits := eng.LastKROOT(); bits != nil {
			if err := kroot.SaveHotStartFile(*saveKROOTPath, bits); err != nil {
				slog.Warn("save-kroot write failed", "path", *saveKROOTPath, "error", err)
			}
		}
	}

	var sourceErr error
	select {
	case sourceErr = <-errCh:
	default:
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Fatalf("engine run failed: %v", runErr)
	}
	if sourceErr != nil && !errors.Is(sourceErr, io.EOF) {
		os.Exit(1)
	}
}
