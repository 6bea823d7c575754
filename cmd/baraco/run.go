package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tliron/commonlog"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/console"
	"github.com/chazu/baraco/manifest"
	"github.com/chazu/baraco/server"
	"github.com/chazu/baraco/vm"
)

var log = commonlog.GetLogger("baraco.cmd")

// openConsole returns the echo sinks (stdout and stderr when echo is on)
// and the transcript when one is configured. The close function
// releases the transcript.
func openConsole(m *manifest.Manifest) (console.Tee, *console.Transcript, func(), error) {
	var echo console.Tee
	if m.Console.Echo {
		echo = append(echo, console.NewWriter(os.Stdout, os.Stderr))
	}

	var tr *console.Transcript
	if p := m.TranscriptPath(); p != "" {
		var err error
		tr, err = console.OpenTranscript(p)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	closeFn := func() {
		if tr != nil {
			if err := tr.Close(); err != nil {
				log.Errorf("closing transcript: %s", err)
			}
		}
	}
	return echo, tr, closeFn, nil
}

func managerOptions(m *manifest.Manifest) []vm.Option {
	return []vm.Option{
		vm.WithPrecision(m.Run.Precision),
		vm.WithMaxDepth(m.Run.MaxDepth),
		vm.WithHaltOnError(m.Run.HaltOnError),
	}
}

// runLocal runs a program in this process. SIGINT and SIGTERM request
// an abort; the run stops at its next checkpoint.
func runLocal(m *manifest.Manifest, path, entry, snapshotPath string) error {
	prog, err := ast.LoadFile(path)
	if err != nil {
		return err
	}
	img, err := vm.Build(prog, entry)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	sink, tr, closeConsole, err := openConsole(m)
	if err != nil {
		return err
	}
	defer closeConsole()
	if tr != nil {
		sink = append(sink, tr)
	}

	mgr := vm.NewManager(append(managerOptions(m), vm.WithSink(sink))...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		if sig, ok := <-sigChan; ok {
			log.Noticef("%s: aborting run", sig)
			mgr.RequestAbort()
		}
	}()

	runErr := mgr.Start(context.Background(), img)

	if snapshotPath != "" {
		data, err := vm.MarshalSnapshot(mgr.Snapshot())
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapshotPath, data, 0644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}

	switch {
	case runErr == nil:
		return nil
	case vm.IsCancelled(runErr):
		return exitCode(130)
	default:
		// The manager already wrote the failure to the console.
		return exitCode(1)
	}
}

// serve runs the run-control server until the process is interrupted.
func serve(m *manifest.Manifest, addr string) error {
	echo, tr, closeConsole, err := openConsole(m)
	if err != nil {
		return err
	}
	defer closeConsole()

	opts := []server.ServerOption{
		server.WithSink(echo),
		server.WithManagerOptions(managerOptions(m)...),
	}
	if tr != nil {
		opts = append(opts, server.WithTranscript(tr))
	}
	srv := server.New(opts...)
	defer srv.Stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(addr) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case sig := <-sigChan:
		log.Noticef("%s: shutting down", sig)
		return nil
	}
}

func runLSP() error {
	return server.NewLSP().Run()
}
