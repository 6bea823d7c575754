package server

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/chazu/baraco/console"
	"github.com/chazu/baraco/vm"
)

// RunServer exposes an interpreter's execution manager over connect
// with a CBOR codec. One run is active at a time.
type RunServer struct {
	worker  *RunWorker
	buffer  *console.Buffer
	service *RunControlService
	mux     *http.ServeMux

	cancelRuns context.CancelFunc
}

// ServerOption configures a RunServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	sink        console.Sink
	transcript  *console.Transcript
	managerOpts []vm.Option
}

// WithSink adds a console that receives every run's output alongside the
// server's own buffer, e.g. a Writer echoing to stdout.
func WithSink(s console.Sink) ServerOption {
	return func(c *serverConfig) { c.sink = s }
}

// WithTranscript records every run in the transcript database and serves
// it through the Transcript procedure.
func WithTranscript(t *console.Transcript) ServerOption {
	return func(c *serverConfig) { c.transcript = t }
}

// WithManagerOptions passes options such as precision and max depth to
// the execution manager.
func WithManagerOptions(opts ...vm.Option) ServerOption {
	return func(c *serverConfig) { c.managerOpts = append(c.managerOpts, opts...) }
}

// New creates a RunServer with a fresh execution manager.
func New(opts ...ServerOption) *RunServer {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	buffer := &console.Buffer{}
	sink := console.Tee{buffer}
	if cfg.sink != nil {
		sink = append(sink, cfg.sink)
	}
	if cfg.transcript != nil {
		sink = append(sink, cfg.transcript)
	}
	mgrOpts := append([]vm.Option{vm.WithSink(sink)}, cfg.managerOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	worker := NewRunWorker(vm.NewManager(mgrOpts...))
	svc := NewRunControlService(ctx, worker, buffer, cfg.transcript)

	s := &RunServer{
		worker:     worker,
		buffer:     buffer,
		service:    svc,
		mux:        http.NewServeMux(),
		cancelRuns: cancel,
	}

	codec := connect.WithCodec(cborCodec{})
	s.mux.Handle(StartProcedure, connect.NewUnaryHandler(StartProcedure, svc.Start, codec))
	s.mux.Handle(AbortProcedure, connect.NewUnaryHandler(AbortProcedure, svc.Abort, codec))
	s.mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, svc.Pause, codec))
	s.mux.Handle(ResumeProcedure, connect.NewUnaryHandler(ResumeProcedure, svc.Resume, codec))
	s.mux.Handle(StatusProcedure, connect.NewUnaryHandler(StatusProcedure, svc.Status, codec))
	s.mux.Handle(TranscriptProcedure, connect.NewUnaryHandler(TranscriptProcedure, svc.Transcript, codec))

	return s
}

// Handler returns the HTTP handler serving all procedures.
func (s *RunServer) Handler() http.Handler {
	return s.mux
}

// Manager returns the execution manager, e.g. for a signal handler.
func (s *RunServer) Manager() *vm.Manager {
	return s.worker.Manager()
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *RunServer) ListenAndServe(addr string) error {
	log.Noticef("baraco run-control server listening on %s", addr)
	log.Infof("  start: http://%s%s", addr, StartProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop aborts any active run and shuts down the worker.
func (s *RunServer) Stop() {
	s.worker.Manager().RequestAbort()
	s.cancelRuns()
	s.worker.Stop()
}
