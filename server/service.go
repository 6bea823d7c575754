package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/console"
	"github.com/chazu/baraco/vm"
)

var log = commonlog.GetLogger("baraco.server")

// Procedure paths of the run-control service.
const (
	ServiceName         = "baraco.v1.RunControl"
	StartProcedure      = "/" + ServiceName + "/Start"
	AbortProcedure      = "/" + ServiceName + "/Abort"
	PauseProcedure      = "/" + ServiceName + "/Pause"
	ResumeProcedure     = "/" + ServiceName + "/Resume"
	StatusProcedure     = "/" + ServiceName + "/Status"
	TranscriptProcedure = "/" + ServiceName + "/Transcript"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// StartRequest carries a YAML program to run.
type StartRequest struct {
	Program []byte `cbor:"1,keyasint"`
	Entry   string `cbor:"2,keyasint,omitempty"` // "Class.method"; empty selects main
	Wait    bool   `cbor:"3,keyasint,omitempty"` // respond when the run ends
}

// StartResponse reports the run id, and the outcome when the request
// waited for the run.
type StartResponse struct {
	RunID       string   `cbor:"1,keyasint"`
	State       string   `cbor:"2,keyasint"`
	Output      string   `cbor:"3,keyasint,omitempty"`
	Diagnostics []string `cbor:"4,keyasint,omitempty"`
	Error       string   `cbor:"5,keyasint,omitempty"`
}

// ControlRequest is the empty body of Abort, Pause and Resume.
type ControlRequest struct{}

// ControlResponse reports the state after a control request.
type ControlResponse struct {
	RunID string `cbor:"1,keyasint"`
	State string `cbor:"2,keyasint"`
}

// StatusRequest asks for the current snapshot.
type StatusRequest struct{}

// StatusResponse is the run snapshot plus the console output so far.
type StatusResponse struct {
	Snapshot    vm.Snapshot `cbor:"1,keyasint"`
	Output      string      `cbor:"2,keyasint,omitempty"`
	Diagnostics []string    `cbor:"3,keyasint,omitempty"`
}

// TranscriptRequest asks for the recorded console of a run. An empty
// RunID lists the recorded runs instead.
type TranscriptRequest struct {
	RunID string `cbor:"1,keyasint,omitempty"`
}

// TranscriptEntry is one recorded console line.
type TranscriptEntry struct {
	Kind string `cbor:"1,keyasint"`
	Text string `cbor:"2,keyasint"`
}

// TranscriptResponse holds either the entries of one run or the run ids.
type TranscriptResponse struct {
	Runs    []string          `cbor:"1,keyasint,omitempty"`
	Entries []TranscriptEntry `cbor:"2,keyasint,omitempty"`
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// RunControlService starts and steers interpreter runs. Runs execute on
// the worker goroutine; control calls reach the manager directly.
type RunControlService struct {
	worker     *RunWorker
	buffer     *console.Buffer
	transcript *console.Transcript // may be nil

	// runCtx outlives requests that do not wait; cancelled on Stop.
	runCtx context.Context
}

// NewRunControlService creates the service. buffer must be part of the
// manager's sink so Status can report output.
func NewRunControlService(ctx context.Context, worker *RunWorker, buffer *console.Buffer, transcript *console.Transcript) *RunControlService {
	return &RunControlService{
		worker:     worker,
		buffer:     buffer,
		transcript: transcript,
		runCtx:     ctx,
	}
}

// Start decodes and builds the program, then runs it on the worker. With
// Wait unset it responds as soon as the run is scheduled.
func (s *RunControlService) Start(
	ctx context.Context,
	req *connect.Request[StartRequest],
) (*connect.Response[StartResponse], error) {
	if len(req.Msg.Program) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program is required"))
	}

	prog, err := ast.Decode(req.Msg.Program)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	img, err := vm.Build(prog, req.Msg.Entry)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	mgr := s.worker.Manager()
	run, err := mgr.Prepare(img)
	if errors.Is(err, vm.ErrAlreadyRunning) {
		return nil, connect.NewError(connect.CodeFailedPrecondition, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.buffer.Reset()

	done := s.worker.Go(func(*vm.Manager) error {
		return run.Execute(s.runCtx)
	})
	log.Infof("scheduled run %s", run.ID)

	resp := &StartResponse{RunID: run.ID, State: vm.Running.String()}
	if !req.Msg.Wait {
		return connect.NewResponse(resp), nil
	}

	var runErr error
	select {
	case runErr = <-done:
	case <-ctx.Done():
		// The waiting client went away; its run goes with it.
		mgr.RequestAbort()
		<-done
		return nil, connect.NewError(connect.CodeCanceled, ctx.Err())
	}

	resp.State = mgr.State().String()
	resp.Output = s.buffer.Output()
	resp.Diagnostics = s.buffer.Diagnostics()
	if runErr != nil && !vm.IsCancelled(runErr) {
		resp.Error = runErr.Error()
	}
	return connect.NewResponse(resp), nil
}

// Abort requests the current run to stop at its next checkpoint.
func (s *RunControlService) Abort(
	ctx context.Context,
	req *connect.Request[ControlRequest],
) (*connect.Response[ControlResponse], error) {
	s.worker.Manager().RequestAbort()
	return connect.NewResponse(s.control()), nil
}

// Pause requests the current run to block at its next checkpoint.
func (s *RunControlService) Pause(
	ctx context.Context,
	req *connect.Request[ControlRequest],
) (*connect.Response[ControlResponse], error) {
	s.worker.Manager().RequestPause()
	return connect.NewResponse(s.control()), nil
}

// Resume releases a paused run.
func (s *RunControlService) Resume(
	ctx context.Context,
	req *connect.Request[ControlRequest],
) (*connect.Response[ControlResponse], error) {
	s.worker.Manager().Resume()
	return connect.NewResponse(s.control()), nil
}

func (s *RunControlService) control() *ControlResponse {
	mgr := s.worker.Manager()
	return &ControlResponse{RunID: mgr.RunID(), State: mgr.State().String()}
}

// Status returns the snapshot of the current or last run.
func (s *RunControlService) Status(
	ctx context.Context,
	req *connect.Request[StatusRequest],
) (*connect.Response[StatusResponse], error) {
	return connect.NewResponse(&StatusResponse{
		Snapshot:    s.worker.Manager().Snapshot(),
		Output:      s.buffer.Output(),
		Diagnostics: s.buffer.Diagnostics(),
	}), nil
}

// Transcript reads the recorded console from the transcript database.
func (s *RunControlService) Transcript(
	ctx context.Context,
	req *connect.Request[TranscriptRequest],
) (*connect.Response[TranscriptResponse], error) {
	if s.transcript == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("no transcript configured"))
	}

	if req.Msg.RunID == "" {
		runs, err := s.transcript.Runs()
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		return connect.NewResponse(&TranscriptResponse{Runs: runs}), nil
	}

	entries, err := s.transcript.Entries(req.Msg.RunID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if len(entries) == 0 {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no transcript for run %s", req.Msg.RunID))
	}
	resp := &TranscriptResponse{Entries: make([]TranscriptEntry, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = TranscriptEntry{Kind: e.Kind.String(), Text: e.Text}
	}
	return connect.NewResponse(resp), nil
}
