package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client drives a RunServer remotely.
type Client struct {
	start      *connect.Client[StartRequest, StartResponse]
	abort      *connect.Client[ControlRequest, ControlResponse]
	pause      *connect.Client[ControlRequest, ControlResponse]
	resume     *connect.Client[ControlRequest, ControlResponse]
	status     *connect.Client[StatusRequest, StatusResponse]
	transcript *connect.Client[TranscriptRequest, TranscriptResponse]
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:7411". A bare host:port gets an http scheme.
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(cborCodec{})
	return &Client{
		start:      connect.NewClient[StartRequest, StartResponse](httpClient, baseURL+StartProcedure, codec),
		abort:      connect.NewClient[ControlRequest, ControlResponse](httpClient, baseURL+AbortProcedure, codec),
		pause:      connect.NewClient[ControlRequest, ControlResponse](httpClient, baseURL+PauseProcedure, codec),
		resume:     connect.NewClient[ControlRequest, ControlResponse](httpClient, baseURL+ResumeProcedure, codec),
		status:     connect.NewClient[StatusRequest, StatusResponse](httpClient, baseURL+StatusProcedure, codec),
		transcript: connect.NewClient[TranscriptRequest, TranscriptResponse](httpClient, baseURL+TranscriptProcedure, codec),
	}
}

// Start submits a YAML program. With wait set the call returns when the
// run ends and carries its output.
func (c *Client) Start(ctx context.Context, program []byte, entry string, wait bool) (*StartResponse, error) {
	resp, err := c.start.CallUnary(ctx, connect.NewRequest(&StartRequest{
		Program: program,
		Entry:   entry,
		Wait:    wait,
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Abort asks the active run to stop.
func (c *Client) Abort(ctx context.Context) (*ControlResponse, error) {
	return c.control(ctx, c.abort)
}

// Pause asks the active run to block at its next checkpoint.
func (c *Client) Pause(ctx context.Context) (*ControlResponse, error) {
	return c.control(ctx, c.pause)
}

// Resume releases a paused run.
func (c *Client) Resume(ctx context.Context) (*ControlResponse, error) {
	return c.control(ctx, c.resume)
}

func (c *Client) control(ctx context.Context, cl *connect.Client[ControlRequest, ControlResponse]) (*ControlResponse, error) {
	resp, err := cl.CallUnary(ctx, connect.NewRequest(&ControlRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Status fetches the snapshot of the current or last run.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	resp, err := c.status.CallUnary(ctx, connect.NewRequest(&StatusRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Transcript fetches a recorded run, or the list of runs when runID is
// empty.
func (c *Client) Transcript(ctx context.Context, runID string) (*TranscriptResponse, error) {
	resp, err := c.transcript.CallUnary(ctx, connect.NewRequest(&TranscriptRequest{RunID: runID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
