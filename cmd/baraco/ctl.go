package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/chazu/baraco/server"
)

// control sends one run-control request and prints the result.
func control(addr, action, runID string) error {
	c := server.NewClient(http.DefaultClient, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		resp *server.ControlResponse
		err  error
	)
	switch action {
	case "abort":
		resp, err = c.Abort(ctx)
	case "pause":
		resp, err = c.Pause(ctx)
	case "resume":
		resp, err = c.Resume(ctx)
	case "status":
		return printStatus(ctx, c)
	case "transcript":
		return printTranscript(ctx, c, runID)
	default:
		return fmt.Errorf("unknown control action %q (want abort, pause, resume, status or transcript)", action)
	}
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %s\n", resp.RunID, resp.State)
	return nil
}

func printStatus(ctx context.Context, c *server.Client) error {
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	snap := st.Snapshot
	fmt.Printf("run:         %s\n", snap.RunID)
	fmt.Printf("state:       %s\n", snap.State)
	fmt.Printf("elapsed:     %dms\n", snap.ElapsedMillis)
	fmt.Printf("checkpoints: %d\n", snap.Checkpoints)
	if snap.Current != "" {
		fmt.Printf("current:     %s\n", snap.Current)
	}
	if len(snap.Stack) > 0 {
		fmt.Printf("stack:       %s\n", strings.Join(snap.Stack, " > "))
	}
	if snap.Error != "" {
		fmt.Printf("error:       %s\n", snap.Error)
	}
	if len(snap.Fields) > 0 {
		names := make([]string, 0, len(snap.Fields))
		for name := range snap.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("fields:")
		for _, name := range names {
			fmt.Printf("  %s = %s\n", name, snap.Fields[name])
		}
	}
	if st.Output != "" {
		fmt.Println("output:")
		fmt.Print(st.Output)
	}
	return nil
}

func printTranscript(ctx context.Context, c *server.Client, runID string) error {
	tr, err := c.Transcript(ctx, runID)
	if err != nil {
		return err
	}
	if runID == "" {
		for _, id := range tr.Runs {
			fmt.Println(id)
		}
		return nil
	}
	for _, e := range tr.Entries {
		if e.Kind == "diagnostic" {
			fmt.Fprintf(os.Stderr, "error: %s\n", e.Text)
			continue
		}
		fmt.Print(e.Text)
	}
	return nil
}

// startRemote submits a program to a server and waits for it to finish.
func startRemote(addr, path, entry string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c := server.NewClient(http.DefaultClient, addr)
	resp, err := c.Start(context.Background(), data, entry, true)
	if err != nil {
		return err
	}
	fmt.Print(resp.Output)
	for _, d := range resp.Diagnostics {
		fmt.Fprintf(os.Stderr, "error: %s\n", d)
	}
	switch resp.State {
	case "completed":
		return nil
	case "aborted":
		return exitCode(130)
	default:
		return exitCode(1)
	}
}
