package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// Each test gets its own RunServer behind an httptest server, since a
// manager holds at most one run and tests must not observe each other's
// state.
// ---------------------------------------------------------------------------

const countProgram = `class: Main
methods:
  - name: main
    body:
      - {decl: int, name: sum, value: 0}
      - for:
          init: {decl: int, name: i, value: 0}
          cond: {op: "<", l: i, r: 3}
          update: {incr: i}
          body:
            - set: sum
              value: {op: "+", l: sum, r: i}
      - println: sum
`

// spinProgram never finishes on its own.
const spinProgram = `class: Main
fields:
  - {decl: int, name: n, value: 0}
methods:
  - name: main
    body:
      - while: true
        body:
          - {incr: n}
`

func newTestServer(t *testing.T, opts ...ServerOption) (*RunServer, *Client) {
	t.Helper()
	s := New(opts...)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		hs.Close()
		s.Stop()
	})
	return s, NewClient(hs.Client(), hs.URL)
}

// waitForState polls Status until the run reaches want.
func waitForState(t *testing.T, c *Client, want string) *StatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := c.Status(context.Background())
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if st.Snapshot.State == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("state = %q, want %q", st.Snapshot.State, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
