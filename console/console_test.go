package console

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestWriterSplitsDiagnostics(t *testing.T) {
	var out, diag bytes.Buffer
	w := NewWriter(&out, &diag)

	if err := w.Write(Entry{Kind: Output, Text: "7\n"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Entry{Kind: Diagnostic, Text: "index error"}); err != nil {
		t.Fatal(err)
	}

	if out.String() != "7\n" {
		t.Errorf("out = %q, want %q", out.String(), "7\n")
	}
	if diag.String() != "error: index error\n" {
		t.Errorf("diag = %q, want %q", diag.String(), "error: index error\n")
	}
}

func TestBufferAndTee(t *testing.T) {
	var a, b Buffer
	tee := Tee{&a, &b}

	tee.Write(Entry{Kind: Output, Text: "a"})
	tee.Write(Entry{Kind: Output, Text: "1\n"})
	tee.Write(Entry{Kind: Diagnostic, Text: "boom"})

	for _, buf := range []*Buffer{&a, &b} {
		if buf.Output() != "a1\n" {
			t.Errorf("Output() = %q, want %q", buf.Output(), "a1\n")
		}
		if d := buf.Diagnostics(); len(d) != 1 || d[0] != "boom" {
			t.Errorf("Diagnostics() = %v, want [boom]", d)
		}
	}

	if err := tee.BeginRun("r1"); err != nil {
		t.Fatal(err)
	}
	if len(a.Entries()) != 0 {
		t.Errorf("BeginRun left %d entries", len(a.Entries()))
	}
}

func TestTeeReportsFirstError(t *testing.T) {
	failing := SinkFunc(func(Entry) error { return errors.New("disk full") })
	var buf Buffer
	err := Tee{failing, &buf}.Write(Entry{Kind: Output, Text: "x"})
	if err == nil {
		t.Fatal("Tee.Write succeeded, want error")
	}
	if buf.Output() != "x" {
		t.Errorf("later sink skipped: Output() = %q", buf.Output())
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.db")
	tr, err := OpenTranscript(path)
	if err != nil {
		t.Fatalf("OpenTranscript: %v", err)
	}
	defer tr.Close()

	if err := tr.Write(Entry{Text: "early"}); !errors.Is(err, ErrNoRun) {
		t.Errorf("Write before BeginRun err = %v, want ErrNoRun", err)
	}

	if err := tr.BeginRun("run-1"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	tr.Write(Entry{Kind: Output, Text: "3\n"})
	tr.Write(Entry{Kind: Diagnostic, Text: "type mismatch"})

	if err := tr.BeginRun("run-2"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	tr.Write(Entry{Kind: Output, Text: "other\n"})

	got, err := tr.Entries("run-1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("run-1 has %d entries, want 2", len(got))
	}
	if got[0].Kind != Output || got[0].Text != "3\n" {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if got[1].Kind != Diagnostic || got[1].Text != "type mismatch" {
		t.Errorf("entry 1 = %+v", got[1])
	}

	runs, err := tr.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Runs() = %v, want 2 ids", runs)
	}
}
