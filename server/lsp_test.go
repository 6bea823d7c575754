package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "println: total", protocol.Position{Line: 0, Character: 14}, "total"},
		{"at start", "tot", protocol.Position{Line: 0, Character: 3}, "tot"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"multi line", "first line\nsecond line\nhel", protocol.Position{Line: 2, Character: 3}, "hel"},
		{"after brace", "{call: hel", protocol.Position{Line: 0, Character: 10}, "hel"},
		{"cursor at beginning", "hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
		{"column past end", "abc", protocol.Position{Line: 0, Character: 40}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractPrefix(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractPrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"middle of word", "call: helper", protocol.Position{Line: 0, Character: 8}, "helper"},
		{"at end", "helper", protocol.Position{Line: 0, Character: 6}, "helper"},
		{"on colon", "a: b", protocol.Position{Line: 0, Character: 1}, "a"},
		{"underscore", "x my_var y", protocol.Position{Line: 0, Character: 4}, "my_var"},
		{"second line", "one\ntwo three", protocol.Position{Line: 1, Character: 5}, "three"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "x", protocol.Position{Line: 3, Character: 0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractWord(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractWord = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Error("boolPtr(true) did not return a pointer to true")
	}
}

// ---------------------------------------------------------------------------
// Program analysis
// ---------------------------------------------------------------------------

const lspProgram = `class: Main
fields:
  - {decl: int, name: total, value: 0}
methods:
  - name: main
    body:
      - set: total
        value: {call: twice, args: [total]}
      - println: total
  - name: twice
    returns: int
    params:
      - {type: int, name: n}
    body:
      - return: {op: "*", l: n, r: 2}
`

func newTestLSP(t *testing.T, uri, text string) *LspServer {
	t.Helper()
	s := &LspServer{docs: make(map[string]*document)}
	s.update(uri, text)
	return s
}

func TestLSP_CheckCleanProgram(t *testing.T) {
	doc, diags := check(lspProgram)
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %+v, want none", diags)
	}
	if doc.prog == nil || doc.img == nil {
		t.Fatal("clean program did not decode and build")
	}
}

func TestLSP_CheckReportsPositions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line protocol.UInteger
		want string
	}{
		{"decode error", "class: Main\nmethods:\n  - name: main\n    body:\n      - {jump: x}\n", 4, "unknown statement"},
		{"build error", "class: Main\nmethods:\n  - name: main\n    returns: widget\n", 2, "unknown return type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := check(tt.src)
			if len(diags) != 1 {
				t.Fatalf("got %d diagnostics, want 1", len(diags))
			}
			d := diags[0]
			if !strings.Contains(d.Message, tt.want) {
				t.Errorf("message = %q, want it to mention %q", d.Message, tt.want)
			}
			if d.Range.Start.Line != tt.line {
				t.Errorf("line = %d, want %d", d.Range.Start.Line, tt.line)
			}
			if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
				t.Error("diagnostic is not an error")
			}
		})
	}
}

func TestLSP_Complete(t *testing.T) {
	s := newTestLSP(t, "file:///p.yaml", lspProgram)
	doc := s.document("file:///p.yaml")

	items := s.complete(doc, "tw")
	if len(items) != 1 || items[0].Label != "twice" {
		t.Fatalf("complete(tw) = %+v, want [twice]", items)
	}
	if *items[0].Detail != "int twice(int n)" {
		t.Errorf("detail = %q, want the built signature", *items[0].Detail)
	}

	items = s.complete(doc, "to")
	if len(items) != 1 || *items[0].Kind != protocol.CompletionItemKindField {
		t.Errorf("complete(to) = %+v, want the total field", items)
	}
	if items := s.complete(doc, "zzz"); len(items) != 0 {
		t.Errorf("complete(zzz) = %d items, want 0", len(items))
	}
}

func TestLSP_Hover(t *testing.T) {
	s := newTestLSP(t, "file:///p.yaml", lspProgram)
	doc := s.document("file:///p.yaml")

	h := s.hover(doc, "twice")
	if h == nil {
		t.Fatal("hover(twice) = nil")
	}
	content := h.Contents.(protocol.MarkupContent)
	if !strings.Contains(content.Value, "int twice(int n)") {
		t.Errorf("hover = %q, want the signature", content.Value)
	}

	h = s.hover(doc, "Main")
	if h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "2 methods") {
		t.Errorf("hover(Main) = %+v", h)
	}

	if s.hover(doc, "nothing") != nil {
		t.Error("hover on an unknown word returned content")
	}
}

func TestLSP_DefinitionAndReferences(t *testing.T) {
	uri := protocol.DocumentUri("file:///p.yaml")
	s := newTestLSP(t, string(uri), lspProgram)
	doc := s.document(string(uri))

	defs := s.definition(doc, uri, "twice")
	if len(defs) != 1 {
		t.Fatalf("definition(twice) = %d locations, want 1", len(defs))
	}
	if defs[0].Range.Start.Line != 9 {
		t.Errorf("twice defined on line %d, want 9", defs[0].Range.Start.Line)
	}

	refs := s.references(doc, uri, "total")
	if len(refs) != 3 {
		t.Errorf("references(total) = %d, want 3", len(refs))
	}
	if refs := s.references(doc, uri, "twice"); len(refs) != 1 {
		t.Errorf("references(twice) = %d, want 1", len(refs))
	}
}

func TestLSP_DocumentStore(t *testing.T) {
	s := newTestLSP(t, "file:///broken.yaml", "- not a class\n")
	doc := s.document("file:///broken.yaml")
	if doc == nil {
		t.Fatal("document not stored")
	}
	if doc.prog != nil {
		t.Error("broken document has a program")
	}
	if items := s.complete(doc, "a"); items != nil {
		t.Errorf("complete on a broken document = %+v, want nil", items)
	}
	if s.document("file:///missing.yaml") != nil {
		t.Error("unknown URI returned a document")
	}
}
