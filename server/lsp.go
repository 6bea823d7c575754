package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/baraco/ast"
	"github.com/chazu/baraco/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "baraco-lsp"

// document is an open program and the result of its last check.
type document struct {
	text string
	prog *ast.Program // nil when the YAML does not decode
	img  *vm.Image    // nil when the program does not build
}

// LspServer checks YAML programs in the editor: decode and build errors
// become diagnostics, and methods and fields are offered for completion,
// hover, definition and references.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "baraco LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{" ", "{"},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	diags := s.update(string(uri), params.TextDocument.Text)
	s.publish(ctx, uri, diags)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			diags := s.update(string(uri), whole.Text)
			s.publish(ctx, uri, diags)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	s.publish(ctx, uri, []protocol.Diagnostic{})
	return nil
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diags []protocol.Diagnostic) {
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.document(string(params.TextDocument.URI))
	if doc == nil {
		return nil, nil
	}
	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(doc, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.document(string(params.TextDocument.URI))
	if doc == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(doc, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	doc := s.document(string(uri))
	if doc == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	locs := s.definition(doc, uri, word)
	if len(locs) == 0 {
		return nil, nil
	}
	return locs, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	doc := s.document(string(uri))
	if doc == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.references(doc, uri, word), nil
}

// --- Program analysis ---

// update stores the new text, checks it, and returns its diagnostics.
func (s *LspServer) update(uri, text string) []protocol.Diagnostic {
	doc, diags := check(text)

	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return diags
}

func (s *LspServer) document(uri string) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[uri]
}

// check decodes and builds a program. A program without a main method
// still gets completion and hover from its syntax tree.
func check(text string) (*document, []protocol.Diagnostic) {
	doc := &document{text: text}

	prog, err := ast.Decode([]byte(text))
	if err != nil {
		var de *ast.DecodeError
		if errors.As(err, &de) {
			return doc, []protocol.Diagnostic{diagnostic(de.Line, de.Column, de.Msg)}
		}
		return doc, []protocol.Diagnostic{diagnostic(0, 0, err.Error())}
	}
	doc.prog = prog

	img, err := vm.Build(prog, "")
	if err != nil {
		var be *vm.BuildError
		if errors.As(err, &be) {
			return doc, []protocol.Diagnostic{diagnostic(be.Pos.Line, be.Pos.Column, be.Msg)}
		}
		return doc, []protocol.Diagnostic{diagnostic(0, 0, err.Error())}
	}
	doc.img = img
	return doc, nil
}

// diagnostic converts a 1-based source position into an LSP error.
func diagnostic(line, col int, msg string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	pos := lspPosition(ast.Pos{Line: line, Column: col})
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

func lspPosition(p ast.Pos) protocol.Position {
	var line, col int
	if p.Line > 0 {
		line = p.Line - 1
	}
	if p.Column > 0 {
		col = p.Column - 1
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func location(uri protocol.DocumentUri, p ast.Pos) protocol.Location {
	pos := lspPosition(p)
	return protocol.Location{URI: uri, Range: protocol.Range{Start: pos, End: pos}}
}

// methodDetail renders a method's signature, preferring the built form
// which has resolved types.
func methodDetail(doc *document, cls *ast.ClassDecl, md *ast.MethodDecl) string {
	if doc.img != nil {
		if c := doc.img.Class(cls.Name); c != nil {
			if m, err := c.ResolveMethod(md.Name); err == nil {
				return m.Signature()
			}
		}
	}
	params := make([]string, len(md.Params))
	for i, p := range md.Params {
		params[i] = p.Type.String() + " " + p.Name
	}
	return fmt.Sprintf("%s %s(%s)", md.Returns, md.Name, strings.Join(params, ", "))
}

func (s *LspServer) complete(doc *document, prefix string) []protocol.CompletionItem {
	if doc.prog == nil {
		return nil
	}
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)
	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	for _, cls := range doc.prog.Classes {
		add(cls.Name, "class", protocol.CompletionItemKindClass)
		for _, f := range cls.Fields {
			add(f.Name, fmt.Sprintf("%s %s.%s", f.Type, cls.Name, f.Name), protocol.CompletionItemKindField)
		}
		for _, md := range cls.Methods {
			add(md.Name, methodDetail(doc, cls, md), protocol.CompletionItemKindMethod)
		}
	}
	for _, t := range []string{"int", "decimal", "boolean", "char", "String", "void"} {
		add(t, "type", protocol.CompletionItemKindKeyword)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func (s *LspServer) hover(doc *document, word string) *protocol.Hover {
	if doc.prog == nil {
		return nil
	}

	var b strings.Builder
	for _, cls := range doc.prog.Classes {
		if cls.Name == word {
			fmt.Fprintf(&b, "**%s**\n\n", cls.Name)
			if len(cls.Fields) > 0 {
				names := make([]string, len(cls.Fields))
				for i, f := range cls.Fields {
					names[i] = f.Type.String() + " " + f.Name
				}
				fmt.Fprintf(&b, "Fields: `%s`\n\n", strings.Join(names, "`, `"))
			}
			fmt.Fprintf(&b, "%d methods", len(cls.Methods))
			continue
		}
		for _, md := range cls.Methods {
			if md.Name == word {
				fmt.Fprintf(&b, "```\n%s\n```\n\ndefined in %s\n\n", methodDetail(doc, cls, md), cls.Name)
			}
		}
		for _, f := range cls.Fields {
			if f.Name == word {
				fmt.Fprintf(&b, "field `%s %s.%s`\n\n", f.Type, cls.Name, f.Name)
			}
		}
	}

	if b.Len() == 0 {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.TrimSpace(b.String()),
		},
	}
}

func (s *LspServer) definition(doc *document, uri protocol.DocumentUri, word string) []protocol.Location {
	if doc.prog == nil {
		return nil
	}
	var locations []protocol.Location
	for _, cls := range doc.prog.Classes {
		if cls.Name == word {
			locations = append(locations, location(uri, cls.Pos))
		}
		for _, f := range cls.Fields {
			if f.Name == word {
				locations = append(locations, location(uri, f.Pos))
			}
		}
		for _, md := range cls.Methods {
			if md.Name == word {
				locations = append(locations, location(uri, md.Pos))
			}
		}
	}
	return locations
}

// references finds the calls of a method name and the uses of a field
// name across all method bodies.
func (s *LspServer) references(doc *document, uri protocol.DocumentUri, word string) []protocol.Location {
	if doc.prog == nil {
		return nil
	}
	var locations []protocol.Location
	for _, cls := range doc.prog.Classes {
		for _, md := range cls.Methods {
			ast.Inspect(md.Body, func(n ast.Node) bool {
				switch e := n.(type) {
				case *ast.Call:
					if e.Name == word {
						locations = append(locations, location(uri, e.Pos))
					}
				case *ast.Ident:
					if e.Name == word {
						locations = append(locations, location(uri, e.Pos))
					}
				}
				return true
			})
		}
	}
	return locations
}

// --- Text extraction helpers ---

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
