package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "sums"
program = "prog.yaml"
entry = "Main.start"

[run]
precision = 50
max-depth = 64
halt-on-error = true

[console]
echo = false
transcript = "out/transcript.db"

[log]
verbosity = 2
file = "/var/log/baraco.log"

[server]
addr = ":9000"
`
	if err := os.WriteFile(filepath.Join(dir, "baraco.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "sums" {
		t.Errorf("project name = %q, want sums", m.Project.Name)
	}
	if m.Project.Entry != "Main.start" {
		t.Errorf("project entry = %q, want Main.start", m.Project.Entry)
	}
	if m.ProgramPath() != filepath.Join(m.Dir, "prog.yaml") {
		t.Errorf("program path = %q", m.ProgramPath())
	}
	if m.Run.Precision != 50 || m.Run.MaxDepth != 64 || !m.Run.HaltOnError {
		t.Errorf("run = %+v", m.Run)
	}
	if m.Console.Echo {
		t.Error("console echo = true, want false")
	}
	if m.TranscriptPath() != filepath.Join(m.Dir, "out", "transcript.db") {
		t.Errorf("transcript path = %q", m.TranscriptPath())
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if m.LogPath() != "/var/log/baraco.log" {
		t.Errorf("log path = %q, want absolute path unchanged", m.LogPath())
	}
	if m.Server.Addr != ":9000" {
		t.Errorf("server addr = %q, want :9000", m.Server.Addr)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, "baraco.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Run.Precision != 34 {
		t.Errorf("default precision = %d, want 34", m.Run.Precision)
	}
	if m.Run.MaxDepth != 1024 {
		t.Errorf("default max-depth = %d, want 1024", m.Run.MaxDepth)
	}
	if !m.Console.Echo {
		t.Error("default echo = false, want true")
	}
	if m.TranscriptPath() != "" {
		t.Errorf("default transcript = %q, want none", m.TranscriptPath())
	}
	if m.Server.Addr != "localhost:7411" {
		t.Errorf("default addr = %q", m.Server.Addr)
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "baraco.toml"), []byte("[run\nprecision = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load succeeded on malformed toml")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "baraco.toml"), []byte("[project]\nname = \"found\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found" {
		t.Errorf("project name = %q, want found", m.Project.Name)
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.Run.Precision != 34 || !m.Console.Echo {
		t.Errorf("Default() = %+v", m)
	}
	if m.ProgramPath() != "" {
		t.Errorf("Default program path = %q, want empty", m.ProgramPath())
	}
}
