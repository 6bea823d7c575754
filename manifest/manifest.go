// Package manifest handles baraco.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "baraco.toml"

// Manifest represents a baraco.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Run     RunConfig     `toml:"run"`
	Console ConsoleConfig `toml:"console"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`

	// Dir is the directory containing the baraco.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Program string `toml:"program"` // YAML program file
	Entry   string `toml:"entry"`   // "Class.method"; empty selects main
}

// RunConfig tunes the interpreter.
type RunConfig struct {
	Precision   uint32 `toml:"precision"`
	MaxDepth    int    `toml:"max-depth"`
	HaltOnError bool   `toml:"halt-on-error"`
}

// ConsoleConfig selects where program output goes.
type ConsoleConfig struct {
	Echo       bool   `toml:"echo"`
	Transcript string `toml:"transcript"` // SQLite file; empty disables
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// ServerConfig configures the run-control server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no baraco.toml exists.
func Default() *Manifest {
	m := &Manifest{Console: ConsoleConfig{Echo: true}}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Run.Precision == 0 {
		m.Run.Precision = 34
	}
	if m.Run.MaxDepth == 0 {
		m.Run.MaxDepth = 1024
	}
	if m.Server.Addr == "" {
		m.Server.Addr = "localhost:7411"
	}
}

// Load parses a baraco.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	// Echo defaults to on; an explicit false in the file wins.
	m := Manifest{Console: ConsoleConfig{Echo: true}}
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a baraco.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// resolve makes p absolute relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// ProgramPath returns the configured program file, or "".
func (m *Manifest) ProgramPath() string {
	return m.resolve(m.Project.Program)
}

// TranscriptPath returns the transcript database path, or "".
func (m *Manifest) TranscriptPath() string {
	return m.resolve(m.Console.Transcript)
}

// LogPath returns the log file path, or "" for stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.File)
}
