// Baraco CLI - runs YAML programs and controls runs on a server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/baraco/manifest"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	configDir := flag.String("c", ".", "Directory to search upwards for "+manifest.FileName)
	verbose := flag.Int("v", -1, "Log verbosity (0 = errors only); overrides [log] verbosity")
	entry := flag.String("entry", "", "Entry method (e.g. 'Main.start' or just 'start')")
	serveMode := flag.Bool("serve", false, "Start the run-control server")
	lspMode := flag.Bool("lsp", false, "Start the program checking language server on stdio")
	ctl := flag.String("ctl", "", "Control a server run: abort, pause, resume, status, transcript")
	addr := flag.String("addr", "", "Server address (default from [server] addr)")
	snapshot := flag.String("snapshot", "", "Write the final run snapshot (CBOR) to this file")
	runID := flag.String("run", "", "Run id for -ctl transcript")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: baraco [options] [program.yaml]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a YAML program. Without an argument the program named in\n")
		fmt.Fprintf(os.Stderr, "%s ([project] program) is run.\n\n", manifest.FileName)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  baraco prog.yaml                  # Run prog.yaml, entry main\n")
		fmt.Fprintf(os.Stderr, "  baraco -entry Main.start prog.yaml\n")
		fmt.Fprintf(os.Stderr, "  baraco -snapshot run.cbor prog.yaml\n")
		fmt.Fprintf(os.Stderr, "\nRun control:\n")
		fmt.Fprintf(os.Stderr, "  baraco -serve                     # Serve on [server] addr\n")
		fmt.Fprintf(os.Stderr, "  baraco -addr host:7411 prog.yaml  # Start prog.yaml on a server\n")
		fmt.Fprintf(os.Stderr, "  baraco -ctl pause                 # Pause the server's run\n")
		fmt.Fprintf(os.Stderr, "  baraco -ctl transcript -run ID    # Print a recorded run\n")
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		m = manifest.Default()
	}

	verbosity := m.Log.Verbosity
	if *verbose >= 0 {
		verbosity = *verbose
	}
	var logPath *string
	if p := m.LogPath(); p != "" {
		logPath = &p
	}
	commonlog.Configure(verbosity, logPath)

	if *addr == "" {
		*addr = m.Server.Addr
	}
	if *entry == "" {
		*entry = m.Project.Entry
	}

	switch {
	case *lspMode:
		err = runLSP()
	case *serveMode:
		err = serve(m, *addr)
	case *ctl != "":
		err = control(*addr, *ctl, *runID)
	default:
		path := m.ProgramPath()
		if flag.NArg() > 0 {
			path = flag.Arg(0)
		}
		if path == "" {
			flag.Usage()
			os.Exit(2)
		}
		if isFlagSet("addr") {
			err = startRemote(*addr, path, *entry)
		} else {
			err = runLocal(m, path, *entry, *snapshot)
		}
	}

	if err != nil {
		if code, ok := err.(exitCode); ok {
			os.Exit(int(code))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// exitCode ends the process quietly with a status; the run has already
// reported its outcome on the console.
type exitCode int

func (c exitCode) Error() string { return fmt.Sprintf("exit status %d", int(c)) }

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
