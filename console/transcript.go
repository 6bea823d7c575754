package console

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoRun is returned when a transcript is written before BeginRun.
var ErrNoRun = errors.New("transcript: no run started")

// Transcript records entries in a SQLite database, one row per entry,
// grouped by run id.
type Transcript struct {
	db    *sql.DB
	path  string
	mu    sync.Mutex
	runID string
	seq   int
}

// OpenTranscript opens (creating if needed) the transcript database at
// path.
func OpenTranscript(path string) (*Transcript, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating entries table: %w", err)
	}

	return &Transcript{db: db, path: path}, nil
}

// Close closes the database.
func (t *Transcript) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// BeginRun starts a new group of entries.
func (t *Transcript) BeginRun(runID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.db.Exec(
		"INSERT OR REPLACE INTO runs (id, started_at) VALUES (?, ?)",
		runID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	t.runID = runID
	t.seq = 0
	log.Debugf("transcript %s: run %s", t.path, runID)
	return nil
}

func (t *Transcript) Write(e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runID == "" {
		return ErrNoRun
	}
	_, err := t.db.Exec(
		"INSERT INTO entries (run_id, seq, kind, text) VALUES (?, ?, ?, ?)",
		t.runID, t.seq, e.Kind.String(), e.Text,
	)
	if err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	t.seq++
	return nil
}

// Entries returns the entries of a run in write order.
func (t *Transcript) Entries(runID string) ([]Entry, error) {
	rows, err := t.db.Query(
		"SELECT kind, text FROM entries WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var kind, text string
		if err := rows.Scan(&kind, &text); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		k, err := ParseEntryKind(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Kind: k, Text: text})
	}
	return out, rows.Err()
}

// Runs returns the recorded run ids, oldest first.
func (t *Transcript) Runs() ([]string, error) {
	rows, err := t.db.Query("SELECT id FROM runs ORDER BY started_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
