package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Run statuses. Every invocation that reaches the API writes a row; failed
// calls are recorded with StatusError and the failure reason.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one saved journal entry. Rows are append-only: the system has no
// edit or delete operation.
type Entry struct {
	Date       string
	Text       string
	Emotion    string
	Suggestion string
}

// RunRecord is one audit row for a model invocation. RawResponse holds the
// upstream text byte-for-byte; all parsing happens downstream of it.
type RunRecord struct {
	Timestamp     string
	PromptVersion string
	Model         string
	Temperature   float64
	MaxTokens     int
	UserInput     string
	RawRequest    string
	RawResponse   string
	Status        string
	Error         string
}

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.ensureMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			date TEXT NOT NULL,
			entry TEXT NOT NULL,
			emotion TEXT NOT NULL,
			suggestion TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date)`,
		`CREATE TABLE IF NOT EXISTS runlog (
			timestamp TEXT NOT NULL,
			prompt_version TEXT NOT NULL,
			model TEXT NOT NULL,
			temperature REAL NOT NULL,
			max_tokens INTEGER NOT NULL,
			user_input TEXT NOT NULL,
			raw_request TEXT NOT NULL,
			raw_response TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ok',
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runlog_timestamp ON runlog(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_runlog_version ON runlog(prompt_version)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// ensureMigrations adds the status/error audit columns to runlog tables
// created before they existed.
func (s *Store) ensureMigrations() error {
	cols, err := s.tableColumns("runlog")
	if err != nil {
		return err
	}
	if !cols["status"] {
		if _, err := s.db.Exec(`ALTER TABLE runlog ADD COLUMN status TEXT NOT NULL DEFAULT 'ok'`); err != nil {
			return fmt.Errorf("add runlog status column: %w", err)
		}
	}
	if !cols["error"] {
		if _, err := s.db.Exec(`ALTER TABLE runlog ADD COLUMN error TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add runlog error column: %w", err)
		}
	}
	return nil
}

func (s *Store) tableColumns(table string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return cols, nil
}

func (s *Store) InsertEntry(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(e.Text) == "" {
		return fmt.Errorf("insert entry: empty text")
	}
	_, err := s.db.Exec(`
		INSERT INTO entries (date, entry, emotion, suggestion)
		VALUES (?, ?, ?, ?)
	`, e.Date, e.Text, e.Emotion, e.Suggestion)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Entries returns all journal entries ordered by date ascending, the order
// the history view presents them in.
func (s *Store) Entries() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT date, entry, emotion, suggestion
		FROM entries
		ORDER BY date ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Date, &e.Text, &e.Emotion, &e.Suggestion); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func (s *Store) InsertRun(r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := r.Status
	if status == "" {
		status = StatusOK
	}
	_, err := s.db.Exec(`
		INSERT INTO runlog (timestamp, prompt_version, model, temperature, max_tokens,
			user_input, raw_request, raw_response, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Timestamp, r.PromptVersion, r.Model, r.Temperature, r.MaxTokens,
		r.UserInput, r.RawRequest, r.RawResponse, status, r.Error)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs returns all run-log records ordered by timestamp descending, the
// order the evaluation view presents them in.
func (s *Store) Runs() ([]RunRecord, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, prompt_version, model, temperature, max_tokens,
			user_input, raw_request, raw_response, status, error
		FROM runlog
		ORDER BY timestamp DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.Timestamp, &r.PromptVersion, &r.Model, &r.Temperature,
			&r.MaxTokens, &r.UserInput, &r.RawRequest, &r.RawResponse, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Counts reports table sizes for status output.
func (s *Store) Counts() (entries int, runs int, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(1) FROM entries`).Scan(&entries); err != nil {
		return 0, 0, fmt.Errorf("count entries: %w", err)
	}
	if err = s.db.QueryRow(`SELECT COUNT(1) FROM runlog`).Scan(&runs); err != nil {
		return 0, 0, fmt.Errorf("count runs: %w", err)
	}
	return entries, runs, nil
}
