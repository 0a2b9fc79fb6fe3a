package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "diary.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEntries_OrderedByDateAscending(t *testing.T) {
	s := openTestStore(t)

	dates := []string{"2026-08-03", "2026-08-01", "2026-08-02"}
	for _, d := range dates {
		err := s.InsertEntry(Entry{Date: d, Text: "day " + d, Emotion: "joy", Suggestion: "s"})
		if err != nil {
			t.Fatalf("InsertEntry error: %v", err)
		}
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d", len(entries))
	}
	want := []string{"2026-08-01", "2026-08-02", "2026-08-03"}
	for i, e := range entries {
		if e.Date != want[i] {
			t.Fatalf("entries[%d].Date = %s, want %s", i, e.Date, want[i])
		}
	}
}

func TestEntries_MultiplePerDayAllowed(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 2; i++ {
		err := s.InsertEntry(Entry{Date: "2026-08-01", Text: "entry", Emotion: "stress", Suggestion: "s"})
		if err != nil {
			t.Fatalf("InsertEntry error: %v", err)
		}
	}
	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
}

func TestInsertEntry_RejectsEmptyText(t *testing.T) {
	s := openTestStore(t)

	if err := s.InsertEntry(Entry{Date: "2026-08-01", Text: "   ", Emotion: "joy"}); err == nil {
		t.Fatal("expected error for empty text")
	}
	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("nothing should be persisted, got %d rows", len(entries))
	}
}

func TestRuns_OrderedByTimestampDescending(t *testing.T) {
	s := openTestStore(t)

	stamps := []string{"2026-08-01T09:00:00", "2026-08-01T11:00:00", "2026-08-01T10:00:00"}
	for _, ts := range stamps {
		err := s.InsertRun(RunRecord{
			Timestamp:     ts,
			PromptVersion: "v1-concise",
			Model:         "gpt-4o-mini",
			Temperature:   0.3,
			MaxTokens:     600,
			UserInput:     "in",
			RawRequest:    "req",
			RawResponse:   "resp",
		})
		if err != nil {
			t.Fatalf("InsertRun error: %v", err)
		}
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs error: %v", err)
	}
	want := []string{"2026-08-01T11:00:00", "2026-08-01T10:00:00", "2026-08-01T09:00:00"}
	for i, r := range runs {
		if r.Timestamp != want[i] {
			t.Fatalf("runs[%d].Timestamp = %s, want %s", i, r.Timestamp, want[i])
		}
	}
	if runs[0].Status != StatusOK {
		t.Fatalf("default status = %s", runs[0].Status)
	}
}

func TestInsertRun_PreservesRawResponseVerbatim(t *testing.T) {
	s := openTestStore(t)

	raw := "  prefix prose {\"emotion\":\"joy\"} trailing\n\n"
	err := s.InsertRun(RunRecord{
		Timestamp:     "2026-08-01T09:00:00",
		PromptVersion: "v1-concise",
		Model:         "gpt-4o-mini",
		RawResponse:   raw,
	})
	if err != nil {
		t.Fatalf("InsertRun error: %v", err)
	}
	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs error: %v", err)
	}
	if runs[0].RawResponse != raw {
		t.Fatalf("raw response mutated: %q", runs[0].RawResponse)
	}
}

func TestInsertRun_ErrorStatus(t *testing.T) {
	s := openTestStore(t)

	err := s.InsertRun(RunRecord{
		Timestamp:     "2026-08-01T09:00:00",
		PromptVersion: "v1-concise",
		Model:         "gpt-4o-mini",
		Status:        StatusError,
		Error:         "upstream http 500",
	})
	if err != nil {
		t.Fatalf("InsertRun error: %v", err)
	}
	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs error: %v", err)
	}
	if runs[0].Status != StatusError || runs[0].Error != "upstream http 500" {
		t.Fatalf("run = %+v", runs[0])
	}
}

func TestOpen_MigratesLegacyRunlog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "diary.db")

	// Legacy schema without the status/error audit columns.
	legacy, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	_, err = legacy.Exec(`CREATE TABLE runlog (
		timestamp TEXT, prompt_version TEXT, model TEXT, temperature REAL,
		max_tokens INTEGER, user_input TEXT, raw_request TEXT, raw_response TEXT
	)`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	_, err = legacy.Exec(`INSERT INTO runlog VALUES ('2026-08-01T09:00:00', 'v1-concise', 'm', 0.3, 600, 'i', 'q', 'r')`)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if err := legacy.Close(); err != nil {
		t.Fatalf("close legacy db: %v", err)
	}

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer s.Close()

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len = %d", len(runs))
	}
	if runs[0].Status != StatusOK || runs[0].Error != "" {
		t.Fatalf("migrated run = %+v", runs[0])
	}
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)

	if err := s.InsertEntry(Entry{Date: "2026-08-01", Text: "t", Emotion: "joy", Suggestion: "s"}); err != nil {
		t.Fatalf("InsertEntry error: %v", err)
	}
	if err := s.InsertRun(RunRecord{Timestamp: "2026-08-01T09:00:00", PromptVersion: "v1-concise"}); err != nil {
		t.Fatalf("InsertRun error: %v", err)
	}

	entries, runs, err := s.Counts()
	if err != nil {
		t.Fatalf("Counts error: %v", err)
	}
	if entries != 1 || runs != 1 {
		t.Fatalf("counts = %d, %d", entries, runs)
	}
}
