package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quietloop/mindiary/internal/config"
	"github.com/quietloop/mindiary/internal/llm"
	"github.com/quietloop/mindiary/internal/prompt"
	"github.com/quietloop/mindiary/internal/store"
)

type fakeClient struct {
	response string
	err      error
	calls    int
	lastReq  llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		Model:         "gpt-test",
		Temperature:   0.3,
		MaxTokens:     600,
		PromptVersion: "v1-concise",
	}
}

func newTestAnalyzer(t *testing.T, client llm.Client) (*Analyzer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "diary.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	a := NewAnalyzer(st, client, prompt.NewCatalog(), testAnalysisConfig())
	a.now = func() time.Time {
		return time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	}
	return a, st
}

func TestAnalyze_SuccessSavesEntryAndRun(t *testing.T) {
	client := &fakeClient{response: `{"emotion":"Stress","reflection":"A lot landed on you today.","advice":"Write tomorrow's top three tasks tonight.","follow_up":"","crisis":false}`}
	a, st := newTestAnalyzer(t, client)

	res, err := a.Analyze(context.Background(), "deadlines piled up and I barely slept")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if res.Entry.Emotion != "stress" {
		t.Fatalf("emotion = %s", res.Entry.Emotion)
	}
	if res.UsedFallback {
		t.Fatal("fallback should not fire when advice is present")
	}
	if !strings.Contains(res.Entry.Suggestion, "Advice: Write tomorrow's top three tasks tonight.") {
		t.Fatalf("suggestion = %q", res.Entry.Suggestion)
	}
	if !strings.Contains(res.Entry.Suggestion, Disclaimer) {
		t.Fatal("disclaimer missing from suggestion")
	}
	if res.RunID == "" {
		t.Fatal("run id empty")
	}

	entries, err := st.Entries()
	if err != nil {
		t.Fatalf("Entries error: %v", err)
	}
	if len(entries) != 1 || entries[0].Date != "2026-08-31" {
		t.Fatalf("entries = %+v", entries)
	}

	runs, err := st.Runs()
	if err != nil {
		t.Fatalf("Runs error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %+v", runs)
	}
	r := runs[0]
	if r.Status != store.StatusOK || r.PromptVersion != "v1-concise" {
		t.Fatalf("run = %+v", r)
	}
	if r.RawResponse != client.response {
		t.Fatal("raw response must be stored verbatim")
	}
	if r.RawRequest != client.lastReq.Prompt {
		t.Fatal("raw request must match what was sent")
	}
	if r.UserInput != "deadlines piled up and I barely slept" {
		t.Fatalf("user input = %q", r.UserInput)
	}
}

func TestAnalyze_EmptyTextRejectedBeforeAPICall(t *testing.T) {
	client := &fakeClient{response: "{}"}
	a, st := newTestAnalyzer(t, client)

	_, err := a.Analyze(context.Background(), "   \n ")
	if !errors.Is(err, ErrEmptyEntry) {
		t.Fatalf("err = %v, want ErrEmptyEntry", err)
	}
	if client.calls != 0 {
		t.Fatal("no API call may be made for empty input")
	}
	entries, _ := st.Entries()
	runs, _ := st.Runs()
	if len(entries) != 0 || len(runs) != 0 {
		t.Fatal("nothing may be persisted for empty input")
	}
}

func TestAnalyze_UpstreamErrorLogsAttemptAndSavesNoEntry(t *testing.T) {
	client := &fakeClient{err: &llm.UpstreamError{Op: "chat completion", Err: errors.New("http 500")}}
	a, st := newTestAnalyzer(t, client)

	_, err := a.Analyze(context.Background(), "a rough day")
	var upstream *llm.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}

	entries, _ := st.Entries()
	if len(entries) != 0 {
		t.Fatal("entry must not be saved on upstream failure")
	}
	runs, err := st.Runs()
	if err != nil {
		t.Fatalf("Runs error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("the failed attempt must still be logged, runs = %+v", runs)
	}
	if runs[0].Status != store.StatusError || runs[0].Error == "" {
		t.Fatalf("run = %+v", runs[0])
	}
	if runs[0].RawResponse != "" {
		t.Fatalf("raw response should be empty on failure, got %q", runs[0].RawResponse)
	}
}

func TestAnalyze_MalformedResponseFallsBackToLibrary(t *testing.T) {
	client := &fakeClient{response: "I'm sorry, I can't produce JSON today."}
	a, st := newTestAnalyzer(t, client)

	res, err := a.Analyze(context.Background(), "an ordinary day")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if !res.UsedFallback {
		t.Fatal("fallback must fire for malformed output")
	}
	if res.Entry.Emotion != DefaultEmotion {
		t.Fatalf("emotion = %s", res.Entry.Emotion)
	}
	if !strings.Contains(res.Entry.Suggestion, "Song: ") {
		t.Fatalf("fallback triple missing: %q", res.Entry.Suggestion)
	}

	entries, _ := st.Entries()
	if len(entries) != 1 {
		t.Fatal("degraded extraction must still save the entry")
	}
}

func TestAnalyze_CrisisBannerIsStrictPrefix(t *testing.T) {
	client := &fakeClient{response: `{"emotion":"sadness","advice":"Please talk to someone you trust.","crisis":true}`}
	a, _ := newTestAnalyzer(t, client)

	res, err := a.Analyze(context.Background(), "I feel like giving up")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if !strings.HasPrefix(res.Entry.Suggestion, CrisisBanner) {
		t.Fatalf("crisis banner must be a strict prefix: %q", res.Entry.Suggestion)
	}
}

func TestAnalyze_UnknownPromptVersionResolvesToDefault(t *testing.T) {
	client := &fakeClient{response: `{"emotion":"joy","advice":"Enjoy it."}`}
	st, err := store.Open(filepath.Join(t.TempDir(), "diary.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	cfg := testAnalysisConfig()
	cfg.PromptVersion = "v9-removed"
	a := NewAnalyzer(st, client, prompt.NewCatalog(), cfg)

	if _, err := a.Analyze(context.Background(), "good news today"); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	runs, err := st.Runs()
	if err != nil {
		t.Fatalf("Runs error: %v", err)
	}
	if runs[0].PromptVersion != prompt.DefaultVersion {
		t.Fatalf("recorded version = %s, want resolved default", runs[0].PromptVersion)
	}
}

func TestAnalyze_SystemPromptSent(t *testing.T) {
	client := &fakeClient{response: `{"emotion":"joy","advice":"x"}`}
	a, _ := newTestAnalyzer(t, client)

	if _, err := a.Analyze(context.Background(), "fine day"); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if client.lastReq.System != prompt.SystemPrompt() {
		t.Fatalf("system prompt = %q", client.lastReq.System)
	}
	if client.lastReq.Model != "gpt-test" || client.lastReq.MaxTokens != 600 {
		t.Fatalf("request params = %+v", client.lastReq)
	}
}
