package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quietloop/mindiary/internal/config"
	"github.com/quietloop/mindiary/internal/llm"
	"github.com/quietloop/mindiary/internal/prompt"
	"github.com/quietloop/mindiary/internal/store"
)

// ErrEmptyEntry means the submitted text was empty. Nothing is persisted
// and no API call is made.
var ErrEmptyEntry = errors.New("journal entry is empty")

// Analyzer runs the full submit pipeline: render the versioned prompt, call
// the model, log the attempt, extract a structured reflection, fill gaps
// from the fallback library, and persist the entry.
type Analyzer struct {
	store   *store.Store
	client  llm.Client
	catalog *prompt.Catalog

	model       string
	temperature float64
	maxTokens   int
	version     string

	now func() time.Time
}

func NewAnalyzer(st *store.Store, client llm.Client, catalog *prompt.Catalog, cfg config.AnalysisConfig) *Analyzer {
	return &Analyzer{
		store:       st,
		client:      client,
		catalog:     catalog,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		version:     cfg.PromptVersion,
		now:         time.Now,
	}
}

// Result is one successful analyze-and-save outcome.
type Result struct {
	RunID        string
	Entry        store.Entry
	Reflection   Reflection
	UsedFallback bool
}

// PromptVersion reports the resolved active catalog version.
func (a *Analyzer) PromptVersion() string {
	resolved, _ := a.catalog.Lookup(a.version)
	return resolved
}

func (a *Analyzer) Analyze(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyEntry
	}

	version, template := a.catalog.Lookup(a.version)
	rendered := prompt.Render(template, text)
	runID := uuid.NewString()
	now := a.now()

	raw, callErr := a.client.Complete(ctx, llm.Request{
		System:      prompt.SystemPrompt(),
		Prompt:      rendered,
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})

	// The attempt is logged unconditionally, failures included, so the
	// audit trail stays complete.
	rec := store.RunRecord{
		Timestamp:     now.Format("2006-01-02T15:04:05"),
		PromptVersion: version,
		Model:         a.model,
		Temperature:   a.temperature,
		MaxTokens:     a.maxTokens,
		UserInput:     text,
		RawRequest:    rendered,
		RawResponse:   raw,
		Status:        store.StatusOK,
	}
	if callErr != nil {
		rec.Status = store.StatusError
		rec.Error = callErr.Error()
	}
	if err := a.store.InsertRun(rec); err != nil {
		log.Printf("[analysis] run %s: log write error: %v", runID, err)
	}

	if callErr != nil {
		log.Printf("[analysis] run %s version=%s status=error", runID, version)
		return nil, callErr
	}

	refl := ExtractReflection(raw)

	body := renderSuggestion(refl)
	usedFallback := false
	if body == "" {
		body = FallbackSuggestion(refl.Emotion).Render()
		usedFallback = true
	}
	body = body + "\n\n" + Disclaimer
	suggestion := ApplyGuardrail(body, refl.Crisis)

	entry := store.Entry{
		Date:       now.Format("2006-01-02"),
		Text:       text,
		Emotion:    refl.Emotion,
		Suggestion: suggestion,
	}
	if err := a.store.InsertEntry(entry); err != nil {
		return nil, fmt.Errorf("save entry: %w", err)
	}

	log.Printf("[analysis] run %s version=%s emotion=%s fallback=%v", runID, version, refl.Emotion, usedFallback)
	return &Result{
		RunID:        runID,
		Entry:        entry,
		Reflection:   refl,
		UsedFallback: usedFallback,
	}, nil
}

// renderSuggestion combines the model-produced sections into the single
// suggestion text stored on the entry. Empty output means the fallback
// library should substitute local content.
func renderSuggestion(r Reflection) string {
	var parts []string
	if r.Reflection != "" {
		parts = append(parts, "Reflection: "+r.Reflection)
	}
	if r.Advice != "" {
		parts = append(parts, "Advice: "+r.Advice)
	}
	if r.FollowUp != "" {
		parts = append(parts, "To sit with: "+r.FollowUp)
	}
	return strings.Join(parts, "\n\n")
}
