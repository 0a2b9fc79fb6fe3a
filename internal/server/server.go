package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/quietloop/mindiary/internal/analysis"
	"github.com/quietloop/mindiary/internal/config"
	"github.com/quietloop/mindiary/internal/eval"
	"github.com/quietloop/mindiary/internal/export"
	"github.com/quietloop/mindiary/internal/llm"
	"github.com/quietloop/mindiary/internal/prompt"
	"github.com/quietloop/mindiary/internal/store"
)

// Server is the JSON HTTP boundary a UI would call: submit, history, run
// log, evaluation, and CSV export. One synchronous request at a time is the
// expected usage; there is no session or auth layer.
type Server struct {
	cfg      config.ServerConfig
	store    *store.Store
	analyzer *analysis.Analyzer // nil when no API key is configured
	catalog  *prompt.Catalog

	httpServer *http.Server
}

func New(cfg config.ServerConfig, st *store.Store, an *analysis.Analyzer, catalog *prompt.Catalog) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		analyzer: an,
		catalog:  catalog,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/entries", s.handleSubmit)
	mux.HandleFunc("GET /api/entries", s.handleEntries)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/eval", s.handleEval)
	mux.HandleFunc("GET /api/prompts", s.handlePrompts)
	mux.HandleFunc("GET /api/export/entries.csv", s.handleExportEntries)
	mux.HandleFunc("GET /api/export/eval.csv", s.handleExportEval)
	mux.HandleFunc("GET /api/healthz", s.handleHealthz)
	return requestID(mux)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.Handler(),
	}

	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[server] serve error: %v", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requestID tags every request with a correlation id for log lines and the
// response header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		log.Printf("[server] %s %s rid=%s", r.Method, r.URL.Path, rid)
		next.ServeHTTP(w, r)
	})
}

type submitRequest struct {
	Text string `json:"text"`
}

type entryResponse struct {
	Date       string `json:"date"`
	Text       string `json:"text"`
	Emotion    string `json:"emotion"`
	Suggestion string `json:"suggestion"`
	WordCount  int    `json:"word_count"`
}

type submitResponse struct {
	RunID        string              `json:"run_id"`
	Entry        entryResponse       `json:"entry"`
	Reflection   analysis.Reflection `json:"reflection"`
	UsedFallback bool                `json:"used_fallback"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		errorJSON(w, http.StatusServiceUnavailable, "api key not configured; analysis is disabled")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrEmptyEntry):
			errorJSON(w, http.StatusBadRequest, "please write something before submitting")
		case isUpstream(err):
			errorJSON(w, http.StatusBadGateway, fmt.Sprintf("model call failed: %v", err))
		default:
			errorJSON(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		RunID:        res.RunID,
		Entry:        toEntryResponse(res.Entry),
		Reflection:   res.Reflection,
		UsedFallback: res.UsedFallback,
	})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Entries()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

type runResponse struct {
	Timestamp     string  `json:"timestamp"`
	PromptVersion string  `json:"prompt_version"`
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	UserInput     string  `json:"user_input"`
	RawRequest    string  `json:"raw_request"`
	RawResponse   string  `json:"raw_response"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, rec := range runs {
		out = append(out, runResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

type scoreResponse struct {
	Timestamp     string `json:"timestamp"`
	PromptVersion string `json:"prompt_version"`
	Empathy       int    `json:"empathy"`
	Specificity   int    `json:"specificity"`
	Actionability int    `json:"actionability"`
	Safety        int    `json:"safety"`
	Notes         string `json:"notes"`
}

type averageResponse struct {
	PromptVersion string  `json:"prompt_version"`
	Empathy       float64 `json:"empathy"`
	Specificity   float64 `json:"specificity"`
	Actionability float64 `json:"actionability"`
	Safety        float64 `json:"safety"`
	Count         int     `json:"count"`
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	scores := eval.ScoreRuns(runs)
	averages := eval.Aggregate(scores)

	scoresOut := make([]scoreResponse, 0, len(scores))
	for _, sc := range scores {
		scoresOut = append(scoresOut, scoreResponse(sc))
	}
	averagesOut := make([]averageResponse, 0, len(averages))
	for _, avg := range averages {
		averagesOut = append(averagesOut, averageResponse(avg))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scores":   scoresOut,
		"averages": averagesOut,
	})
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	active := ""
	if s.analyzer != nil {
		active = s.analyzer.PromptVersion()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"versions": s.catalog.Versions(),
		"default":  prompt.DefaultVersion,
		"active":   active,
	})
}

func (s *Server) handleExportEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Entries()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="journal_history.csv"`)
	if err := export.Entries(w, entries); err != nil {
		log.Printf("[server] export entries error: %v", err)
	}
}

func (s *Server) handleExportEval(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="evaluation_scores.csv"`)
	if err := export.Scores(w, eval.ScoreRuns(runs)); err != nil {
		log.Printf("[server] export eval error: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toEntryResponse(e store.Entry) entryResponse {
	return entryResponse{
		Date:       e.Date,
		Text:       e.Text,
		Emotion:    e.Emotion,
		Suggestion: e.Suggestion,
		WordCount:  export.WordCount(e.Text),
	}
}

func isUpstream(err error) bool {
	var upstream *llm.UpstreamError
	return errors.As(err, &upstream)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response error: %v", err)
	}
}

func errorJSON(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
