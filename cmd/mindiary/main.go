package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/quietloop/mindiary/internal/analysis"
	"github.com/quietloop/mindiary/internal/config"
	"github.com/quietloop/mindiary/internal/eval"
	"github.com/quietloop/mindiary/internal/export"
	"github.com/quietloop/mindiary/internal/llm"
	"github.com/quietloop/mindiary/internal/prompt"
	"github.com/quietloop/mindiary/internal/server"
	"github.com/quietloop/mindiary/internal/store"
	"github.com/spf13/cobra"
)

const serverShutdownTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:   "mindiary",
	Short: "mindiary - reflective journaling companion",
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize config and data directory",
	RunE:  runInit,
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write a journal entry and receive a reflection",
	RunE:  runWrite,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show saved entries",
	RunE:  runHistory,
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score logged responses and compare prompt versions",
	RunE:  runEval,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export entries and evaluation scores as CSV",
	RunE:  runExport,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API",
	RunE:  runServe,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mindiary status",
	RunE:  runStatus,
}

var (
	messageFlag string
	limitFlag   int
	versionFlag string
	dirFlag     string
)

func init() {
	writeCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Entry text (reads stdin when omitted)")
	historyCmd.Flags().IntVar(&limitFlag, "limit", 0, "Show only the most recent N entries")
	evalCmd.Flags().StringVar(&versionFlag, "version", "", "Only score runs for this prompt version")
	exportCmd.Flags().StringVar(&dirFlag, "dir", ".", "Output directory")
	rootCmd.AddCommand(initCmd, writeCmd, historyCmd, evalCmd, exportCmd, serveCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.DBPath), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	fmt.Printf("Data directory ready: %s\n", filepath.Dir(cfg.Store.DBPath))

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key\n", cfgPath)
	fmt.Println("  2. Or set MINDIARY_API_KEY / OPENAI_API_KEY")
	fmt.Println("  3. Run 'mindiary write -m \"Today was...\"'")

	return nil
}

// openStack loads config and opens the store and prompt catalog, the pieces
// every command needs. Caller closes the store.
func openStack() (*config.Config, *store.Store, *prompt.Catalog, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	catalog := prompt.NewCatalog()
	if cfg.Analysis.CatalogPath != "" {
		if err := catalog.LoadOverlay(cfg.Analysis.CatalogPath); err != nil {
			st.Close()
			return nil, nil, nil, fmt.Errorf("load prompt catalog: %w", err)
		}
	}

	return cfg, st, catalog, nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, st, catalog, err := openStack()
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := llm.NewOpenAIClient(cfg.Provider)
	if err != nil {
		return fmt.Errorf("API key not set. Run 'mindiary init' and set MINDIARY_API_KEY or OPENAI_API_KEY")
	}

	text := messageFlag
	if text == "" {
		text, err = readEntry(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
	}

	an := analysis.NewAnalyzer(st, client, catalog, cfg.Analysis)
	res, err := an.Analyze(context.Background(), text)
	if err != nil {
		return err
	}

	fmt.Printf("Emotion: %s\n\n%s\n", res.Entry.Emotion, res.Entry.Suggestion)
	return nil
}

// readEntry collects multi-line input until EOF or a blank line.
func readEntry(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, "Write your entry (finish with an empty line):")
	scanner := bufio.NewScanner(in)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read entry: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	_, st, _, err := openStack()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.Entries()
	if err != nil {
		return err
	}
	if limitFlag > 0 && len(entries) > limitFlag {
		entries = entries[len(entries)-limitFlag:]
	}
	if len(entries) == 0 {
		fmt.Println("No entries yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  [%s]  %d words\n", e.Date, e.Emotion, export.WordCount(e.Text))
		fmt.Printf("  %s\n\n", firstLine(e.Text))
	}
	return nil
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

func runEval(cmd *cobra.Command, args []string) error {
	_, st, _, err := openStack()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs()
	if err != nil {
		return err
	}
	if versionFlag != "" {
		filtered := runs[:0]
		for _, r := range runs {
			if r.PromptVersion == versionFlag {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}
	if len(runs) == 0 {
		fmt.Println("No runs to score.")
		return nil
	}

	scores := eval.ScoreRuns(runs)
	for _, s := range scores {
		fmt.Printf("%s  %-12s  empathy=%d specificity=%d actionability=%d safety=%d\n",
			s.Timestamp, s.PromptVersion, s.Empathy, s.Specificity, s.Actionability, s.Safety)
	}

	fmt.Println("\nAverages by prompt version:")
	for _, avg := range eval.Aggregate(scores) {
		fmt.Printf("  %-12s  empathy=%.2f specificity=%.2f actionability=%.2f safety=%.2f (n=%d)\n",
			avg.PromptVersion, avg.Empathy, avg.Specificity, avg.Actionability, avg.Safety, avg.Count)
	}
	fmt.Println("\nScores are keyword heuristics, not clinical measures.")
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	_, st, _, err := openStack()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := os.MkdirAll(dirFlag, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	entries, err := st.Entries()
	if err != nil {
		return err
	}
	entriesPath := filepath.Join(dirFlag, "journal_history.csv")
	if err := writeCSV(entriesPath, func(w io.Writer) error {
		return export.Entries(w, entries)
	}); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d entries)\n", entriesPath, len(entries))

	runs, err := st.Runs()
	if err != nil {
		return err
	}
	scores := eval.ScoreRuns(runs)
	scoresPath := filepath.Join(dirFlag, "evaluation_scores.csv")
	if err := writeCSV(scoresPath, func(w io.Writer) error {
		return export.Scores(w, scores)
	}); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d scores)\n", scoresPath, len(scores))
	return nil
}

func writeCSV(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, st, catalog, err := openStack()
	if err != nil {
		return err
	}
	defer st.Close()

	// A missing key downgrades serve to read-only instead of failing: the
	// history, eval, and export endpoints need no provider.
	var an *analysis.Analyzer
	client, err := llm.NewOpenAIClient(cfg.Provider)
	if err == nil {
		an = analysis.NewAnalyzer(st, client, catalog, cfg.Analysis)
	} else {
		fmt.Println("API key not set: entry submission is disabled, read endpoints remain available.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, st, an, catalog)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Database: %s\n", cfg.Store.DBPath)
	fmt.Printf("Model: %s\n", cfg.Analysis.Model)
	fmt.Printf("Prompt version: %s\n", cfg.Analysis.PromptVersion)
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("API Key: %s\n", masked)
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}

	if _, err := os.Stat(cfg.Store.DBPath); err != nil {
		fmt.Println("Entries: none (run 'mindiary init')")
		return nil
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	entries, runs, err := st.Counts()
	if err != nil {
		return err
	}
	fmt.Printf("Entries: %d\n", entries)
	fmt.Printf("Runs logged: %d\n", runs)
	return nil
}
