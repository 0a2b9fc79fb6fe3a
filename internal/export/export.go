// Package export renders the entry store, run log, and derived evaluation
// scores as CSV. It is a read-only projection of the stores.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/quietloop/mindiary/internal/eval"
	"github.com/quietloop/mindiary/internal/store"
)

func Entries(w io.Writer, entries []store.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "entry", "emotion", "suggestion", "word_count"}); err != nil {
		return fmt.Errorf("write entries header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Date,
			e.Text,
			e.Emotion,
			e.Suggestion,
			strconv.Itoa(WordCount(e.Text)),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write entry row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush entries csv: %w", err)
	}
	return nil
}

func Scores(w io.Writer, scores []eval.Score) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "prompt_version", "empathy", "specificity", "actionability", "safety", "notes"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write scores header: %w", err)
	}
	for _, s := range scores {
		row := []string{
			s.Timestamp,
			s.PromptVersion,
			strconv.Itoa(s.Empathy),
			strconv.Itoa(s.Specificity),
			strconv.Itoa(s.Actionability),
			strconv.Itoa(s.Safety),
			s.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write score row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush scores csv: %w", err)
	}
	return nil
}

// WordCount is the engagement proxy shown in history views.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
