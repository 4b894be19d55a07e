// Package cli provides output helpers for the faqd command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/internal/retrieval"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json", case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes one answered question.
func WriteAnswer(w io.Writer, question string, out models.RetrievalOutcome, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			Question string `json:"question"`
			models.AskResponse
			Kind models.OutcomeKind `json:"kind"`
		}{question, out.Response(), out.Kind})
	}
	fmt.Fprintf(w, "\nQ: %s\n", question)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s\n", out.Answer)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Confidence: %.1f%% | %s | %.1fms\n", out.Confidence, out.Kind, float64(out.ProcessingTime.Microseconds())/1000)
	if out.MatchedQuestion != "" {
		fmt.Fprintf(w, "Matched: %s\n", out.MatchedQuestion)
	}
	fmt.Fprintln(w)
	return nil
}

// WriteQuestions writes the corpus question list.
func WriteQuestions(w io.Writer, questions []string, format OutputFormat) error {
	if questions == nil {
		questions = []string{}
	}
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"faqs": questions, "count": len(questions)})
	}
	fmt.Fprintf(w, "\n%d questions\n\n", len(questions))
	for i, q := range questions {
		fmt.Fprintf(w, "%4d. %s\n", i+1, q)
	}
	return nil
}

// WriteEntries writes substring search results.
func WriteEntries(w io.Writer, entries []models.CorpusEntry, format OutputFormat) error {
	if entries == nil {
		entries = []models.CorpusEntry{}
	}
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"results": entries, "count": len(entries)})
	}
	fmt.Fprintf(w, "\nFound %d entries\n\n", len(entries))
	for _, e := range entries {
		writeEntry(w, e, "")
	}
	return nil
}

// WriteKeywordResult writes ranked keyword hits and any spelling suggestion.
func WriteKeywordResult(w io.Writer, res retrieval.KeywordResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "\nFound %d results\n", len(res.Hits))
	if res.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", res.Suggestion)
	}
	fmt.Fprintln(w)
	for i, h := range res.Hits {
		writeEntry(w, h.Entry, fmt.Sprintf("Rank: %d | Score: %.4f | ", i+1, h.Score))
	}
	return nil
}

func writeEntry(w io.Writer, e models.CorpusEntry, prefix string) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%sID: %d\n", prefix, e.ID)
	fmt.Fprintf(w, "Q: %s\n", e.Question)
	fmt.Fprintf(w, "A: %s\n\n", utils.Truncate(e.Answer, 200))
}

// WriteStatus writes the engine status.
func WriteStatus(w io.Writer, st retrieval.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "State:       %s\n", st.State)
	if st.Reason != "" {
		fmt.Fprintf(w, "Reason:      %s\n", st.Reason)
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "Last error:  %s\n", st.LastError)
	}
	fmt.Fprintf(w, "Model:       %s\n", st.Model)
	if st.SnapshotID == "" {
		return nil
	}
	fmt.Fprintf(w, "Source:      %s\n", st.Source)
	fmt.Fprintf(w, "Entries:     %d\n", st.Entries)
	fmt.Fprintf(w, "Dimensions:  %d\n", st.Dimensions)
	fmt.Fprintf(w, "Index:       %s at %s\n", st.IndexOrigin, st.BuiltAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Snapshot:    %s\n", st.SnapshotID)
	return nil
}
