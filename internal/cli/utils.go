// Package cli provides CLI output helpers for Enfance.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a format, defaulting to text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OutputText):
		return OutputText, nil
	case string(OutputJSON):
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

// WriteSearchResults writes ranked segments to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d segments in %dms (%s)\n", len(response.Segments), response.QueryTime, response.Status)
	fmt.Fprintf(w, "Normalized: %s\n", response.Normalized)
	if response.ExpandedQuery != response.Question {
		fmt.Fprintf(w, "Expanded: %s\n", response.ExpandedQuery)
	}
	if len(response.LexiconTerms) > 0 {
		fmt.Fprintf(w, "Lexicon: %s\n", strings.Join(response.LexiconTerms, ", "))
	}
	fmt.Fprintf(w, "Intent: %s (%.1f)\n\n", response.Intent.Label, response.Intent.Weight)
	for _, seg := range response.Segments {
		writeSegment(w, seg)
	}
	return nil
}

// WriteAnswer writes an assistant answer to w in the given format.
func WriteAnswer(w io.Writer, response *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\n%s\n\n", response.AnswerText)
	if response.AnswerText == "" {
		fmt.Fprintf(w, "%s\n\n", response.AnswerHTML)
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", response.Alignment.Status, response.Alignment.Label, response.Alignment.Summary)
	if response.FollowUpQuestion != nil {
		fmt.Fprintf(w, "Suggestion: %s\n", *response.FollowUpQuestion)
	}
	for _, src := range response.Sources {
		fmt.Fprintf(w, "Source: %s <%s>\n", src.Title, src.URL)
	}
	fmt.Fprintf(w, "\n%d segments, %dms", len(response.Segments), response.QueryTime)
	if response.Cached {
		fmt.Fprint(w, ", cached")
	}
	fmt.Fprintln(w)
	return nil
}

func writeSegment(w io.Writer, seg *models.RetrievedSegment) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[#%s] Score: %.4f (Lexical: %.4f, Semantic: %.4f)\n",
		seg.Reference, seg.Score, seg.LexicalScore, seg.SemanticScore)
	fmt.Fprintf(w, "Label: %s\n", seg.DisplayLabel())
	if seg.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", seg.URL)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(utils.SingleLine(seg.Text()), 200))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
