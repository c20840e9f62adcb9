// Package ranking fuses lexical and semantic retrieval into a ranked segment list.
package ranking

import (
	"github.com/hyperjump/enfance/internal/lexicon"
	"github.com/hyperjump/enfance/internal/models"
)

// Query is the analyzed form of a question shared by every rule.
type Query struct {
	// Question is the raw user question.
	Question string
	// Normalized is the normalized question (caller-supplied form preferred).
	Normalized string
	// Expanded is the question with lexicon admin terms and hints appended.
	Expanded string
	// Matches are the lexicon entries found in the question.
	Matches []lexicon.Entry
	// AdminTerms are the normalized admin terms of Matches.
	AdminTerms []string
}

// Candidate is a segment under consideration, before truncation.
type Candidate struct {
	Segment *models.Segment
	// Text is the text rules inspect. Defaults to the segment content.
	Text string
	// Label holds label and source, inspected by the lexicon weight rule.
	Label string
	// LexicalScore is the raw BM25F score (0 when not found lexically).
	LexicalScore float64
	// SemanticScore is the raw cosine similarity (0 when not found semantically).
	SemanticScore float64
	FromLexical   bool
	FromSemantic  bool
	// Adjustments holds the contribution of each applied rule by name.
	Adjustments map[string]float64
	// Score is the combined score after rules.
	Score float64
	order int
}

// Rule adds a bonus to candidates of queries it applies to.
type Rule interface {
	// Name identifies the rule in debug logs.
	Name() string
	// Applies reports whether the rule is active for q.
	Applies(q *Query) bool
	// Adjust returns the amount to add to c's score.
	Adjust(q *Query, c *Candidate) float64
}
