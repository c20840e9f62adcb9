// Package models defines the corpus segments, retrieved segments and conversation types
// shared by the retrieval pipeline.
package models

// Segment is one retrievable unit of corpus text. ID is its position in the corpus file.
type Segment struct {
	ID      int    `json:"id" db:"id"`
	Label   string `json:"label" db:"label"`
	URL     string `json:"url,omitempty" db:"url"`
	Source  string `json:"source,omitempty" db:"source"`
	Section *int   `json:"section,omitempty" db:"section"`
	Content string `json:"content" db:"content"`
}

// DisplayLabel returns the label, falling back to the source and then "Segment".
func (s *Segment) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	if s.Source != "" {
		return s.Source
	}
	return "Segment"
}

// RetrievedSegment is a segment selected for one response, with its fused score and the
// reference used to cite it. CorpusID is -1 for segments that do not come from the corpus
// (caller-supplied or user contributed).
type RetrievedSegment struct {
	CorpusID      int     `json:"corpus_id"`
	Label         string  `json:"label,omitempty"`
	URL           string  `json:"url,omitempty"`
	Content       string  `json:"content,omitempty"`
	Excerpt       string  `json:"excerpt,omitempty"`
	Score         float64 `json:"score"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	CustomID      string  `json:"custom_id,omitempty"`
	Reference     string  `json:"reference,omitempty"`
}

// Text returns the content, or the excerpt when content is empty.
func (r *RetrievedSegment) Text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Excerpt
}

// DisplayLabel returns the label, or "Segment" when empty.
func (r *RetrievedSegment) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return "Segment"
}
