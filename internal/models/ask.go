package models

import "fmt"

// Status of an answer.
const (
	// StatusAnswered means the answer is grounded on at least one segment.
	StatusAnswered = "answered"
	// StatusInsufficient means retrieval found nothing; the answer carries no grounding.
	StatusInsufficient = "insufficient"
)

// AskRequest is a question sent to the assistant. RAGResults, when present, replaces
// retrieval; IntentLabel/IntentWeight, when both present, replace classification.
type AskRequest struct {
	Question           string              `json:"question"`
	NormalizedQuestion string              `json:"normalized_question,omitempty"`
	RAGResults         []*RetrievedSegment `json:"rag_results,omitempty"`
	Conversation       []ConversationTurn  `json:"conversation,omitempty"`
	Instructions       string              `json:"instructions,omitempty"`
	IntentLabel        *string             `json:"intent_label,omitempty"`
	IntentWeight       *float64            `json:"intent_weight,omitempty"`
	TopK               int                 `json:"top_k,omitempty"`
}

// Validate checks the request and applies defaults.
func (r *AskRequest) Validate(defaultTopK, maxTopK int) error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = defaultTopK
	}
	if maxTopK > 0 && r.TopK > maxTopK {
		r.TopK = maxTopK
	}
	return nil
}

// Alignment tells which segments the answer relies on.
type Alignment struct {
	Status  string `json:"status"`
	Label   string `json:"label"`
	Summary string `json:"summary"`
}

// Source is a clickable source cited by the answer.
type Source struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Confidence string `json:"confidence,omitempty"`
}

// AskResponse is the assistant answer returned to the caller.
type AskResponse struct {
	RequestID        string              `json:"request_id"`
	Status           string              `json:"status"`
	AnswerHTML       string              `json:"answer_html"`
	AnswerText       string              `json:"answer_text,omitempty"`
	FollowUpQuestion *string             `json:"follow_up_question"`
	Alignment        Alignment           `json:"alignment"`
	Sources          []Source            `json:"sources"`
	Intent           IntentScore         `json:"intent"`
	Segments         []*RetrievedSegment `json:"segments"`
	Cached           bool                `json:"cached,omitempty"`
	QueryTime        int64               `json:"query_time_ms"`
}

// SearchRequest asks for ranked segments only, without generation.
type SearchRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// SearchResponse is the ranked, referenced segment list for a question.
type SearchResponse struct {
	Question      string              `json:"question"`
	Normalized    string              `json:"normalized"`
	ExpandedQuery string              `json:"expanded_query"`
	Intent        IntentScore         `json:"intent"`
	LexiconTerms  []string            `json:"lexicon_terms,omitempty"`
	Status        string              `json:"status"`
	Segments      []*RetrievedSegment `json:"segments"`
	QueryTime     int64               `json:"query_time_ms"`
}
