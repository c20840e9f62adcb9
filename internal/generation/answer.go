package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/enfance/internal/models"
)

// Defaults used when the model omits a field.
const (
	DefaultAnswerHTML       = "<p>(Réponse indisponible)</p>"
	DefaultAlignmentStatus  = "info"
	DefaultAlignmentLabel   = "Analyse RAG"
	DefaultAlignmentSummary = "Alignement non précisée."
)

var codeBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// Answer is the JSON object the model is asked to produce.
type Answer struct {
	AnswerHTML       string           `json:"answer_html"`
	AnswerText       string           `json:"answer_text"`
	FollowUpQuestion *string          `json:"follow_up_question"`
	Alignment        models.Alignment `json:"alignment"`
	Sources          []models.Source  `json:"sources"`
}

// ApplyDefaults fills the fields the model left empty.
func (a *Answer) ApplyDefaults() {
	if a.AnswerHTML == "" {
		a.AnswerHTML = DefaultAnswerHTML
	}
	if a.Alignment.Status == "" {
		a.Alignment.Status = DefaultAlignmentStatus
	}
	if a.Alignment.Label == "" {
		a.Alignment.Label = DefaultAlignmentLabel
	}
	if a.Alignment.Summary == "" {
		a.Alignment.Summary = DefaultAlignmentSummary
	}
	if a.Sources == nil {
		a.Sources = []models.Source{}
	}
}

// ParseAnswer extracts the answer object from raw model output. The object may be the whole
// text, wrapped in a code fence, inside a fenced block, or embedded between the first "{"
// and the last "}".
func ParseAnswer(raw string) (*Answer, error) {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		lines := strings.Split(clean, "\n")
		if len(lines) >= 2 {
			clean = strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	candidates := []string{clean}
	for _, m := range codeBlock.FindAllStringSubmatch(clean, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	start, end := strings.Index(clean, "{"), strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		candidates = append(candidates, clean[start:end+1])
	}

	var lastErr error
	for _, c := range candidates {
		var a Answer
		if err := json.Unmarshal([]byte(c), &a); err != nil {
			lastErr = err
			continue
		}
		a.ApplyDefaults()
		return &a, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, lastErr)
}
