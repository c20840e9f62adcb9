package assistant

import (
	"strings"

	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/pkg/utils"
)

const (
	// UserSnippetID is the reference of the segment built from data pasted in the question.
	UserSnippetID    = "U"
	userSnippetLabel = "Contribution utilisateur"

	maxSnippetLines = 40
	maxSnippetRunes = 1200
	snippetExcerpt  = 400
)

var bulletMarks = []string{"•", "-", "*", "●", "▪"}

// ExtractUserSnippet returns the table or list pasted in question, or "" when the question
// does not carry one. A snippet needs two non-empty lines, at least two digits and a table
// layout, a bullet list or a euro sign.
func ExtractUserSnippet(question string) string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(question, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return ""
	}
	content := strings.Join(lines, "\n")

	structured := strings.Contains(content, "€")
	for _, line := range lines {
		if strings.ContainsAny(line, "|\t") || hasBullet(line) {
			structured = true
			break
		}
	}
	if !structured || utils.CountDigits(content) < 2 {
		return ""
	}
	if len(lines) > maxSnippetLines {
		lines = lines[:maxSnippetLines]
	}
	return utils.Prefix(strings.Join(lines, "\n"), maxSnippetRunes)
}

func hasBullet(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, m := range bulletMarks {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	return false
}

// userSegment builds the "U" segment scored above every other segment by bonus.
func userSegment(snippet string, segments []*models.RetrievedSegment, bonus float64) *models.RetrievedSegment {
	top := 0.0
	for i, seg := range segments {
		if i == 0 || seg.Score > top {
			top = seg.Score
		}
	}
	return &models.RetrievedSegment{
		CorpusID: -1,
		Label:    userSnippetLabel,
		Content:  snippet,
		Excerpt:  utils.Prefix(snippet, snippetExcerpt),
		Score:    top + bonus,
		CustomID: UserSnippetID,
	}
}

func hasUserSegment(segments []*models.RetrievedSegment) bool {
	for _, seg := range segments {
		if seg.CustomID == UserSnippetID {
			return true
		}
	}
	return false
}
