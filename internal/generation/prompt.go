package generation

import (
	"fmt"
	"strings"

	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/pkg/utils"
)

const (
	historyTurns   = 6
	listSnippet    = 200
	detailExcerpt  = 400
	detailContent  = 800
	userSnippetRef = "U"
)

// PromptInput is the assembled context for one answer. Segments must already carry their
// references.
type PromptInput struct {
	Question       string
	Normalized     string
	Intent         models.IntentScore
	StructuredData string
	Conversation   []models.ConversationTurn
	Segments       []*models.RetrievedSegment
	Instructions   string
}

// BuildPrompt renders the user message sent to the model.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question utilisateur: %s\n", in.Question)
	if in.Normalized != "" {
		fmt.Fprintf(&b, "Question normalisée: %s\n", in.Normalized)
	}
	if in.Intent.Label != "" {
		fmt.Fprintf(&b, "Intention détectée: %s (poids %.2f)\n", in.Intent.Label, in.Intent.Weight)
	}
	b.WriteString(in.StructuredData)

	if len(in.Conversation) > 0 {
		b.WriteString("Historique:\n")
		turns := in.Conversation
		if len(turns) > historyTurns {
			turns = turns[len(turns)-historyTurns:]
		}
		for _, t := range turns {
			role := "Assistant"
			if t.Role == models.RoleUser {
				role = "Utilisateur"
			}
			fmt.Fprintf(&b, "- %s: %s\n", role, t.Content)
		}
	}

	b.WriteString("\nSegments RAG (références #n) :\n")
	if len(in.Segments) == 0 {
		b.WriteString("Aucun extrait disponible.\n")
	}
	hasUser := false
	for _, seg := range in.Segments {
		snippet := utils.Prefix(utils.SingleLine(summary(seg)), listSnippet)
		fmt.Fprintf(&b, "#%s: %s — %s", seg.Reference, seg.DisplayLabel(), snippet)
		if seg.URL != "" {
			fmt.Fprintf(&b, " (url: %s)", seg.URL)
		}
		b.WriteString("\n")
		if seg.CustomID == userSnippetRef {
			hasUser = true
		}
	}
	if hasUser {
		b.WriteString("\nNote: Le segment #U provient directement d'une contribution utilisateur. " +
			"Tu peux t'appuyer sur le segment #U fourni par l'utilisateur pour tes calculs ou vérifications.\n")
	}

	b.WriteString("\nDétails RAG (tronqués) :\n")
	for _, seg := range in.Segments {
		fmt.Fprintf(&b, "[#%s] %s\n", seg.Reference, seg.DisplayLabel())
		if seg.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", seg.URL)
		}
		fmt.Fprintf(&b, "Score: %.2f\n", seg.Score)
		if excerpt := strings.TrimSpace(seg.Excerpt); excerpt != "" {
			fmt.Fprintf(&b, "Extrait court: %s\n", utils.Prefix(excerpt, detailExcerpt))
		}
		if content := strings.TrimSpace(seg.Content); content != "" {
			fmt.Fprintf(&b, "Contenu tronqué: %s\n", utils.Prefix(content, detailContent))
		}
		b.WriteString("---\n")
	}

	b.WriteString("\nConsigne complémentaire:\n")
	b.WriteString(in.Instructions)
	return b.String()
}

// summary prefers the excerpt, which is what the caller chose to show.
func summary(seg *models.RetrievedSegment) string {
	if seg.Excerpt != "" {
		return seg.Excerpt
	}
	return seg.Content
}
