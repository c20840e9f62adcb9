package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/enfance/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	in := PromptInput{
		Question:       "Combien coûte la cantine ?",
		Normalized:     "combien coute la cantine",
		Intent:         models.IntentScore{Label: "compréhension", Weight: 0.5},
		StructuredData: "\n=== DONNÉES STRUCTURÉES : TABLEAUX TARIFAIRES ===\n",
		Segments: []*models.RetrievedSegment{
			{CustomID: "U", Reference: "U", Label: "Contribution utilisateur", Content: "a | 1\nb | 2", Excerpt: "a | 1\nb | 2", Score: 5.5},
			{Reference: "1", Label: "Tarifs cantine", URL: "https://amiens.fr/tarifs", Content: strings.Repeat("x", 900), Score: 3},
		},
		Instructions: "Réponds en français.",
	}
	for i := 0; i < 8; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		in.Conversation = append(in.Conversation, models.ConversationTurn{Role: role, Content: "tour " + string(rune('0'+i))})
	}

	p := BuildPrompt(in)
	assert.True(t, strings.HasPrefix(p, "Question utilisateur: Combien coûte la cantine ?\n"))
	assert.Contains(t, p, "Question normalisée: combien coute la cantine\n")
	assert.Contains(t, p, "Intention détectée: compréhension (poids 0.50)\n")
	assert.Contains(t, p, "TABLEAUX TARIFAIRES")

	assert.NotContains(t, p, "tour 1")
	assert.Contains(t, p, "- Utilisateur: tour 2\n")
	assert.Contains(t, p, "- Assistant: tour 7\n")

	assert.Contains(t, p, "#U: Contribution utilisateur — a | 1 b | 2\n")
	assert.Contains(t, p, "#1: Tarifs cantine — "+strings.Repeat("x", 200)+" (url: https://amiens.fr/tarifs)\n")
	assert.Contains(t, p, "Le segment #U provient directement d'une contribution utilisateur")
	assert.Contains(t, p, "[#1] Tarifs cantine\nURL: https://amiens.fr/tarifs\nScore: 3.00\n")
	assert.Contains(t, p, "Contenu tronqué: "+strings.Repeat("x", 800)+"\n")
	assert.NotContains(t, p, strings.Repeat("x", 801))
	assert.True(t, strings.HasSuffix(p, "Consigne complémentaire:\nRéponds en français."))
}

func TestBuildPrompt_NoSegments(t *testing.T) {
	p := BuildPrompt(PromptInput{Question: "Bonjour"})
	assert.Contains(t, p, "Aucun extrait disponible.")
	assert.NotContains(t, p, "Historique:")
	assert.NotContains(t, p, "#U")
}
