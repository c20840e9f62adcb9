package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/enfance/internal/lexicon"
	"github.com/hyperjump/enfance/internal/models"
)

func TestHasCurrencyData(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Repas : 24,77 €", true},
		{"Consultez la grille des TARIFS", true},
		{"Le prix dépend du quotient", true},
		{"Ouvert de 7h30 à 18h30", true},
		{"Ouvert le matin", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasCurrencyData(tt.text), tt.text)
	}
}

func TestCurrencyRule_Applies(t *testing.T) {
	rule := NewCurrencyRule(DefaultRankingConfig())
	tests := []struct {
		question string
		want     bool
	}{
		{"Combien coûte la cantine ?", true},
		{"Quel est le tarif du mercredi", true},
		{"Je dois payer 3 € ?", true},
		{"Quels horaires pour la crèche ?", false},
	}
	for _, tt := range tests {
		q := &Query{Question: tt.question}
		assert.Equal(t, tt.want, rule.Applies(q), tt.question)
	}
}

func TestLexiconRule_Adjust(t *testing.T) {
	rule := NewLexiconRule(DefaultRankingConfig())
	q := &Query{AdminTerms: []string{"inscription scolaire", "mairie de secteur"}}
	seg := &models.Segment{Content: "Inscription scolaire : présentez-vous à la mairie de secteur."}

	lexical := &Candidate{Segment: seg, FromLexical: true}
	semanticOnly := &Candidate{Segment: seg, FromSemantic: true}

	assert.True(t, rule.Applies(q))
	assert.Equal(t, 5.0, rule.Adjust(q, lexical))
	assert.Equal(t, 0.0, rule.Adjust(q, semanticOnly))
	assert.False(t, rule.Applies(&Query{}))
}

func TestEntryWeightRule_Adjust(t *testing.T) {
	lex := lexicon.New([]lexicon.Entry{
		{UserTerm: "inscrire", AdminTerms: []string{"inscription scolaire"}, Weight: 1.5},
		{UserTerm: "enfant", AdminTerms: []string{"absent du texte"}, Weight: 2},
	}, map[string][]string{})
	matches := lex.Match("inscrire mon enfant", "")
	q := &Query{Matches: matches}

	c := &Candidate{Text: "Rendez-vous en mairie.", Label: "Inscription scolaire"}
	assert.Equal(t, 1.5, EntryWeightRule{}.Adjust(q, c))
}
