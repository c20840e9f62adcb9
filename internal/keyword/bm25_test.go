package keyword

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/enfance/internal/models"
)

func testSegments() []*models.Segment {
	section := 2
	return []*models.Segment{
		{ID: 0, Label: "Crèches municipales", Source: "creches.html", Content: "Les crèches accueillent les enfants de 10 semaines à 3 ans."},
		{ID: 1, Label: "Inscriptions scolaires", Source: "ecoles.html", Section: &section, Content: "Pour inscrire votre enfant, rendez-vous en mairie de secteur avec les pièces justificatives."},
		{ID: 2, Label: "Tarifs restauration", Source: "tarifs.pdf", Content: "Le repas à la cantine coûte 3,20 € selon le quotient familial."},
	}
}

func TestAnalyzer_Terms(t *testing.T) {
	a := NewAnalyzer()
	require.True(t, a.Available())

	terms := a.Terms("Les crèches de l'école")
	assert.NotEmpty(t, terms)
	for _, term := range terms {
		assert.GreaterOrEqual(t, len([]rune(term)), minTokenRunes)
		assert.NotEqual(t, "les", term, "stop words are removed")
	}
	assert.Equal(t, a.Terms("creche"), a.Terms("crèche"), "accents are folded before stemming")
}

func TestBM25Index_Search(t *testing.T) {
	idx := NewBM25Index(NewAnalyzer(), testSegments())
	require.True(t, idx.Available())
	assert.Equal(t, 3, idx.DocCount())

	ctx := context.Background()
	results, err := idx.Search(ctx, "inscription scolaire", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, results[0].ID)

	results, err = idx.Search(ctx, "prix cantine", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 2, results[0].ID)
}

func TestBM25Index_SearchRespectsLimitAndOrder(t *testing.T) {
	idx := NewBM25Index(NewAnalyzer(), testSegments())
	results, err := idx.Search(context.Background(), "enfant crèche cantine", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestBM25Index_LabelBoost(t *testing.T) {
	segs := []*models.Segment{
		{ID: 10, Label: "Divers", Content: "garderie garderie"},
		{ID: 11, Label: "Garderie", Content: "informations"},
	}
	plain := NewBM25Index(NewAnalyzer(), segs)
	boosted := NewBM25Index(NewAnalyzer(), segs, WithSearchOptions(SearchOptions{LabelBoost: 5}))

	ctx := context.Background()
	r1, err := plain.Search(ctx, "garderie", 2)
	require.NoError(t, err)
	r2, err := boosted.Search(ctx, "garderie", 2)
	require.NoError(t, err)
	require.Len(t, r2, 2)
	assert.Equal(t, 11, r2[0].ID)

	var plainLabel float64
	for _, r := range r1 {
		if r.ID == 11 {
			plainLabel = r.Score
		}
	}
	assert.Greater(t, r2[0].Score, plainLabel)
}

func TestBM25Index_Empty(t *testing.T) {
	idx := NewBM25Index(NewAnalyzer(), nil)
	assert.False(t, idx.Available())
	results, err := idx.Search(context.Background(), "crèche", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	full := NewBM25Index(NewAnalyzer(), testSegments())
	results, err = full.Search(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBM25Index_UnavailableAnalyzer(t *testing.T) {
	idx := NewBM25Index(&Analyzer{}, testSegments())
	assert.False(t, idx.Available())
	results, err := idx.Search(context.Background(), "crèche", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBM25Index_CanceledContext(t *testing.T) {
	idx := NewBM25Index(NewAnalyzer(), testSegments())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.Search(ctx, "crèche", 5)
	assert.ErrorIs(t, err, context.Canceled)
}
