package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/enfance/internal/generation"
	"github.com/hyperjump/enfance/internal/keyword"
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/ranking"
)

type stubGenerator struct {
	mu      sync.Mutex
	answer  *generation.Answer
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (*generation.Answer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return nil, g.err
	}
	a := *g.answer
	a.ApplyDefaults()
	return &a, nil
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func strPtr(s string) *string { return &s }

func testSegments() []*models.Segment {
	return []*models.Segment{
		{ID: 0, Label: "Restauration scolaire", Content: "La cantine accueille les enfants. Menus équilibrés pour la cantine."},
		{ID: 1, Label: "Tarifs", URL: "https://amiens.fr/tarifs", Content: "Tarif cantine : 24,77 € par mois selon le quotient."},
		{ID: 2, Label: "Inscriptions", Content: "Inscription scolaire en mairie de secteur avec les pièces justificatives."},
	}
}

func newTestAssistant(segs []*models.Segment, gen Generator, opts ...Option) *Assistant {
	lexical := keyword.NewBM25Index(keyword.NewAnalyzer(), segs)
	r := ranking.NewRanker(nil, segs, lexical, nil, nil)
	return New(r, append([]Option{WithGenerator(gen)}, opts...)...)
}

func TestExtractUserSnippet(t *testing.T) {
	long := strings.Repeat("- 10 repas\n", 50)
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{"plain question", "Combien coûte la cantine ?", ""},
		{"table", "Voici mes tarifs :\nCantine | 3,20 €\nGarderie | 1,10 €", "Voici mes tarifs :\nCantine | 3,20 €\nGarderie | 1,10 €"},
		{"no digits", "ligne une\nligne deux | trois", ""},
		{"bullets", "- 12 repas\n\n- 4 goûters", "- 12 repas\n- 4 goûters"},
		{"one digit", "tarif\n1 €", ""},
		{"single line", "Cantine | 3,20 €", ""},
		{"capped lines", long, strings.TrimSuffix(strings.Repeat("- 10 repas\n", 40), "\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractUserSnippet(tt.question))
		})
	}
}

func TestAsk(t *testing.T) {
	gen := &stubGenerator{answer: &generation.Answer{
		AnswerHTML:       "<p>La cantine coûte 24,77 € [#1].</p>",
		FollowUpQuestion: strPtr("Souhaitez-vous connaître le tarif de la cantine ?"),
	}}
	a := newTestAssistant(testSegments(), gen)

	resp, err := a.Ask(context.Background(), &models.AskRequest{Question: "Combien coûte la cantine ?"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, models.StatusAnswered, resp.Status)
	require.NotEmpty(t, resp.Segments)
	assert.Equal(t, 1, resp.Segments[0].CorpusID)
	assert.Equal(t, "1", resp.Segments[0].Reference)
	assert.Equal(t, "<p>La cantine coûte 24,77 € [#1].</p>", resp.AnswerHTML)
	assert.Equal(t, generation.DefaultAlignmentLabel, resp.Alignment.Label)
	assert.NotNil(t, resp.Sources)
	require.NotNil(t, resp.FollowUpQuestion)
	assert.Equal(t, "Quel est le tarif de la cantine ?", *resp.FollowUpQuestion)

	require.Equal(t, 1, gen.calls())
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Question utilisateur: Combien coûte la cantine ?")
	assert.Contains(t, prompt, "#1: Tarifs")
	assert.Contains(t, prompt, "Mémo RAG actuel")
}

func TestAsk_EmptyQuestion(t *testing.T) {
	a := newTestAssistant(testSegments(), &stubGenerator{})
	_, err := a.Ask(context.Background(), &models.AskRequest{Question: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	_, err = a.Search(context.Background(), &models.SearchRequest{})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_GenerationErrorsSurface(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("%w after 30s", generation.ErrTimeout)}
	a := newTestAssistant(testSegments(), gen)

	_, err := a.Ask(context.Background(), &models.AskRequest{Question: "Combien coûte la cantine ?"})
	assert.ErrorIs(t, err, generation.ErrTimeout)
}

func TestAsk_NoGenerator(t *testing.T) {
	lexical := keyword.NewBM25Index(keyword.NewAnalyzer(), testSegments())
	a := New(ranking.NewRanker(nil, testSegments(), lexical, nil, nil))

	_, err := a.Ask(context.Background(), &models.AskRequest{Question: "Combien coûte la cantine ?"})
	assert.ErrorIs(t, err, generation.ErrUnavailable)
}

func TestAsk_NoGrounding(t *testing.T) {
	gen := &stubGenerator{answer: &generation.Answer{}}
	a := New(ranking.NewRanker(nil, nil, nil, nil, nil), WithGenerator(gen))

	resp, err := a.Ask(context.Background(), &models.AskRequest{Question: "Bonjour"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInsufficient, resp.Status)
	assert.Empty(t, resp.Segments)
	assert.Equal(t, insufficientAnswerHTML, resp.AnswerHTML)
	assert.Nil(t, resp.FollowUpQuestion)
	assert.Zero(t, gen.calls())
}

func TestAsk_UserSnippetComesFirst(t *testing.T) {
	gen := &stubGenerator{answer: &generation.Answer{AnswerHTML: "<p>ok</p>"}}
	a := newTestAssistant(testSegments(), gen)

	resp, err := a.Ask(context.Background(), &models.AskRequest{
		Question: "Mes tarifs de cantine :\nCantine | 3,20 €\nGarderie | 1,10 €",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Segments)

	u := resp.Segments[0]
	assert.Equal(t, UserSnippetID, u.CustomID)
	assert.Equal(t, UserSnippetID, u.Reference)
	assert.Equal(t, -1, u.CorpusID)
	for _, seg := range resp.Segments[1:] {
		assert.Greater(t, u.Score, seg.Score)
		assert.NotEqual(t, UserSnippetID, seg.Reference)
	}
	assert.Contains(t, gen.prompts[0], "#U: Contribution utilisateur")
}

func TestAsk_CallerSegmentsAndIntent(t *testing.T) {
	gen := &stubGenerator{answer: &generation.Answer{AnswerHTML: "<p>ok</p>"}}
	a := newTestAssistant(testSegments(), gen)

	supplied := &models.RetrievedSegment{Label: "Fourni", Content: "Le tarif est de 5 €", Score: 1}
	label, weight := "action", 1.0
	resp, err := a.Ask(context.Background(), &models.AskRequest{
		Question:     "Quel est le prix ?",
		RAGResults:   []*models.RetrievedSegment{supplied},
		IntentLabel:  &label,
		IntentWeight: &weight,
	})
	require.NoError(t, err)

	require.Len(t, resp.Segments, 1)
	assert.Equal(t, -1, resp.Segments[0].CorpusID)
	assert.Equal(t, "1", resp.Segments[0].Reference)
	assert.InDelta(t, 3.5, resp.Segments[0].Score, 1e-9)
	assert.Equal(t, 1.0, supplied.Score, "caller segments are not modified")
	assert.Equal(t, models.IntentScore{Label: "action", Weight: 1.0}, resp.Intent)
}

func TestAsk_FollowUpWithoutAnswerIsDropped(t *testing.T) {
	gen := &stubGenerator{answer: &generation.Answer{
		AnswerHTML:       "<p>ok</p>",
		FollowUpQuestion: strPtr("Voulez-vous les horaires de la piscine municipale ?"),
	}}
	a := newTestAssistant(testSegments(), gen)

	resp, err := a.Ask(context.Background(), &models.AskRequest{Question: "Combien coûte la cantine ?"})
	require.NoError(t, err)
	assert.Nil(t, resp.FollowUpQuestion)
}

func TestAsk_Cache(t *testing.T) {
	gen := &stubGenerator{answer: &generation.Answer{AnswerHTML: "<p>ok</p>"}}
	a := newTestAssistant(testSegments(), gen, WithCache(NewCache(time.Minute)))

	first, err := a.Ask(context.Background(), &models.AskRequest{Question: "Combien coûte la cantine ?"})
	require.NoError(t, err)
	second, err := a.Ask(context.Background(), &models.AskRequest{Question: "combien COUTE la cantine"})
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.Equal(t, first.AnswerHTML, second.AnswerHTML)
	assert.Equal(t, 1, gen.calls())

	_, err = a.Ask(context.Background(), &models.AskRequest{
		Question:     "Combien coûte la cantine ?",
		Conversation: []models.ConversationTurn{{Role: models.RoleUser, Content: "Bonjour"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls(), "conversations bypass the cache")
}

func TestAsk_CacheKeyedByTopKAndQuestion(t *testing.T) {
	gen := &stubGenerator{answer: &generation.Answer{AnswerHTML: "<p>ok</p>"}}
	a := newTestAssistant(testSegments(), gen, WithCache(NewCache(time.Minute)))
	ctx := context.Background()

	one, err := a.Ask(ctx, &models.AskRequest{Question: "cantine inscription tarif", TopK: 1})
	require.NoError(t, err)
	require.Len(t, one.Segments, 1)

	three, err := a.Ask(ctx, &models.AskRequest{Question: "cantine inscription tarif", TopK: 3})
	require.NoError(t, err)
	assert.False(t, three.Cached)
	assert.Len(t, three.Segments, 3)

	again, err := a.Ask(ctx, &models.AskRequest{Question: "cantine inscription tarif", TopK: 3})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Len(t, again.Segments, 3)

	shared := "cantine"
	first, err := a.Ask(ctx, &models.AskRequest{Question: "Menus de la cantine", NormalizedQuestion: shared})
	require.NoError(t, err)
	second, err := a.Ask(ctx, &models.AskRequest{Question: "Tarif de la cantine", NormalizedQuestion: shared})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.False(t, second.Cached, "different questions sharing a normalized form are cached apart")
	assert.Equal(t, 4, gen.calls())
}

func TestAsk_SharedCache(t *testing.T) {
	answers := NewCache(time.Minute)
	firstGen := &stubGenerator{answer: &generation.Answer{AnswerHTML: "<p>ok</p>"}}
	secondGen := &stubGenerator{answer: &generation.Answer{AnswerHTML: "<p>autre</p>"}}
	first := newTestAssistant(testSegments(), firstGen, WithCache(answers))
	second := newTestAssistant(testSegments(), secondGen, WithCache(answers))

	_, err := first.Ask(context.Background(), &models.AskRequest{Question: "Combien coûte la cantine ?"})
	require.NoError(t, err)
	resp, err := second.Ask(context.Background(), &models.AskRequest{Question: "Combien coûte la cantine ?"})
	require.NoError(t, err)

	assert.True(t, resp.Cached)
	assert.Equal(t, "<p>ok</p>", resp.AnswerHTML)
	assert.Equal(t, 0, secondGen.calls())
	assert.Equal(t, 1, answers.ItemCount())
}

func TestNewCache_DisabledTTL(t *testing.T) {
	assert.Nil(t, NewCache(0))

	gen := &stubGenerator{answer: &generation.Answer{AnswerHTML: "<p>ok</p>"}}
	a := newTestAssistant(testSegments(), gen, WithCache(NewCache(-time.Second)))
	for range 2 {
		resp, err := a.Ask(context.Background(), &models.AskRequest{Question: "Combien coûte la cantine ?"})
		require.NoError(t, err)
		assert.False(t, resp.Cached)
	}
	assert.Equal(t, 2, gen.calls())
}

func TestSearch(t *testing.T) {
	a := newTestAssistant(testSegments(), nil)

	resp, err := a.Search(context.Background(), &models.SearchRequest{Question: "Combien coûte la cantine ?", TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAnswered, resp.Status)
	assert.Equal(t, "combien coute la cantine", resp.Normalized)
	require.Len(t, resp.Segments, 2)
	assert.Equal(t, "1", resp.Segments[0].Reference)
	assert.Equal(t, "2", resp.Segments[1].Reference)

	empty, err := a.Search(context.Background(), &models.SearchRequest{Question: "zzz"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInsufficient, empty.Status)
	assert.Empty(t, empty.Segments)
}
