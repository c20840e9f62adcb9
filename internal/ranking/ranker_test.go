package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/enfance/internal/embedding"
	"github.com/hyperjump/enfance/internal/keyword"
	"github.com/hyperjump/enfance/internal/lexicon"
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/vector"
)

func corpus() []*models.Segment {
	return []*models.Segment{
		{ID: 0, Label: "Restauration scolaire", Content: "La cantine accueille les enfants. Cantine et cantine : menus équilibrés pour la cantine."},
		{ID: 1, Label: "Tarifs", Content: "Tarif cantine : 24,77 € par mois selon le quotient."},
		{ID: 2, Label: "Inscriptions", Content: "Inscription scolaire en mairie de secteur avec les pièces justificatives."},
		{ID: 3, Label: "Crèches", Content: "Les crèches municipales accueillent les tout-petits."},
	}
}

func newTestRanker(t *testing.T, segs []*models.Segment, lex *lexicon.Lexicon, withSemantic bool) *Ranker {
	t.Helper()
	lexical := keyword.NewBM25Index(keyword.NewAnalyzer(), segs)
	var semantic SemanticSearcher
	if withSemantic && len(segs) > 0 {
		e := embedding.NewMockEmbedder(16)
		texts := make([]string, len(segs))
		for i, s := range segs {
			texts[i] = s.Content
		}
		rows, err := e.EmbedBatch(context.Background(), texts)
		require.NoError(t, err)
		idx, err := vector.NewMatrixIndexFromRows(rows)
		require.NoError(t, err)
		semantic = embedding.NewSemantic(e, idx, nil)
	}
	return NewRanker(nil, segs, lexical, semantic, lex)
}

func TestRanker_CurrencyBonus(t *testing.T) {
	r := newTestRanker(t, corpus(), nil, false)
	q := r.AnalyzeQuery("Combien coûte la cantine ?", "")

	results := r.Rank(context.Background(), q, 5, 0.25)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, results[0].CorpusID, "segment with price data ranks first")

	var plain *models.RetrievedSegment
	for _, res := range results {
		if res.CorpusID == 0 {
			plain = res
		}
	}
	require.NotNil(t, plain)
	assert.Greater(t, plain.LexicalScore, 0.0)
	assert.InDelta(t, results[0].LexicalScore*1.0+2.5, results[0].Score, 1e-9)
}

func TestRanker_CurrencyBonusCloseScores(t *testing.T) {
	r := NewRanker(nil, corpus(), nil, nil, nil)
	q := r.AnalyzeQuery("Combien coûte la cantine ?", "")
	candidates := []*Candidate{
		{Segment: corpus()[0], Text: corpus()[0].Content, FromLexical: true, LexicalScore: 3.0, Adjustments: map[string]float64{}, order: 0},
		{Segment: corpus()[1], Text: corpus()[1].Content, FromLexical: true, LexicalScore: 2.0, Adjustments: map[string]float64{}, order: 1},
	}
	r.score(q, candidates)
	SortCandidates(candidates)
	assert.Equal(t, 1, candidates[0].Segment.ID)
	assert.Equal(t, 2.5, candidates[0].Adjustments["currency"])
}

func TestRanker_LexiconBoost(t *testing.T) {
	lex := lexicon.New([]lexicon.Entry{
		{UserTerm: "inscrire", AdminTerms: []string{"inscription scolaire"}, Weight: 1.0},
	}, map[string][]string{})
	r := newTestRanker(t, corpus(), lex, false)
	q := r.AnalyzeQuery("comment inscrire mon enfant", "")

	assert.Contains(t, q.Expanded, "inscription scolaire")
	results := r.Rank(context.Background(), q, 3, 0.25)
	require.NotEmpty(t, results)
	assert.Equal(t, 2, results[0].CorpusID)
	assert.InDelta(t, results[0].LexicalScore+2.5, results[0].Score, 1e-9)
}

func TestRanker_EmptyInputs(t *testing.T) {
	r := newTestRanker(t, nil, lexicon.Empty(), false)
	q := r.AnalyzeQuery("Combien coûte la cantine ?", "")
	assert.Empty(t, r.Rank(context.Background(), q, 5, 0.25))

	full := newTestRanker(t, corpus(), nil, true)
	assert.Empty(t, full.Rank(context.Background(), full.AnalyzeQuery("", ""), 5, 0.25))
	assert.Empty(t, full.Rank(context.Background(), nil, 5, 0.25))
}

func TestRanker_Deterministic(t *testing.T) {
	r := newTestRanker(t, corpus(), nil, true)
	ctx := context.Background()
	q := r.AnalyzeQuery("tarif de la cantine pour les enfants", "")

	first := r.Rank(ctx, q, 4, -1)
	for i := 0; i < 5; i++ {
		again := r.Rank(ctx, q, 4, -1)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].CorpusID, again[j].CorpusID)
			assert.Equal(t, first[j].Score, again[j].Score)
		}
	}
}

func TestRanker_TopKAndOrdering(t *testing.T) {
	r := newTestRanker(t, corpus(), nil, true)
	results := r.Rank(context.Background(), r.AnalyzeQuery("cantine crèche inscription", ""), 2, -1)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	for _, res := range results {
		assert.Empty(t, res.Reference)
		assert.NotEmpty(t, res.Excerpt)
	}
}

func TestRanker_BonusMonotonicity(t *testing.T) {
	r := NewRanker(nil, corpus(), nil, nil, nil)
	q := &Query{Question: "quel tarif", Normalized: "quel tarif"}
	build := func() []*Candidate {
		segs := corpus()
		return []*Candidate{
			{Segment: segs[3], Text: segs[3].Content, LexicalScore: 2.0, Adjustments: map[string]float64{}, order: 0},
			{Segment: segs[0], Text: segs[0].Content, LexicalScore: 1.0, Adjustments: map[string]float64{}, order: 1},
			{Segment: segs[1], Text: segs[1].Content, LexicalScore: 1.5, Adjustments: map[string]float64{}, order: 2},
		}
	}
	position := func(cands []*Candidate, id int) int {
		for i, c := range cands {
			if c.Segment.ID == id {
				return i
			}
		}
		return -1
	}

	without := build()
	WithRules(nil)(r)
	r.score(q, without)
	SortCandidates(without)

	with := build()
	WithRules(DefaultRules(r.config))(r)
	r.score(q, with)
	SortCandidates(with)

	assert.LessOrEqual(t, position(with, 1), position(without, 1))
}

func TestRanker_Rescore(t *testing.T) {
	lex := lexicon.New([]lexicon.Entry{
		{UserTerm: "cantine", AdminTerms: []string{"restauration scolaire"}, Weight: 0.8},
	}, map[string][]string{})
	r := NewRanker(nil, nil, nil, nil, lex)
	q := r.AnalyzeQuery("Combien coûte la cantine ?", "")

	segs := []*models.RetrievedSegment{
		{CorpusID: -1, Label: "Restauration scolaire", Content: "Repas : 3,20 €", Score: 1},
		{CorpusID: -1, Label: "Divers", Content: "Informations générales", Score: 4},
	}
	r.Rescore(q, segs)
	assert.InDelta(t, 1+2.5+0.8, segs[0].Score, 1e-9)
	assert.InDelta(t, 4, segs[1].Score, 1e-9)
	assert.Equal(t, "Restauration scolaire", segs[0].Label, "order and fields are kept")
}

func TestFuse_DiscoveryOrder(t *testing.T) {
	segs := corpus()
	lookup := func(id int) *models.Segment {
		if id < 0 || id >= len(segs) {
			return nil
		}
		return segs[id]
	}
	cands := Fuse(
		[]*keyword.KeywordResult{{ID: 2, Score: 3}, {ID: 0, Score: 1}},
		[]*vector.VectorResult{{ID: 0, Score: 0.5}, {ID: 3, Score: 0.4}, {ID: 99, Score: 0.9}},
		lookup,
	)
	require.Len(t, cands, 3)
	assert.Equal(t, []int{2, 0, 3}, []int{cands[0].Segment.ID, cands[1].Segment.ID, cands[2].Segment.ID})
	assert.True(t, cands[1].FromLexical && cands[1].FromSemantic)
	assert.Equal(t, 0.5, cands[1].SemanticScore)
}

type stubLexical struct{ hits []*keyword.KeywordResult }

func (s stubLexical) Search(ctx context.Context, query string, limit int) ([]*keyword.KeywordResult, error) {
	return s.hits, nil
}
func (s stubLexical) DocCount() int   { return len(s.hits) }
func (s stubLexical) Available() bool { return true }

type stubSemantic struct{ hits []*vector.VectorResult }

func (s stubSemantic) Available() bool { return true }
func (s stubSemantic) Search(ctx context.Context, question string, limit int, minScore float64) ([]*vector.VectorResult, error) {
	return s.hits, nil
}

func TestRanker_FusedScores(t *testing.T) {
	lexical := stubLexical{hits: []*keyword.KeywordResult{{ID: 3, Score: 2.0}, {ID: 0, Score: 1.0}}}
	semantic := stubSemantic{hits: []*vector.VectorResult{{ID: 3, Score: 0.5}, {ID: 2, Score: 0.8}}}

	tests := []struct {
		name      string
		config    *RankingConfig
		wantOrder []int
		wantScore map[int]float64
	}{
		{
			name:      "default weights",
			config:    nil,
			wantOrder: []int{3, 0, 2},
			wantScore: map[int]float64{3: 2.0*1.0 + 0.5*0.6, 0: 1.0, 2: 0.8 * 0.6},
		},
		{
			name:      "custom weights",
			config:    &RankingConfig{LexicalWeight: 0.2, SemanticWeight: 2.0},
			wantOrder: []int{2, 3, 0},
			wantScore: map[int]float64{3: 2.0*0.2 + 0.5*2.0, 0: 1.0 * 0.2, 2: 0.8 * 2.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRanker(tt.config, corpus(), lexical, semantic, nil)
			results := r.Rank(context.Background(), r.AnalyzeQuery("horaires de la crèche", ""), 5, 0)
			require.Len(t, results, 3)
			for i, res := range results {
				assert.Equal(t, tt.wantOrder[i], res.CorpusID, "position %d", i)
				assert.InDelta(t, tt.wantScore[res.CorpusID], res.Score, 1e-9, "segment %d", res.CorpusID)
			}
			byID := map[int]*models.RetrievedSegment{}
			for _, res := range results {
				byID[res.CorpusID] = res
			}
			assert.Equal(t, 2.0, byID[3].LexicalScore)
			assert.Equal(t, 0.5, byID[3].SemanticScore)
			assert.Equal(t, 0.0, byID[2].LexicalScore)
			assert.Equal(t, 0.0, byID[0].SemanticScore)
		})
	}
}
