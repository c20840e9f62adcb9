package ranking

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/enfance/internal/keyword"
	"github.com/hyperjump/enfance/internal/lexicon"
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/textnorm"
	"github.com/hyperjump/enfance/internal/vector"
	"github.com/hyperjump/enfance/pkg/utils"
)

// excerptRunes is the length of the excerpt attached to retrieved segments.
const excerptRunes = 400

// SemanticSearcher is the semantic capability used by the ranker.
type SemanticSearcher interface {
	Available() bool
	Search(ctx context.Context, question string, limit int, minScore float64) ([]*vector.VectorResult, error)
}

// Ranker combines lexical and semantic retrieval with bonus rules.
// It holds read-only state and is safe for concurrent use.
type Ranker struct {
	config   *RankingConfig
	segments []*models.Segment
	lexical  keyword.KeywordIndex
	semantic SemanticSearcher
	lexicon  *lexicon.Lexicon
	rules    []Rule
	logger   *zap.Logger
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Ranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRules replaces the default rules.
func WithRules(rules []Rule) Option {
	return func(r *Ranker) {
		r.rules = rules
	}
}

// NewRanker creates a Ranker. segments must be indexed by ID. lexical, semantic and lex may be
// nil, which disables the corresponding capability.
func NewRanker(config *RankingConfig, segments []*models.Segment, lexical keyword.KeywordIndex, semantic SemanticSearcher, lex *lexicon.Lexicon, opts ...Option) *Ranker {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()
	if lex == nil {
		lex = lexicon.Empty()
	}
	r := &Ranker{
		config:   config,
		segments: segments,
		lexical:  lexical,
		semantic: semantic,
		lexicon:  lex,
		rules:    DefaultRules(config),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective configuration.
func (r *Ranker) Config() *RankingConfig {
	return r.config
}

// AnalyzeQuery normalizes question, matches the lexicon and expands the question.
// normalized is the caller's normalized form and may be empty.
func (r *Ranker) AnalyzeQuery(question, normalized string) *Query {
	q := &Query{Question: question}
	q.Normalized = textnorm.Normalize(normalized)
	if q.Normalized == "" {
		q.Normalized = textnorm.Normalize(question)
	}
	q.Matches = r.lexicon.Match(question, q.Normalized)
	q.AdminTerms = lexicon.AdminTerms(q.Matches)
	q.Expanded = r.lexicon.Expand(question, q.Matches)
	return q
}

// Rank returns at most topK segments for q, best first, with empty references.
// topK <= 0 uses the configured default. A failing capability is logged and skipped;
// an empty question or empty indexes yield an empty list.
func (r *Ranker) Rank(ctx context.Context, q *Query, topK int, minSemanticScore float64) []*models.RetrievedSegment {
	if q == nil || q.Question == "" {
		return nil
	}
	if topK <= 0 {
		topK = r.config.TopK
	}
	if topK > r.config.MaxTopK {
		topK = r.config.MaxTopK
	}
	fetch := topK * r.config.OverfetchFactor

	var (
		lexHits []*keyword.KeywordResult
		semHits []*vector.VectorResult
	)
	var g errgroup.Group
	if r.lexical != nil && r.lexical.Available() {
		g.Go(func() error {
			query := q.Expanded
			if query == "" {
				query = q.Question
			}
			hits, err := r.lexical.Search(ctx, query, fetch)
			if err != nil {
				return fmt.Errorf("lexical search: %w", err)
			}
			lexHits = hits
			return nil
		})
	}
	if r.semantic != nil && r.semantic.Available() {
		g.Go(func() error {
			hits, err := r.semantic.Search(ctx, q.Question, fetch, minSemanticScore)
			if err != nil {
				return fmt.Errorf("semantic search: %w", err)
			}
			semHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("retrieval degraded", zap.Error(err))
	}

	candidates := Fuse(lexHits, semHits, r.segment)
	r.score(q, candidates)
	SortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]*models.RetrievedSegment, len(candidates))
	for i, c := range candidates {
		out[i] = materialize(c)
	}
	r.logDebug(q, candidates)
	return out
}

// Rescore applies the currency and lexicon weight rules to caller-supplied segments in place.
// Order is kept.
func (r *Ranker) Rescore(q *Query, segments []*models.RetrievedSegment) {
	if q == nil || len(segments) == 0 {
		return
	}
	rules := []Rule{NewCurrencyRule(r.config), EntryWeightRule{}}
	for _, seg := range segments {
		c := &Candidate{
			Text:        utils.JoinNonEmpty("\n", seg.Content, seg.Excerpt),
			Label:       seg.Label,
			Adjustments: make(map[string]float64),
		}
		for _, rule := range rules {
			if !rule.Applies(q) {
				continue
			}
			if delta := rule.Adjust(q, c); delta != 0 {
				c.Adjustments[rule.Name()] = delta
				seg.Score += delta
			}
		}
	}
}

func (r *Ranker) score(q *Query, candidates []*Candidate) {
	for _, c := range candidates {
		c.Score = c.LexicalScore*r.config.LexicalWeight + c.SemanticScore*r.config.SemanticWeight
	}
	for _, rule := range r.rules {
		if !rule.Applies(q) {
			continue
		}
		for _, c := range candidates {
			if delta := rule.Adjust(q, c); delta != 0 {
				c.Adjustments[rule.Name()] = delta
				c.Score += delta
			}
		}
	}
}

func (r *Ranker) segment(id int) *models.Segment {
	if id < 0 || id >= len(r.segments) {
		return nil
	}
	return r.segments[id]
}

func (r *Ranker) logDebug(q *Query, candidates []*Candidate) {
	if ce := r.logger.Check(zap.DebugLevel, "ranked segments"); ce != nil {
		top := make([]string, 0, len(candidates))
		for _, c := range candidates {
			top = append(top, fmt.Sprintf("%.3f %s", c.Score, c.Segment.DisplayLabel()))
		}
		ce.Write(
			zap.String("question", q.Question),
			zap.Strings("lexicon", lexicon.UserTerms(q.Matches)),
			zap.Strings("top", top),
		)
	}
}

func materialize(c *Candidate) *models.RetrievedSegment {
	seg := c.Segment
	label := seg.Label
	if label == "" {
		label = seg.Source
	}
	return &models.RetrievedSegment{
		CorpusID:      seg.ID,
		Label:         label,
		URL:           seg.URL,
		Content:       seg.Content,
		Excerpt:       utils.Prefix(seg.Content, excerptRunes),
		Score:         c.Score,
		LexicalScore:  c.LexicalScore,
		SemanticScore: c.SemanticScore,
	}
}

