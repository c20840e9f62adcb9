// Package assistant runs the question answering pipeline: query analysis, hybrid ranking,
// intent classification, references, prompt assembly, generation and follow-up validation.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/hyperjump/enfance/internal/datasets"
	"github.com/hyperjump/enfance/internal/followup"
	"github.com/hyperjump/enfance/internal/generation"
	"github.com/hyperjump/enfance/internal/intent"
	"github.com/hyperjump/enfance/internal/lexicon"
	"github.com/hyperjump/enfance/internal/metrics"
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/ranking"
	"github.com/hyperjump/enfance/internal/reference"
	"github.com/hyperjump/enfance/internal/textnorm"
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// Default answer returned without calling the model when nothing grounds the question.
const insufficientAnswerHTML = "<p>Je n'ai pas trouvé d'information fiable sur ce sujet dans les pages de la ville. " +
	"Vous pouvez reformuler votre question ou contacter la mairie.</p>"

// Generator turns an assembled prompt into an answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*generation.Answer, error)
}

// Assistant holds the read-only state shared by every request. It is safe for concurrent use.
type Assistant struct {
	ranker     *ranking.Ranker
	classifier *intent.Classifier
	catalog    *datasets.Catalog
	validator  *followup.Validator
	generator  Generator
	cache      *cache.Cache
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithGenerator sets the model client. Without one, Ask fails with generation.ErrUnavailable.
func WithGenerator(g Generator) Option {
	return func(a *Assistant) {
		a.generator = g
	}
}

// WithCatalog sets the structured datasets.
func WithCatalog(c *datasets.Catalog) Option {
	return func(a *Assistant) {
		a.catalog = c
	}
}

// WithClassifier replaces the default intent classifier.
func WithClassifier(c *intent.Classifier) Option {
	return func(a *Assistant) {
		if c != nil {
			a.classifier = c
		}
	}
}

// NewCache returns an answer cache expiring entries after ttl, or nil when ttl <= 0.
// Each cache runs its own janitor goroutine; build it once and share it between assistants.
func NewCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		return nil
	}
	return cache.New(ttl, 2*ttl)
}

// WithCache enables the answer cache for standalone questions. A nil cache leaves it disabled.
func WithCache(c *cache.Cache) Option {
	return func(a *Assistant) {
		a.cache = c
	}
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Assistant) {
		a.metrics = m
	}
}

// New creates an Assistant around ranker.
func New(ranker *ranking.Ranker, opts ...Option) *Assistant {
	a := &Assistant{
		ranker:     ranker,
		classifier: intent.NewClassifier(nil),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.catalog != nil {
		a.validator = followup.NewValidator(a.catalog, a.logger)
	} else {
		a.validator = followup.NewValidator(nil, a.logger)
	}
	return a
}

// Search ranks and references segments for a question without generating an answer.
func (a *Assistant) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	if req == nil || strings.TrimSpace(req.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	cfg := a.ranker.Config()
	topK := clampTopK(req.TopK, cfg)

	q := a.ranker.AnalyzeQuery(req.Question, "")
	segments := reference.Assign(nonNil(a.rank(ctx, q, topK)))

	return &models.SearchResponse{
		Question:      req.Question,
		Normalized:    q.Normalized,
		ExpandedQuery: q.Expanded,
		Intent:        a.classifier.Classify(q.Normalized),
		LexiconTerms:  lexicon.UserTerms(q.Matches),
		Status:        status(segments),
		Segments:      segments,
		QueryTime:     time.Since(start).Milliseconds(),
	}, nil
}

// Ask answers a question. Only generation failures are returned as errors; degraded
// retrieval yields fewer segments or an insufficient status.
func (a *Assistant) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()
	if req == nil || strings.TrimSpace(req.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	cfg := a.ranker.Config()
	if err := req.Validate(cfg.TopK, cfg.MaxTopK); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	reqID := requestID(ctx)
	logger := a.logger.With(zap.String("request_id", reqID))

	q := a.ranker.AnalyzeQuery(req.Question, req.NormalizedQuestion)
	key := cacheKey(req, q)
	cacheable := a.cache != nil && standalone(req)
	if cacheable {
		if cached, ok := a.cache.Get(key); ok {
			resp := *cached.(*models.AskResponse)
			resp.RequestID = reqID
			resp.Cached = true
			resp.QueryTime = time.Since(start).Milliseconds()
			a.metrics.RecordCacheHit()
			logger.Debug("answer served from cache", zap.String("normalized", q.Normalized))
			return &resp, nil
		}
	}

	var segments []*models.RetrievedSegment
	if len(req.RAGResults) > 0 {
		segments = copySegments(req.RAGResults)
		a.ranker.Rescore(q, segments)
	} else {
		segments = a.rank(ctx, q, req.TopK)
	}
	if snippet := ExtractUserSnippet(req.Question); snippet != "" && !hasUserSegment(segments) {
		u := userSegment(snippet, segments, cfg.CurrencyBonus)
		a.ranker.Rescore(q, []*models.RetrievedSegment{u})
		segments = append([]*models.RetrievedSegment{u}, segments...)
	}
	logScores(logger, q, segments)

	detected := a.detectIntent(q, req)
	segments = reference.Assign(nonNil(segments))
	conversation := reference.AppendMemo(req.Conversation, segments)
	structured := a.catalog.Sections(datasets.Query{
		Question:   req.Question,
		Normalized: q.Normalized,
		Matches:    q.Matches,
		Segments:   segments,
	})

	resp := &models.AskResponse{
		RequestID: reqID,
		Status:    status(segments),
		Intent:    detected,
		Segments:  segments,
	}
	if len(segments) == 0 && structured == "" {
		logger.Info("no grounding found", zap.String("question", req.Question))
		answer := &generation.Answer{AnswerHTML: insufficientAnswerHTML}
		answer.ApplyDefaults()
		fill(resp, answer)
		a.finish(resp, start, cacheable, key)
		return resp, nil
	}

	prompt := generation.BuildPrompt(generation.PromptInput{
		Question:       req.Question,
		Normalized:     q.Normalized,
		Intent:         detected,
		StructuredData: structured,
		Conversation:   conversation,
		Segments:       segments,
		Instructions:   req.Instructions,
	})
	answer, err := a.generate(ctx, prompt)
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		return nil, err
	}

	fill(resp, answer)
	resp.FollowUpQuestion = a.checkFollowUp(logger, answer.FollowUpQuestion, req.Question, segments)
	a.finish(resp, start, cacheable, key)
	return resp, nil
}

// rank runs retrieval detached from the caller's cancellation so a request either completes
// ranking or fails at generation.
func (a *Assistant) rank(ctx context.Context, q *ranking.Query, topK int) []*models.RetrievedSegment {
	start := time.Now()
	segments := a.ranker.Rank(context.WithoutCancel(ctx), q, topK, a.ranker.Config().MinSemanticScore)
	a.metrics.RecordRank(time.Since(start))
	return segments
}

func (a *Assistant) generate(ctx context.Context, prompt string) (*generation.Answer, error) {
	if a.generator == nil {
		return nil, fmt.Errorf("%w: no model client configured", generation.ErrUnavailable)
	}
	start := time.Now()
	answer, err := a.generator.Generate(ctx, prompt)
	a.metrics.RecordGeneration(generationOutcome(err), time.Since(start))
	return answer, err
}

func (a *Assistant) detectIntent(q *ranking.Query, req *models.AskRequest) models.IntentScore {
	if req.IntentLabel != nil && req.IntentWeight != nil {
		return models.IntentScore{Label: *req.IntentLabel, Weight: *req.IntentWeight}
	}
	return a.classifier.Classify(q.Normalized)
}

func (a *Assistant) checkFollowUp(logger *zap.Logger, candidate *string, question string, segments []*models.RetrievedSegment) *string {
	normalized := followup.Normalize(candidate)
	if normalized == nil {
		a.metrics.RecordFollowUp("none")
		return nil
	}
	final := a.validator.Validate(candidate, question, segments)
	switch {
	case final == nil:
		a.metrics.RecordFollowUp("dropped")
	case *final == *normalized:
		a.metrics.RecordFollowUp("kept")
	default:
		a.metrics.RecordFollowUp("replaced")
	}
	logger.Debug("follow-up checked", zap.Stringp("candidate", normalized), zap.Stringp("final", final))
	return final
}

func (a *Assistant) finish(resp *models.AskResponse, start time.Time, cacheable bool, key string) {
	resp.QueryTime = time.Since(start).Milliseconds()
	a.metrics.RecordAnswer(resp.Status, len(resp.Segments))
	if cacheable && key != "" {
		stored := *resp
		a.cache.Set(key, &stored, cache.DefaultExpiration)
	}
}

func fill(resp *models.AskResponse, answer *generation.Answer) {
	resp.AnswerHTML = answer.AnswerHTML
	resp.AnswerText = answer.AnswerText
	resp.Alignment = answer.Alignment
	resp.Sources = answer.Sources
	if resp.Sources == nil {
		resp.Sources = []models.Source{}
	}
}

// cacheKey identifies an answer by the normalized raw question, the caller's normalized
// form and the effective top_k. req must be validated.
func cacheKey(req *models.AskRequest, q *ranking.Query) string {
	return fmt.Sprintf("%d|%s|%s", req.TopK, textnorm.Normalize(req.Question), q.Normalized)
}

// standalone reports whether the answer depends on the question alone.
func standalone(req *models.AskRequest) bool {
	return len(req.Conversation) == 0 && len(req.RAGResults) == 0 && req.Instructions == "" &&
		req.IntentLabel == nil && req.IntentWeight == nil
}

func status(segments []*models.RetrievedSegment) string {
	if len(segments) == 0 {
		return models.StatusInsufficient
	}
	return models.StatusAnswered
}

func nonNil(segments []*models.RetrievedSegment) []*models.RetrievedSegment {
	if segments == nil {
		return []*models.RetrievedSegment{}
	}
	return segments
}

func clampTopK(topK int, cfg *ranking.RankingConfig) int {
	if topK <= 0 {
		return cfg.TopK
	}
	if topK > cfg.MaxTopK {
		return cfg.MaxTopK
	}
	return topK
}

func copySegments(in []*models.RetrievedSegment) []*models.RetrievedSegment {
	out := make([]*models.RetrievedSegment, 0, len(in))
	for _, seg := range in {
		if seg == nil {
			continue
		}
		c := *seg
		c.CorpusID = -1
		c.Reference = ""
		out = append(out, &c)
	}
	return out
}

func generationOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, generation.ErrTimeout):
		return "timeout"
	case errors.Is(err, generation.ErrInvalidResponse):
		return "invalid"
	default:
		return "unavailable"
	}
}

func logScores(logger *zap.Logger, q *ranking.Query, segments []*models.RetrievedSegment) {
	ce := logger.Check(zap.DebugLevel, "segments selected")
	if ce == nil {
		return
	}
	top := make([]string, 0, 5)
	for i, seg := range segments {
		if i == 5 {
			break
		}
		top = append(top, fmt.Sprintf("%.3f %s %s", seg.Score, seg.DisplayLabel(), seg.CustomID))
	}
	ce.Write(
		zap.String("question", q.Question),
		zap.Strings("lexicon", lexicon.UserTerms(q.Matches)),
		zap.Strings("top", top),
	)
}
