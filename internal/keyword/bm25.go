package keyword

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/enfance/internal/models"
)

// field indexes of the two analyzed fields.
const (
	fieldLabel = iota
	fieldContent
	numFields
)

type posting struct {
	doc int
	tf  int
}

type fieldStats struct {
	postings map[string][]posting
	lengths  []int
	avgLen   float64
}

// BM25Index is an immutable in-memory BM25F index built from segments at startup.
// Safe for concurrent searches.
type BM25Index struct {
	analyzer *Analyzer
	opts     SearchOptions
	ids      []int
	fields   [numFields]fieldStats
	logger   *zap.Logger
}

// Option configures a BM25Index.
type Option func(*BM25Index)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *BM25Index) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithSearchOptions overrides the scoring parameters.
func WithSearchOptions(opts SearchOptions) Option {
	return func(b *BM25Index) {
		b.opts = opts.withDefaults()
	}
}

// NewBM25Index analyzes and indexes segments. The label field holds the label; the content
// field holds content, label, source and section.
func NewBM25Index(analyzer *Analyzer, segments []*models.Segment, opts ...Option) *BM25Index {
	b := &BM25Index{
		analyzer: analyzer,
		opts:     SearchOptions{}.withDefaults(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	for f := range b.fields {
		b.fields[f].postings = make(map[string][]posting)
	}
	if !analyzer.Available() {
		b.logger.Warn("french analyzer unavailable, lexical search disabled")
		return b
	}
	for _, seg := range segments {
		if seg == nil {
			continue
		}
		doc := len(b.ids)
		b.ids = append(b.ids, seg.ID)
		b.addField(fieldLabel, doc, seg.Label)
		b.addField(fieldContent, doc, contentFieldText(seg))
	}
	for f := range b.fields {
		fs := &b.fields[f]
		total := 0
		for _, l := range fs.lengths {
			total += l
		}
		if len(fs.lengths) > 0 {
			fs.avgLen = float64(total) / float64(len(fs.lengths))
		}
	}
	b.logger.Debug("lexical index built",
		zap.Int("segments", len(b.ids)),
		zap.Int("content_terms", len(b.fields[fieldContent].postings)))
	return b
}

func contentFieldText(seg *models.Segment) string {
	parts := []string{seg.Content, seg.Label, seg.Source}
	if seg.Section != nil {
		parts = append(parts, strconv.Itoa(*seg.Section))
	}
	return strings.Join(parts, " ")
}

func (b *BM25Index) addField(field, doc int, text string) {
	fs := &b.fields[field]
	terms := b.analyzer.Terms(text)
	fs.lengths = append(fs.lengths, len(terms))
	if len(terms) == 0 {
		return
	}
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	for t, tf := range counts {
		fs.postings[t] = append(fs.postings[t], posting{doc: doc, tf: tf})
	}
}

// Available reports whether the index was built with a working analyzer and holds segments.
func (b *BM25Index) Available() bool {
	return b != nil && b.analyzer.Available() && len(b.ids) > 0
}

// DocCount returns the number of indexed segments.
func (b *BM25Index) DocCount() int {
	if b == nil {
		return 0
	}
	return len(b.ids)
}

// Search scores every segment sharing a term with query and returns up to limit hits by
// descending score. Ties keep corpus order. An unavailable index returns no hits.
func (b *BM25Index) Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error) {
	if !b.Available() || limit <= 0 {
		return nil, nil
	}
	terms := uniqueTerms(b.analyzer.Terms(query))
	if len(terms) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boosts := [numFields]float64{b.opts.LabelBoost, b.opts.ContentBoost}
	n := float64(len(b.ids))
	scores := make(map[int]float64)
	for f := range b.fields {
		fs := &b.fields[f]
		for _, term := range terms {
			plist := fs.postings[term]
			if len(plist) == 0 {
				continue
			}
			idf := bm25IDF(n, float64(len(plist)))
			for _, p := range plist {
				scores[p.doc] += boosts[f] * idf * b.termWeight(float64(p.tf), float64(fs.lengths[p.doc]), fs.avgLen)
			}
		}
	}

	docs := make([]int, 0, len(scores))
	for doc := range scores {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if scores[docs[i]] != scores[docs[j]] {
			return scores[docs[i]] > scores[docs[j]]
		}
		return docs[i] < docs[j]
	})
	if len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]*KeywordResult, len(docs))
	for i, doc := range docs {
		out[i] = &KeywordResult{ID: b.ids[doc], Score: scores[doc]}
	}
	return out, nil
}

func (b *BM25Index) termWeight(tf, docLen, avgLen float64) float64 {
	norm := 1.0
	if avgLen > 0 {
		norm = 1 - b.opts.B + b.opts.B*docLen/avgLen
	}
	return tf * (b.opts.K1 + 1) / (tf + b.opts.K1*norm)
}

// bm25IDF is the non-negative Robertson/Sparck Jones idf.
func bm25IDF(n, df float64) float64 {
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
