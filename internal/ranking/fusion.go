package ranking

import (
	"sort"

	"github.com/hyperjump/enfance/internal/keyword"
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/vector"
	"github.com/hyperjump/enfance/pkg/utils"
)

// SegmentLookup resolves a segment ID to its segment.
type SegmentLookup func(id int) *models.Segment

// Fuse merges lexical and semantic hits into candidates in discovery order: lexical hits in
// rank order, then semantic-only hits in rank order. Hits with unknown IDs are dropped.
func Fuse(lexical []*keyword.KeywordResult, semantic []*vector.VectorResult, lookup SegmentLookup) []*Candidate {
	byID := make(map[int]*Candidate, len(lexical)+len(semantic))
	candidates := make([]*Candidate, 0, len(lexical)+len(semantic))
	get := func(id int) *Candidate {
		if c, ok := byID[id]; ok {
			return c
		}
		seg := lookup(id)
		if seg == nil {
			return nil
		}
		c := &Candidate{
			Segment:     seg,
			Text:        seg.Content,
			Label:       utils.JoinNonEmpty(" ", seg.Label, seg.Source),
			Adjustments: make(map[string]float64),
			order:       len(candidates),
		}
		byID[id] = c
		candidates = append(candidates, c)
		return c
	}
	for _, hit := range lexical {
		if c := get(hit.ID); c != nil {
			c.FromLexical = true
			c.LexicalScore += hit.Score
		}
	}
	for _, hit := range semantic {
		if c := get(hit.ID); c != nil {
			c.FromSemantic = true
			c.SemanticScore = hit.Score
		}
	}
	return candidates
}

// SortCandidates orders by descending score, ties by discovery order.
func SortCandidates(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].order < candidates[j].order
	})
}
