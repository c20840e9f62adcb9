// Package keyword provides the lexical (BM25F) index over corpus segments.
package keyword

import "context"

// KeywordIndex defines lexical search over segments.
type KeywordIndex interface {
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	// DocCount returns the number of indexed segments.
	DocCount() int
	// Available reports whether the index can answer queries.
	Available() bool
}

// KeywordResult is a single lexical hit. ID is the segment ID.
type KeywordResult struct {
	ID    int
	Score float64
}

// SearchOptions tunes BM25F scoring. Zero values fall back to defaults.
type SearchOptions struct {
	// K1 controls term frequency saturation (default 1.6).
	K1 float64
	// B controls document length normalization (default 0.75, must be in (0, 1]).
	B float64
	// LabelBoost multiplies the label field contribution (default 1.0).
	LabelBoost float64
	// ContentBoost multiplies the content field contribution (default 1.0).
	ContentBoost float64
}

const (
	defaultK1 = 1.6
	defaultB  = 0.75
)

func (o SearchOptions) withDefaults() SearchOptions {
	if o.K1 <= 0 {
		o.K1 = defaultK1
	}
	if o.B <= 0 || o.B > 1 {
		o.B = defaultB
	}
	if o.LabelBoost <= 0 {
		o.LabelBoost = 1
	}
	if o.ContentBoost <= 0 {
		o.ContentBoost = 1
	}
	return o
}
