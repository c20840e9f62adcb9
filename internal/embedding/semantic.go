package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/enfance/internal/vector"
)

// Semantic couples a query embedder with the corpus embedding matrix.
// It is unavailable when either piece is missing or their dimensions disagree.
type Semantic struct {
	embedder Embedder
	index    vector.VectorIndex
	logger   *zap.Logger
}

// NewSemantic builds the capability. Either argument may be nil.
func NewSemantic(embedder Embedder, index vector.VectorIndex, logger *zap.Logger) *Semantic {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Semantic{embedder: embedder, index: index, logger: logger}
	switch {
	case embedder == nil:
		logger.Warn("no query embedder configured, semantic search disabled")
	case index == nil || index.Size() == 0:
		logger.Warn("embedding matrix missing or empty, semantic search disabled")
	case embedder.Dimensions() > 0 && embedder.Dimensions() != index.Dimensions():
		logger.Warn("embedder and matrix dimensions differ, semantic search disabled",
			zap.Int("embedder", embedder.Dimensions()),
			zap.Int("matrix", index.Dimensions()))
	}
	return s
}

// Available reports whether semantic search can run.
func (s *Semantic) Available() bool {
	if s == nil || s.embedder == nil || s.index == nil || s.index.Size() == 0 {
		return false
	}
	d := s.embedder.Dimensions()
	return d <= 0 || d == s.index.Dimensions()
}

// Search embeds question and returns up to limit segments with cosine >= minScore.
// An unavailable capability returns no hits and no error.
func (s *Semantic) Search(ctx context.Context, question string, limit int, minScore float64) ([]*vector.VectorResult, error) {
	if !s.Available() || question == "" || limit <= 0 {
		return nil, nil
	}
	q, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if vector.L2Norm(q) == 0 {
		return nil, fmt.Errorf("embed query: zero vector")
	}
	return s.index.Search(ctx, q, limit, minScore)
}

// Close releases the embedder.
func (s *Semantic) Close() error {
	if s == nil || s.embedder == nil {
		return nil
	}
	return s.embedder.Close()
}
