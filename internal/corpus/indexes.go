package corpus

import (
	"go.uber.org/zap"

	"github.com/hyperjump/enfance/internal/keyword"
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/vector"
)

// Indexes is the read-only retrieval state built once at startup.
type Indexes struct {
	Segments []*models.Segment
	Lexical  *keyword.BM25Index
	// Matrix is nil when no embedding matrix is loaded or it does not match the corpus.
	Matrix *vector.MatrixIndex
}

// Lookup returns the segment with the given ID, or nil.
func (ix *Indexes) Lookup(id int) *models.Segment {
	if id < 0 || id >= len(ix.Segments) {
		return nil
	}
	return ix.Segments[id]
}

// BuildIndexes builds the lexical index over segments and attaches matrix when it has one
// row per segment. matrix may be nil.
func BuildIndexes(segments []*models.Segment, matrix *vector.MatrixIndex, opts keyword.SearchOptions, logger *zap.Logger) *Indexes {
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := &Indexes{
		Segments: segments,
		Lexical: keyword.NewBM25Index(keyword.NewAnalyzer(), segments,
			keyword.WithLogger(logger),
			keyword.WithSearchOptions(opts)),
	}
	switch {
	case matrix == nil:
	case matrix.Size() != len(segments):
		logger.Warn("embedding matrix does not match corpus, semantic search disabled",
			zap.Int("rows", matrix.Size()),
			zap.Int("segments", len(segments)))
	default:
		ix.Matrix = matrix
	}
	logger.Info("indexes built",
		zap.Int("segments", len(segments)),
		zap.Int("lexical_docs", ix.Lexical.DocCount()),
		zap.Bool("semantic", ix.Matrix != nil))
	return ix
}
