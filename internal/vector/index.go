// Package vector provides the semantic vector index and similarity search.
package vector

import "context"

// VectorIndex defines similarity search over segment embeddings.
type VectorIndex interface {
	Search(ctx context.Context, query []float32, k int, minScore float64) ([]*VectorResult, error)
	Dimensions() int
	Size() int
}

// VectorResult is a single vector search hit. ID is the segment ID.
type VectorResult struct {
	ID    int
	Score float64 // cosine similarity for unit-norm vectors
}
