// Package storage persists the imported corpus segments so the server can load them at
// startup without re-reading the crawler output.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/enfance/internal/models"
)

// Import records one corpus import.
type Import struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	SegmentCount int       `json:"segment_count"`
	ImportedAt   time.Time `json:"imported_at"`
}

// SegmentStore defines corpus segment persistence.
type SegmentStore interface {
	// ReplaceSegments atomically replaces the whole corpus and records the import.
	ReplaceSegments(ctx context.Context, source string, segments []*models.Segment) (*Import, error)
	// ListSegments returns every segment ordered by ID.
	ListSegments(ctx context.Context) ([]*models.Segment, error)
	GetSegment(ctx context.Context, id int) (*models.Segment, error)
	CountSegments(ctx context.Context) (int64, error)
	// LastImport returns the most recent import, or nil when the store is empty.
	LastImport(ctx context.Context) (*Import, error)

	Close() error
}
