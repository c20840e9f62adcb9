package corpus

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/storage"
)

// Input formats accepted by the importer.
const (
	// FormatSegments is the corpus metadata format: [{label, url, section, source, content}].
	FormatSegments = "segments"
	// FormatPages is cleaned crawler output: [{source, content}], cut by the Sectioner.
	FormatPages = "pages"
)

// Importer loads corpus files into the segment store.
type Importer struct {
	store     storage.SegmentStore
	sectioner *Sectioner
	logger    *zap.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLogger sets a logger for import progress.
func WithLogger(l *zap.Logger) ImporterOption {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// WithSectioner replaces the default Sectioner used for FormatPages.
func WithSectioner(s *Sectioner) ImporterOption {
	return func(im *Importer) {
		if s != nil {
			im.sectioner = s
		}
	}
}

// NewImporter creates an importer writing to store.
func NewImporter(store storage.SegmentStore, opts ...ImporterOption) *Importer {
	im := &Importer{
		store:     store,
		sectioner: NewSectioner(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile reads path in the given format and replaces the stored corpus with it.
func (im *Importer) ImportFile(ctx context.Context, path, format string) (*storage.Import, error) {
	segments, err := im.read(path, format)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments in %s", path)
	}
	imp, err := im.store.ReplaceSegments(ctx, path, segments)
	if err != nil {
		return nil, fmt.Errorf("failed to store segments: %w", err)
	}
	im.logger.Info("corpus imported",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("segments", imp.SegmentCount),
		zap.String("import_id", imp.ID))
	return imp, nil
}

func (im *Importer) read(path, format string) ([]*models.Segment, error) {
	switch format {
	case "", FormatSegments:
		return LoadFile(path)
	case FormatPages:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open pages: %w", err)
		}
		defer f.Close()
		docs, err := ReadRawDocuments(f)
		if err != nil {
			return nil, err
		}
		segments := im.sectioner.Segments(docs)
		im.logger.Debug("pages sectioned", zap.Int("pages", len(docs)), zap.Int("segments", len(segments)))
		return segments, nil
	default:
		return nil, fmt.Errorf("unknown corpus format: %s (supported: segments, pages)", format)
	}
}

// Load returns the corpus from the store when it holds segments, otherwise from the
// metadata file at path. store may be nil.
func Load(ctx context.Context, store storage.SegmentStore, path string, logger *zap.Logger) ([]*models.Segment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store != nil {
		n, err := store.CountSegments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count stored segments: %w", err)
		}
		if n > 0 {
			segments, err := store.ListSegments(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list stored segments: %w", err)
			}
			if err := CheckIDs(segments); err != nil {
				return nil, err
			}
			logger.Info("corpus loaded from store", zap.Int("segments", len(segments)))
			return segments, nil
		}
	}
	if path == "" {
		return nil, fmt.Errorf("no corpus: store is empty and no corpus file configured")
	}
	segments, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("corpus loaded from file", zap.String("path", path), zap.Int("segments", len(segments)))
	return segments, nil
}
