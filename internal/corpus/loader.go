// Package corpus loads the segment corpus, cuts raw crawled pages into segments and
// builds the in-memory indexes served at runtime.
package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/enfance/internal/models"
)

type record struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Section *int   `json:"section"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

// ReadSegments decodes a JSON array of {label, url, section, source, content} records.
// The array order defines segment IDs.
func ReadSegments(r io.Reader) ([]*models.Segment, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}
	segments := make([]*models.Segment, len(records))
	for i, rec := range records {
		segments[i] = &models.Segment{
			ID:      i,
			Label:   Preprocess(rec.Label),
			URL:     rec.URL,
			Source:  rec.Source,
			Section: rec.Section,
			Content: rec.Content,
		}
	}
	return segments, nil
}

// LoadFile reads a corpus metadata file.
func LoadFile(path string) ([]*models.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()
	return ReadSegments(f)
}

// WriteSegments encodes segments in the corpus metadata format.
func WriteSegments(w io.Writer, segments []*models.Segment) error {
	records := make([]record, len(segments))
	for i, seg := range segments {
		records[i] = record{
			Label:   seg.Label,
			URL:     seg.URL,
			Section: seg.Section,
			Source:  seg.Source,
			Content: seg.Content,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// CheckIDs verifies that segment IDs are 0..n-1 in order, which the embedding matrix rows
// rely on.
func CheckIDs(segments []*models.Segment) error {
	for i, seg := range segments {
		if seg == nil {
			return fmt.Errorf("segment %d is nil", i)
		}
		if seg.ID != i {
			return fmt.Errorf("segment at position %d has id %d", i, seg.ID)
		}
	}
	return nil
}
