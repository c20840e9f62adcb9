package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/enfance/internal/models"
)

var (
	blankLines = regexp.MustCompile(`\n{2,}`)
	nonSlug    = regexp.MustCompile(`[^A-Za-z0-9]+`)

	defaultNoise = []string{
		"votre navigateur est obsolète",
		"mettez à jour votre navigateur",
	}
)

// RawDocument is one cleaned crawled page.
type RawDocument struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// ReadRawDocuments decodes a JSON array of {source, content} pages.
func ReadRawDocuments(r io.Reader) ([]RawDocument, error) {
	var docs []RawDocument
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode raw documents: %w", err)
	}
	return docs, nil
}

// Sectioner cuts pages into segments at blank lines and drops sections that are too short,
// too repetitive or mostly non-text.
type Sectioner struct {
	baseURL        string
	minWords       int
	minUniqueWords int
	minAlphaRatio  float64
	noise          []string
}

// SectionerOption configures a Sectioner.
type SectionerOption func(*Sectioner)

// WithBaseURL sets the site root used to guess page URLs from source names.
func WithBaseURL(u string) SectionerOption {
	return func(s *Sectioner) {
		s.baseURL = strings.TrimRight(u, "/") + "/"
	}
}

// WithNoise replaces the boilerplate phrases that disqualify a section.
func WithNoise(phrases []string) SectionerOption {
	return func(s *Sectioner) {
		s.noise = phrases
	}
}

// NewSectioner creates a Sectioner with the default thresholds: 15 words, 5 distinct words
// longer than two letters, 35% letters.
func NewSectioner(opts ...SectionerOption) *Sectioner {
	s := &Sectioner{
		baseURL:        "https://www.amiens.fr/",
		minWords:       15,
		minUniqueWords: 5,
		minAlphaRatio:  0.35,
		noise:          defaultNoise,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segments cuts every document and numbers the resulting segments from 0 in order.
func (s *Sectioner) Segments(docs []RawDocument) []*models.Segment {
	var out []*models.Segment
	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = "inconnu.txt"
		}
		url := s.GuessURL(source)
		for i, section := range s.Split(doc.Content) {
			index := i + 1
			out = append(out, &models.Segment{
				ID:      len(out),
				Label:   fmt.Sprintf("%s (section %d)", source, index),
				URL:     url,
				Source:  source,
				Section: &index,
				Content: section,
			})
		}
	}
	return out
}

// Split returns the valid blank-line separated sections of content.
func (s *Sectioner) Split(content string) []string {
	var sections []string
	for _, raw := range blankLines.Split(content, -1) {
		section := strings.TrimSpace(raw)
		if section == "" || !s.Valid(section) {
			continue
		}
		sections = append(sections, section)
	}
	return sections
}

// Valid reports whether section carries enough text to be worth retrieving.
func (s *Sectioner) Valid(section string) bool {
	lowered := strings.ToLower(section)
	for _, n := range s.noise {
		if strings.Contains(lowered, n) {
			return false
		}
	}

	words := strings.FieldsFunc(section, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if len(words) < s.minWords {
		return false
	}
	unique := make(map[string]struct{})
	for _, w := range words {
		if utf8.RuneCountInString(w) > 2 {
			unique[strings.ToLower(w)] = struct{}{}
		}
	}
	if len(unique) < s.minUniqueWords {
		return false
	}

	letters, total := 0, 0
	for _, r := range section {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters)/float64(total) >= s.minAlphaRatio
}

// GuessURL maps a source file name such as "enfance_tarifs-cantine.txt" to
// "<base>/enfance/tarifs-cantine". It returns "" when the name cannot be slugged.
func (s *Sectioner) GuessURL(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	var parts []string
	for _, p := range strings.Split(stem, "_") {
		if p == "" {
			continue
		}
		slug := strings.ToLower(strings.Trim(nonSlug.ReplaceAllString(p, "-"), "-"))
		if slug == "" {
			return ""
		}
		parts = append(parts, slug)
	}
	if len(parts) == 0 {
		return ""
	}
	return s.baseURL + strings.Join(parts, "/")
}
