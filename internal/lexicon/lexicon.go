// Package lexicon maps user vocabulary to administrative vocabulary and expands queries
// with it.
package lexicon

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/enfance/internal/textnorm"
)

// Entry is one user term with its administrative equivalents.
type Entry struct {
	UserTerm   string   `json:"terme_usager"`
	AdminTerms []string `json:"terme_admin"`
	Weight     float64  `json:"poids"`

	NormalizedUser  string   `json:"-"`
	NormalizedAdmin []string `json:"-"`
}

type lexiconFile struct {
	Entries []Entry `json:"lexique_enfance"`
}

// Lexicon is the read-only set of entries plus query hints keyed by normalized user term.
type Lexicon struct {
	entries []Entry
	hints   map[string][]string
	loaded  bool
}

// New prepares entries (skipping those without a user term) and hints.
// Hint keys are normalized; nil hints means DefaultQueryHints.
func New(entries []Entry, hints map[string][]string) *Lexicon {
	if hints == nil {
		hints = DefaultQueryHints()
	}
	l := &Lexicon{
		entries: make([]Entry, 0, len(entries)),
		hints:   make(map[string][]string, len(hints)),
		loaded:  true,
	}
	for key, values := range hints {
		nk := textnorm.Normalize(key)
		if nk == "" {
			continue
		}
		l.hints[nk] = append(l.hints[nk], values...)
	}
	for _, e := range entries {
		if strings.TrimSpace(e.UserTerm) == "" {
			continue
		}
		if e.Weight < 0 {
			e.Weight = 0
		}
		e.NormalizedUser = textnorm.Normalize(e.UserTerm)
		e.NormalizedAdmin = make([]string, 0, len(e.AdminTerms))
		for _, term := range e.AdminTerms {
			if n := textnorm.Normalize(term); n != "" {
				e.NormalizedAdmin = append(e.NormalizedAdmin, n)
			}
		}
		l.entries = append(l.entries, e)
	}
	return l
}

// Empty returns a lexicon with no entries, used when loading failed.
func Empty() *Lexicon {
	return &Lexicon{hints: map[string][]string{}}
}

// Load reads a lexicon file of the form {"lexique_enfance": [...]}.
func Load(path string, hints map[string][]string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	var f lexiconFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	return New(f.Entries, hints), nil
}

// Available reports whether the lexicon was loaded.
func (l *Lexicon) Available() bool {
	return l != nil && l.loaded
}

// Len returns the number of entries.
func (l *Lexicon) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Match returns the entries whose normalized user term is a substring of the normalized
// question. normalizedQuestion is preferred when non-empty.
func (l *Lexicon) Match(question, normalizedQuestion string) []Entry {
	if l == nil || len(l.entries) == 0 {
		return nil
	}
	text := textnorm.Normalize(normalizedQuestion)
	if text == "" {
		text = textnorm.Normalize(question)
	}
	if text == "" {
		return nil
	}
	var matches []Entry
	for _, e := range l.entries {
		if e.NormalizedUser != "" && strings.Contains(text, e.NormalizedUser) {
			matches = append(matches, e)
		}
	}
	return matches
}

// Expand appends to question, in entry order, every admin term and query hint of matches,
// deduplicated with original casing. The question is returned unchanged when nothing is added.
func (l *Lexicon) Expand(question string, matches []Entry) string {
	if question == "" || len(matches) == 0 {
		return question
	}
	var extra []string
	seen := make(map[string]struct{})
	add := func(term string) {
		if term == "" {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		extra = append(extra, term)
	}
	for _, e := range matches {
		for _, term := range e.AdminTerms {
			add(term)
		}
		if l != nil && e.NormalizedUser != "" {
			for _, hint := range l.hints[e.NormalizedUser] {
				add(hint)
			}
		}
	}
	if len(extra) == 0 {
		return question
	}
	return question + " " + strings.Join(extra, " ")
}

// AdminTerms returns the normalized admin terms of matches, in order, without duplicates.
func AdminTerms(matches []Entry) []string {
	var terms []string
	seen := make(map[string]struct{})
	for _, e := range matches {
		for _, t := range e.NormalizedAdmin {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}
	return terms
}

// UserTerms returns the user terms of matches, for logging.
func UserTerms(matches []Entry) []string {
	out := make([]string, len(matches))
	for i, e := range matches {
		out[i] = e.UserTerm
	}
	return out
}
