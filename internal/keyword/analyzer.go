package keyword

import (
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"

	"github.com/hyperjump/enfance/internal/textnorm"
)

// minTokenRunes drops single-letter tokens left over by elision and digits.
const minTokenRunes = 2

// Analyzer turns text into French stemmed terms using bleve's "fr" analysis chain
// (unicode tokenizer, elision, lowercase, French stop words, light stemmer).
type Analyzer struct {
	analyzer analysis.Analyzer
}

// NewAnalyzer resolves bleve's French analyzer. When the analyzer cannot be built the
// returned Analyzer reports Available() == false and produces no terms.
func NewAnalyzer() *Analyzer {
	im := bleve.NewIndexMapping()
	return &Analyzer{analyzer: im.AnalyzerNamed(fr.AnalyzerName)}
}

// Available reports whether the stemming chain is usable.
func (a *Analyzer) Available() bool {
	return a != nil && a.analyzer != nil
}

// Terms analyzes text. Accents are folded first so "creche" and "crèche" share a stem.
func (a *Analyzer) Terms(text string) []string {
	if !a.Available() || text == "" {
		return nil
	}
	folded := textnorm.StripAccents(text)
	stream := a.analyzer.Analyze([]byte(folded))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if utf8.RuneCount(tok.Term) < minTokenRunes {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}
