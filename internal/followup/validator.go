package followup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/enfance/internal/models"
)

// minKeywordRunes is the shortest token kept as a coverage keyword.
const minKeywordRunes = 3

// contextSegments is the number of top segments inspected by the fallback.
const contextSegments = 3

var stopWords = map[string]struct{}{
	"quel": {}, "quelle": {}, "quels": {}, "quelles": {}, "est": {}, "sont": {}, "mon": {},
	"ma": {}, "mes": {}, "le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {},
	"de": {}, "du": {}, "à": {}, "pour": {}, "avec": {}, "dans": {}, "sur": {}, "par": {},
	"où": {}, "comment": {}, "quand": {}, "combien": {},
}

// Catalog reports which structured datasets are loaded.
type Catalog interface {
	HasTariffs() bool
	HasPlaces() bool
	HasRPE() bool
	HasSchools() bool
}

// Validator keeps a follow-up only when it is answerable from the retrieved segments,
// otherwise synthesizes one from the loaded datasets or drops it.
type Validator struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewValidator creates a Validator. catalog may be nil when no dataset is loaded.
func NewValidator(catalog Catalog, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{catalog: catalog, logger: logger}
}

// Keywords returns the lowercased words of question longer than two runes that are not stop words.
func Keywords(question string) []string {
	words := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < minKeywordRunes {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Answerable reports whether one segment contains at least half of the question keywords.
func Answerable(question string, segments []*models.RetrievedSegment) bool {
	if question == "" || len(segments) == 0 {
		return false
	}
	keywords := Keywords(question)
	if len(keywords) == 0 {
		return false
	}
	for _, seg := range segments {
		if seg == nil {
			continue
		}
		content := strings.ToLower(seg.Text())
		hits := 0
		for _, k := range keywords {
			if strings.Contains(content, k) {
				hits++
			}
		}
		if float64(hits) >= float64(len(keywords))*0.5 {
			return true
		}
	}
	return false
}

// Validate normalizes candidate and returns it when answerable. Otherwise it returns a
// normalized replacement built from the datasets relevant to question, or nil.
func (v *Validator) Validate(candidate *string, question string, segments []*models.RetrievedSegment) *string {
	normalized := Normalize(candidate)
	if normalized == nil {
		return nil
	}
	if Answerable(*normalized, segments) {
		return normalized
	}
	alt := v.Fallback(question, segments)
	if alt == "" {
		v.logger.Debug("follow-up dropped", zap.String("candidate", *normalized))
		return nil
	}
	v.logger.Debug("follow-up replaced",
		zap.String("candidate", *normalized),
		zap.String("replacement", alt))
	return Normalize(&alt)
}

// Fallback synthesizes a follow-up from the loaded datasets, or returns "".
func (v *Validator) Fallback(question string, segments []*models.RetrievedSegment) string {
	if v.catalog == nil {
		return ""
	}
	q := strings.ToLower(question)
	top := segments
	if len(top) > contextSegments {
		top = top[:contextSegments]
	}
	texts := make([]string, 0, len(top))
	for _, seg := range top {
		if seg != nil {
			texts = append(texts, strings.ToLower(seg.Text()))
		}
	}
	content := strings.Join(texts, " ")

	if v.catalog.HasTariffs() && containsAny(q, "tarif", "prix", "coût", "cout") && !strings.Contains(content, "quotient") {
		return "Quel est mon quotient familial ?"
	}
	if v.catalog.HasPlaces() && containsAny(q, "où", "adresse", "localisation") {
		for _, t := range texts {
			if containsAny(t, "espace", "école", "ecole", "crèche", "creche") {
				return "Où se trouve ce lieu ?"
			}
		}
	}
	if v.catalog.HasRPE() && containsAny(q, "rpe", "relais") && !containsAny(content, "contact", "téléphone", "telephone") {
		return "Quel est le contact de mon RPE ?"
	}
	if v.catalog.HasSchools() && containsAny(q, "école", "ecole", "scolaire") && !strings.Contains(content, "secteur") {
		return "Dans quel secteur se trouve cette école ?"
	}
	if v.catalog.HasTariffs() {
		return "Quels sont les tarifs détaillés ?"
	}
	if v.catalog.HasRPE() {
		return "Quels sont les contacts des RPE ?"
	}
	return ""
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
