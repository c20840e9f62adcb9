package ranking

import (
	"strings"

	"github.com/hyperjump/enfance/internal/lexicon"
	"github.com/hyperjump/enfance/internal/textnorm"
	"github.com/hyperjump/enfance/pkg/utils"
)

// minCurrencyDigits is the digit count above which a text is treated as a price table.
const minCurrencyDigits = 4

// CurrencyRule boosts segments that carry price data when the question asks about prices.
type CurrencyRule struct {
	bonus    float64
	keywords []string
	euro     bool
}

// NewCurrencyRule creates the rule from the configured bonus and keywords.
func NewCurrencyRule(config *RankingConfig) *CurrencyRule {
	r := &CurrencyRule{bonus: config.CurrencyBonus}
	for _, k := range config.CurrencyKeywords {
		if strings.Contains(k, "€") {
			r.euro = true
		}
		if n := textnorm.Normalize(k); n != "" {
			r.keywords = append(r.keywords, n)
		}
	}
	return r
}

// Name returns the rule name.
func (r *CurrencyRule) Name() string {
	return "currency"
}

// Applies reports whether the question mentions a price keyword.
func (r *CurrencyRule) Applies(q *Query) bool {
	if q == nil {
		return false
	}
	if r.euro && strings.Contains(q.Question, "€") {
		return true
	}
	text := q.Normalized
	if text == "" {
		text = textnorm.Normalize(q.Question)
	}
	return textnorm.ContainsAny(text, r.keywords)
}

// Adjust returns the flat bonus for candidates containing price data.
func (r *CurrencyRule) Adjust(q *Query, c *Candidate) float64 {
	if HasCurrencyData(c.Text) {
		return r.bonus
	}
	return 0
}

// HasCurrencyData reports whether text contains "€", "tarif" or "prix", or at least four digits.
func HasCurrencyData(text string) bool {
	if text == "" {
		return false
	}
	if strings.Contains(text, "€") {
		return true
	}
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "tarif") || strings.Contains(lowered, "prix") {
		return true
	}
	return utils.CountDigits(text) >= minCurrencyDigits
}

// LexiconRule boosts lexical candidates by LexiconBoost for each admin term found in their
// normalized content.
type LexiconRule struct {
	boost float64
}

// NewLexiconRule creates the rule from the configured boost.
func NewLexiconRule(config *RankingConfig) *LexiconRule {
	return &LexiconRule{boost: config.LexiconBoost}
}

// Name returns the rule name.
func (r *LexiconRule) Name() string {
	return "lexicon"
}

// Applies reports whether the question matched any lexicon entry.
func (r *LexiconRule) Applies(q *Query) bool {
	return q != nil && len(q.AdminTerms) > 0
}

// Adjust counts admin term hits. Semantic-only candidates get nothing.
func (r *LexiconRule) Adjust(q *Query, c *Candidate) float64 {
	if !c.FromLexical || c.Segment == nil {
		return 0
	}
	content := textnorm.Normalize(c.Segment.Content)
	hits := 0
	for _, term := range q.AdminTerms {
		if term != "" && strings.Contains(content, term) {
			hits++
		}
	}
	return float64(hits) * r.boost
}

// EntryWeightRule adds the weight of every matched entry with an admin term present in the
// candidate. It scores segments supplied by the caller, which carry no lexical score.
type EntryWeightRule struct{}

// Name returns the rule name.
func (EntryWeightRule) Name() string {
	return "lexicon_weight"
}

// Applies reports whether the question matched any lexicon entry.
func (EntryWeightRule) Applies(q *Query) bool {
	return q != nil && len(q.Matches) > 0
}

// Adjust sums the weights of entries found in the candidate text.
func (EntryWeightRule) Adjust(q *Query, c *Candidate) float64 {
	normalized := textnorm.Normalize(c.Text + " " + c.Label)
	if normalized == "" {
		return 0
	}
	bonus := 0.0
	for _, e := range q.Matches {
		if e.Weight <= 0 {
			continue
		}
		if containsAdminTerm(normalized, e) {
			bonus += e.Weight
		}
	}
	return bonus
}

func containsAdminTerm(normalized string, e lexicon.Entry) bool {
	for _, term := range e.NormalizedAdmin {
		if term != "" && strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// DefaultRules returns the retrieval rules in application order.
func DefaultRules(config *RankingConfig) []Rule {
	return []Rule{
		NewLexiconRule(config),
		NewCurrencyRule(config),
	}
}
