package ranking

// RankingConfig holds the hand-tuned weights of the hybrid ranker. A weight or bonus of 0
// switches its signal off; start from DefaultRankingConfig to keep the defaults.
type RankingConfig struct {
	// Fusion weights
	LexicalWeight  float64 `yaml:"lexical_weight"`  // default: 1.0
	SemanticWeight float64 `yaml:"semantic_weight"` // default: 0.6

	// Bonus rules
	LexiconBoost  float64 `yaml:"lexicon_boost"`  // default: 2.5 per admin term found
	CurrencyBonus float64 `yaml:"currency_bonus"` // default: 2.5

	// Result sizes
	TopK            int `yaml:"top_k"`            // default: 5
	MaxTopK         int `yaml:"max_top_k"`        // default: 20
	OverfetchFactor int `yaml:"overfetch_factor"` // default: 4

	// Semantic filter
	MinSemanticScore float64 `yaml:"min_semantic_score"` // default: 0.25

	// BM25F parameters
	BM25K1       float64 `yaml:"bm25_k1"`       // default: 1.6
	BM25B        float64 `yaml:"bm25_b"`        // default: 0.75
	LabelBoost   float64 `yaml:"label_boost"`   // default: 1.0
	ContentBoost float64 `yaml:"content_boost"` // default: 1.0

	// Price vocabulary that triggers the currency bonus. Matched as substrings of the
	// normalized question; "€" is matched on the raw question.
	CurrencyKeywords []string `yaml:"currency_keywords"`
}

// DefaultCurrencyKeywords are the price words of the municipal vocabulary.
var DefaultCurrencyKeywords = []string{
	"tarif", "tarifs", "prix", "€", "garderie", "coute", "coûte", "cout", "coût",
	"combien", "facturation", "facture", "montant", "payer",
}

// DefaultRankingConfig returns the default ranking configuration.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		LexicalWeight:  1.0,
		SemanticWeight: 0.6,

		LexiconBoost:  2.5,
		CurrencyBonus: 2.5,

		TopK:            5,
		MaxTopK:         20,
		OverfetchFactor: 4,

		MinSemanticScore: 0.25,

		BM25K1:       1.6,
		BM25B:        0.75,
		LabelBoost:   1.0,
		ContentBoost: 1.0,

		CurrencyKeywords: append([]string(nil), DefaultCurrencyKeywords...),
	}
}

// Unset reports whether c was never filled in, as in a hand-built Config.
func (c *RankingConfig) Unset() bool {
	return c.LexicalWeight == 0 && c.SemanticWeight == 0 && c.LexiconBoost == 0 &&
		c.CurrencyBonus == 0 && c.TopK == 0 && c.MaxTopK == 0 && len(c.CurrencyKeywords) == 0
}

// ApplyDefaults replaces negative weights and bonuses with defaults, keeping 0 as "off",
// and fills the remaining zero values.
func (c *RankingConfig) ApplyDefaults() {
	defaults := DefaultRankingConfig()

	if c.LexicalWeight < 0 {
		c.LexicalWeight = defaults.LexicalWeight
	}
	if c.SemanticWeight < 0 {
		c.SemanticWeight = defaults.SemanticWeight
	}
	if c.LexiconBoost < 0 {
		c.LexiconBoost = defaults.LexiconBoost
	}
	if c.CurrencyBonus < 0 {
		c.CurrencyBonus = defaults.CurrencyBonus
	}
	if c.TopK <= 0 {
		c.TopK = defaults.TopK
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = defaults.MaxTopK
	}
	if c.TopK > c.MaxTopK {
		c.TopK = c.MaxTopK
	}
	if c.OverfetchFactor <= 0 {
		c.OverfetchFactor = defaults.OverfetchFactor
	}
	if c.MinSemanticScore == 0 {
		c.MinSemanticScore = defaults.MinSemanticScore
	}
	if c.BM25K1 == 0 {
		c.BM25K1 = defaults.BM25K1
	}
	if c.BM25B == 0 {
		c.BM25B = defaults.BM25B
	}
	if c.LabelBoost == 0 {
		c.LabelBoost = defaults.LabelBoost
	}
	if c.ContentBoost == 0 {
		c.ContentBoost = defaults.ContentBoost
	}
	if len(c.CurrencyKeywords) == 0 {
		c.CurrencyKeywords = defaults.CurrencyKeywords
	}
}
