// Package intent classifies a question into a weighted user intent.
package intent

import (
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/textnorm"
)

// Category is one intent with its weight and trigger keywords.
type Category struct {
	Label    string   `yaml:"label"`
	Weight   float64  `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

// DefaultCategories returns the intent table in declaration order.
func DefaultCategories() []Category {
	return []Category{
		{
			Label:  "action",
			Weight: 1.0,
			Keywords: []string{
				"payer", "ouvrir", "fermer", "où se trouve", "où est", "où sont", "quand", "contact", "téléphone", "telephone",
				"appeler", "adresse", "horaire", "heures", "mail", "email",
			},
		},
		{
			Label:  "planification",
			Weight: 0.8,
			Keywords: []string{
				"inscription", "inscrire", "période", "periode", "calendrier", "date limite",
				"deadline", "réserver", "reserver", "pré-inscription", "pre-inscription",
				"préinscription", "preinscription", "planning",
			},
		},
		{
			Label:  "compréhension",
			Weight: 0.5,
			Keywords: []string{
				"explication", "expliquer", "comment", "procédure", "procedure", "fonctionne",
				"fonctionnement", "dossier", "conditions", "documents",
			},
		},
		{
			Label:  "organisation",
			Weight: 0.3,
			Keywords: []string{
				"plusieurs", "cumul", "coordination", "répartition", "repartition",
				"combien de temps", "temps de garde", "planning multiple", "alternance",
			},
		},
		{
			Label:  "anticipation",
			Weight: 0.1,
			Keywords: []string{
				"si jamais", "au cas où", "au cas ou", "futur", "prévoir", "prevoir", "anticiper",
				"risque", "éventuel", "eventuel", "prévision", "prevision", "projection",
			},
		},
	}
}

type compiledCategory struct {
	label    string
	weight   float64
	keywords []string
}

// Classifier holds the normalized intent table. It is immutable and safe for concurrent use.
type Classifier struct {
	categories []compiledCategory
}

// NewClassifier normalizes the keywords of categories. Nil categories means DefaultCategories.
func NewClassifier(categories []Category) *Classifier {
	if categories == nil {
		categories = DefaultCategories()
	}
	c := &Classifier{categories: make([]compiledCategory, 0, len(categories))}
	for _, cat := range categories {
		cc := compiledCategory{label: cat.Label, weight: cat.Weight}
		seen := make(map[string]struct{})
		for _, k := range cat.Keywords {
			n := textnorm.Normalize(k)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			cc.keywords = append(cc.keywords, n)
		}
		c.categories = append(c.categories, cc)
	}
	return c
}

// Classify returns the firing category with the strictly highest positive weight; the first
// declared wins ties. A category fires when one of its keywords is a substring of the
// normalized question. No firing category yields models.UnknownIntent.
func (c *Classifier) Classify(normalized string) models.IntentScore {
	text := textnorm.Normalize(normalized)
	if text == "" {
		return models.UnknownIntent
	}
	best := models.UnknownIntent
	for _, cat := range c.categories {
		if cat.weight > best.Weight && textnorm.ContainsAny(text, cat.keywords) {
			best = models.IntentScore{Label: cat.label, Weight: cat.weight}
		}
	}
	return best
}
