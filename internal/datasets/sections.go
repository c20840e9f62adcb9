package datasets

import (
	"fmt"
	"strings"

	"github.com/hyperjump/enfance/internal/lexicon"
	"github.com/hyperjump/enfance/internal/models"
)

const (
	maxRPESectors        = 3
	maxCanteenTables     = 2
	maxAfterSchoolTables = 2
	maxWednesdayTables   = 1
)

var (
	rpeUserTerms = map[string]struct{}{"inscription": {}, "inscrire": {}, "crèche": {}, "relais": {}}
	rpeTerms     = []string{"rpe", "relais petite enfance"}
	tariffTerms  = []string{"tarif", "prix", "coût", "€", "cantine", "restauration", "périscolaire", "mercredi", "alsh"}
	canteenTerms = []string{"cantine", "restauration", "repas"}
	schoolTerms  = []string{"école", "établissement", "liste", "contact", "adresse école"}
)

// Query is what the catalog needs to pick the datasets relevant to a question.
type Query struct {
	Question   string
	Normalized string
	Matches    []lexicon.Entry
	Segments   []*models.RetrievedSegment
}

func (q Query) text() string {
	return strings.ToLower(q.Question) + " " + strings.ToLower(q.Normalized)
}

// Sections renders the structured data relevant to q as prompt sections, or "" when none
// applies.
func (c *Catalog) Sections(q Query) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	text := q.text()
	c.writeRPE(&b, q)
	c.writeTariffs(&b, text)
	c.writePlaces(&b, q, text)
	c.writeSchools(&b, text)
	return b.String()
}

// RPERelevant reports whether the question concerns RPE, childcare or enrolment.
func RPERelevant(q Query) bool {
	for _, m := range q.Matches {
		if _, ok := rpeUserTerms[m.UserTerm]; ok {
			return true
		}
	}
	return containsAny(q.text(), rpeTerms...)
}

func (c *Catalog) writeRPE(b *strings.Builder, q Query) {
	if !c.HasRPE() || !RPERelevant(q) {
		return
	}
	b.WriteString("\n=== DONNÉES STRUCTURÉES : LISTE DES RPE ===\n")
	b.WriteString("Tu DOIS inclure cette liste complète dans ta réponse si la question concerne les RPE :\n")
	for _, r := range c.rpe {
		sectors := r.Sectors
		if len(sectors) > maxRPESectors {
			sectors = sectors[:maxRPESectors]
		}
		fmt.Fprintf(b, "- %s : Secteurs %s... | Adresse: %s | Tél: %s | Email: %s\n",
			r.Name, strings.Join(sectors, ", "), r.Address, r.Phone, r.Email)
	}
	b.WriteString("\n")
}

func (c *Catalog) writeTariffs(b *strings.Builder, text string) {
	if !c.HasTariffs() || !containsAny(text, tariffTerms...) {
		return
	}
	b.WriteString("\n=== DONNÉES STRUCTURÉES : TABLEAUX TARIFAIRES ===\n")
	b.WriteString("Tu DOIS inclure les tableaux tarifaires pertinents dans ta réponse :\n")
	byType := c.tariffs.ByType
	if containsAny(text, canteenTerms...) {
		writeTables(b, byType["cantine"], maxCanteenTables)
	}
	if strings.Contains(text, "périscolaire") {
		writeTables(b, byType["periscolaire"], maxAfterSchoolTables)
	}
	if strings.Contains(text, "mercredi") {
		writeTables(b, byType["mercredi"], maxWednesdayTables)
	}
	b.WriteString("\n")
}

func writeTables(b *strings.Builder, tables []string, limit int) {
	if len(tables) > limit {
		tables = tables[:limit]
	}
	for _, t := range tables {
		b.WriteString(t)
		b.WriteString("\n")
	}
}

func (c *Catalog) writePlaces(b *strings.Builder, q Query, text string) {
	if !IsGeographic(text) {
		return
	}
	mentions := c.DetectPlaces(q.Question, text)
	if len(mentions) == 0 {
		return
	}
	b.WriteString("\n=== DONNÉES STRUCTURÉES : LIEUX ET ADRESSES ===\n")
	for _, m := range mentions {
		addr := m.Address
		if addr == "" {
			addr = AddressFromSegments(m.Name, q.Segments)
		}
		desc := ""
		if m.Description != "" {
			desc = " - " + m.Description
		}
		if addr != "" {
			fmt.Fprintf(b, "- %s : %s%s\n", m.Name, addr, desc)
		} else {
			fmt.Fprintf(b, "- %s%s (adresse à rechercher)\n", m.Name, desc)
		}
	}
	b.WriteString("\n")
}

func (c *Catalog) writeSchools(b *strings.Builder, text string) {
	if !c.HasSchools() || !containsAny(text, schoolTerms...) {
		return
	}
	b.WriteString("\n=== DONNÉES STRUCTURÉES : ÉCOLES ===\n")
	fmt.Fprintf(b, "Total: %d écoles disponibles.\n", c.schools.Total)
	b.WriteString("Si la question demande une liste ou des contacts d'écoles, indique ce total et oriente vers la carte interactive ou les mairies de secteur.\n")
	b.WriteString("\n")
}
