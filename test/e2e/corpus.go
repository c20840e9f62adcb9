// Package e2e provides end-to-end tests over a generated childcare site.
package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/enfance/internal/corpus"
)

// Topic is one kind of childcare page, repeated for every district.
type Topic struct {
	Slug     string
	Keyword  string
	Sentence string
}

// QueryTestCase defines a question and the page source that must appear in the ranked segments.
type QueryTestCase struct {
	Question       string
	ExpectedSource string
	Description    string
}

// Corpus holds crawled pages and question test cases for E2E tests.
type Corpus struct {
	Pages        []corpus.RawDocument
	TestCases    []QueryTestCase
	TotalPages   int
	TotalQueries int
}

var districts = []string{
	"etouvie", "henriville", "montieres", "renancourt", "longpre", "elbeuf",
	"pagnol", "rollin", "beauville", "hotoie", "marivaux", "victorine",
}

var topics = []Topic{
	{"creche", "crèche", "La crèche municipale accueille les tout-petits de dix semaines à trois ans avec des professionnels de la petite enfance."},
	{"cantine", "cantine", "La cantine scolaire sert un repas équilibré chaque midi et les menus sont publiés chaque semaine pour les familles."},
	{"periscolaire", "périscolaire", "L'accueil périscolaire fonctionne le matin avant la classe et le soir après la classe avec des animateurs diplômés."},
	{"relais", "relais", "Le relais petite enfance informe les parents sur les assistantes maternelles agréées et les démarches d'emploi."},
}

// BuildCorpus returns one page per topic and district. Each page names its district in both
// sections and its topic only in the first, so a question combining both has a single best page.
func BuildCorpus() *Corpus {
	pages := make([]corpus.RawDocument, 0, len(districts)*len(topics))
	for _, t := range topics {
		for _, d := range districts {
			pages = append(pages, corpus.RawDocument{
				Source:  pageSource(t, d),
				Content: pageContent(t, d),
			})
		}
	}
	var cases []QueryTestCase
	for i, d := range districts {
		t := topics[i%len(topics)]
		cases = append(cases, QueryTestCase{
			Question:       fmt.Sprintf("%s quartier %s", t.Keyword, d),
			ExpectedSource: pageSource(t, d),
			Description:    fmt.Sprintf("%s_%s", t.Slug, d),
		})
	}
	return &Corpus{
		Pages:        pages,
		TestCases:    cases,
		TotalPages:   len(pages),
		TotalQueries: len(cases),
	}
}

// WritePages writes the pages as crawled pages JSON to path.
func (c *Corpus) WritePages(path string) error {
	data, err := json.Marshal(c.Pages)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func pageSource(t Topic, district string) string {
	return fmt.Sprintf("enfance_%s-%s.txt", t.Slug, district)
}

func pageContent(t Topic, district string) string {
	name := strings.ToUpper(district[:1]) + district[1:]
	first := fmt.Sprintf("%s Dans le quartier %s, la %s se trouve près de la mairie annexe et reste ouverte du lundi au vendredi.",
		t.Sentence, name, t.Keyword)
	second := fmt.Sprintf("Pour toute question sur le quartier %s, les familles peuvent contacter la mairie annexe par téléphone ou se présenter au guichet unique avec leurs justificatifs.",
		name)
	return first + "\n\n" + second
}
