// Package followup rewrites the generated follow-up question in the user's voice and keeps
// it only when the retrieved segments can answer it.
package followup

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxQuestionRunes is the longest follow-up kept as is.
const MaxQuestionRunes = 80

var (
	leadingJe = regexp.MustCompile(`(?i)^je\s+`)
	leadingMe = regexp.MustCompile(`(?i)^me\s+`)

	politePrefixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^souhaitez-vous\s+`),
		regexp.MustCompile(`(?i)^pouvez-vous\s+`),
		regexp.MustCompile(`(?i)^pourriez-vous\s+`),
		regexp.MustCompile(`(?i)^voulez-vous\s+`),
		regexp.MustCompile(`(?i)^je souhaite\s+`),
		regexp.MustCompile(`(?i)^je voudrais\s+`),
		regexp.MustCompile(`(?i)^je veux\s+`),
		regexp.MustCompile(`(?i)^je dois\s+`),
		regexp.MustCompile(`(?i)^souhaitez-vous que je\s+`),
		regexp.MustCompile(`(?i)^pouvez-vous me\s+`),
		regexp.MustCompile(`(?i)^pourriez-vous me\s+`),
	}

	possessives = []struct {
		re   *regexp.Regexp
		with string
	}{
		{regexp.MustCompile(`(?i)\bvotre\s+quotient\s+familial\b`), "mon quotient familial"},
		{regexp.MustCompile(`(?i)\bvotre\s+enfant\b`), "mon enfant"},
		{regexp.MustCompile(`(?i)\bvotre\s+situation\b`), "ma situation"},
		{regexp.MustCompile(`(?i)\bvotre\s+tarif\b`), "mon tarif"},
		{regexp.MustCompile(`(?i)\bvos\s+enfants\b`), "mes enfants"},
	}

	// knowVerb turns "connaître mon X" into a direct question; the determiner picks the form.
	knowVerb = regexp.MustCompile(`(?i)^(?:connaître|connaitre|savoir)\s+(?:(mes|mon|ma|les|le|la)\s+|(l'))`)

	justifications = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s+pour\s+que\s+je\s+puisse[^?]*`),
		regexp.MustCompile(`(?i)\s+afin\s+de[^?]*`),
		regexp.MustCompile(`(?i)\s+qui\s+s'applique\s+à[^?]*`),
	}

	whitespace  = regexp.MustCompile(`\s+`)
	firstClause = regexp.MustCompile(`^([^?]+)\?`)
)

var interrogatives = map[string]string{
	"mon": "Quel est mon ",
	"ma":  "Quelle est ma ",
	"mes": "Quels sont mes ",
	"le":  "Quel est le ",
	"la":  "Quelle est la ",
	"les": "Quels sont les ",
	"l'":  "Quel est l'",
}

// Normalize rewrites an assistant-phrased follow-up as a short user question.
// It returns nil for nil or blank input.
func Normalize(question *string) *string {
	if question == nil {
		return nil
	}
	q := strings.TrimSpace(*question)
	if q == "" {
		return nil
	}

	q = leadingJe.ReplaceAllString(q, "")
	for _, re := range politePrefixes {
		q = re.ReplaceAllString(q, "")
	}
	q = leadingMe.ReplaceAllString(q, "")
	for i := 0; i < 3; i++ {
		q = leadingJe.ReplaceAllString(q, "")
	}

	q = capitalize(q)
	for _, p := range possessives {
		q = p.re.ReplaceAllString(q, p.with)
	}
	if m := knowVerb.FindStringSubmatchIndex(q); m != nil {
		var det string
		if m[2] >= 0 {
			det = q[m[2]:m[3]]
		} else {
			det = q[m[4]:m[5]]
		}
		q = interrogatives[strings.ToLower(det)] + q[m[1]:]
	}
	for _, re := range justifications {
		q = re.ReplaceAllString(q, "")
	}

	if !strings.HasSuffix(q, "?") {
		if strings.HasSuffix(q, ".") {
			q = strings.TrimSuffix(q, ".") + "?"
		} else {
			q += "?"
		}
	}
	q = strings.TrimSpace(whitespace.ReplaceAllString(q, " "))

	if utf8.RuneCountInString(q) > MaxQuestionRunes {
		if m := firstClause.FindStringSubmatch(q); m != nil {
			q = strings.TrimSpace(m[1]) + "?"
		} else {
			q = string([]rune(q)[:MaxQuestionRunes-3]) + "...?"
		}
	}
	if q == "" || q == "?" {
		return nil
	}
	return &q
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
