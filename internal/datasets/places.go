package datasets

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/enfance/internal/models"
)

// minPlaceNameRunes drops detected names too short to be a place.
const minPlaceNameRunes = 6

var (
	placePatterns = []*regexp.Regexp{
		// "espace Dewailly", "école Jules Ferry"
		regexp.MustCompile(`(?:^|[^\p{L}])((?i:espace|centre|salle|théâtre|médiathèque|bibliothèque|gymnase|stade|piscine|école|mairie|hôtel de ville)\s+\p{Lu}[\p{Ll}'-]+(?:\s+\p{Lu}[\p{Ll}'-]+)*)`),
		// "Maison de Quartier", "Parc d'Amiens"
		regexp.MustCompile(`(?:^|[^\p{L}])(\p{Lu}\p{Ll}+\s+(?:(?:de|du|des)\s+|d')\p{Lu}\p{Ll}+)`),
	}

	addressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s+(?:rue|avenue|boulevard|place|allée|chemin|impasse|route)\s+[^,\n]{5,50}`),
		regexp.MustCompile(`(?i)\d+\s+[A-Z][^,\n]{10,50}(?:rue|avenue|boulevard|place)`),
	}

	spaces = regexp.MustCompile(`\s+`)

	geographicTerms = []string{"où", "adresse", "localisation", "se trouve", "situé", "localiser"}
)

// PlaceMention is a place named in a question, with its address when known.
type PlaceMention struct {
	Name        string
	Address     string
	Description string
}

// IsGeographic reports whether the lowercased question text asks where something is.
func IsGeographic(questionText string) bool {
	return containsAny(questionText, geographicTerms...)
}

// DetectPlaces returns the places named in question: known places first, then proper
// names following a place noun ("espace", "école"...) or joined by de/du/des.
func (c *Catalog) DetectPlaces(question, questionText string) []PlaceMention {
	var out []PlaceMention
	seen := make(map[string]struct{})
	if c != nil {
		for _, p := range c.places {
			name := strings.ToLower(p.Name)
			if name == "" || !strings.Contains(questionText, name) {
				continue
			}
			out = append(out, PlaceMention{Name: p.Name, Address: p.Address, Description: p.Description})
			seen[name] = struct{}{}
		}
	}
	for _, re := range placePatterns {
		for _, m := range re.FindAllStringSubmatch(question, -1) {
			name := strings.TrimSpace(m[1])
			key := strings.ToLower(name)
			if utf8.RuneCountInString(name) < minPlaceNameRunes {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, PlaceMention{Name: name})
		}
	}
	return out
}

// ExtractAddress returns the first street address ("12 rue ...") found in text, or "".
func ExtractAddress(text string) string {
	for _, re := range addressPatterns {
		m := re.FindString(text)
		if m == "" {
			continue
		}
		addr := spaces.ReplaceAllString(strings.TrimSpace(m), " ")
		if utf8.RuneCountInString(addr) > 10 {
			return addr
		}
	}
	return ""
}

// AddressFromSegments looks for an address in the segments that mention name.
func AddressFromSegments(name string, segments []*models.RetrievedSegment) string {
	key := strings.ToLower(name)
	for _, seg := range segments {
		if seg == nil {
			continue
		}
		text := seg.Text()
		if !strings.Contains(strings.ToLower(text), key) {
			continue
		}
		if addr := ExtractAddress(text); addr != "" {
			return addr
		}
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
